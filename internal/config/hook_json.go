package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnmarshalJSON accepts either the canonical {"type": "...", "value": "..."}
// form or the shorthand bare string form, which is a command hook iff it
// starts with "/" (SPEC_FULL §6 / spec.md §6).
func (h *Hook) UnmarshalJSON(data []byte) error {
	var shorthand string
	if err := json.Unmarshal(data, &shorthand); err == nil {
		if strings.HasPrefix(shorthand, "/") {
			h.Type = HookTypeCommand
		} else {
			h.Type = HookTypePrompt
		}
		h.Value = shorthand
		return nil
	}

	type alias Hook
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("unmarshal hook: %w", err)
	}
	*h = Hook(a)
	return nil
}
