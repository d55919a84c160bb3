package cli

import (
	"encoding/json"
	"fmt"
	"os"

	orcherrors "github.com/relayforge/orchestra/internal/errors"
	"github.com/relayforge/orchestra/internal/session"
)

// printError prints an error to stderr with appropriate formatting. If the
// error is an OrchError, it uses the structured what/why shape; verbose
// mode also prints the error code and cause.
func printError(err error) {
	if orchErr := orcherrors.AsOrchError(err); orchErr != nil {
		fmt.Fprintln(os.Stderr, orchErr.Error())
		if verbose {
			fmt.Fprintf(os.Stderr, "Code: %s\n", orchErr.Code)
			if orchErr.Cause != nil {
				fmt.Fprintf(os.Stderr, "Cause: %v\n", orchErr.Cause)
			}
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// printJSON marshals v as indented JSON to stdout, the --json output path
// every session-inspecting command shares.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// statusIcon renders a session status as an emoji glyph, or its bare name
// under --plain.
func statusIcon(status session.Status) string {
	if plain {
		return string(status)
	}
	switch status {
	case session.StatusWorking:
		return "🔨 working"
	case session.StatusPaused:
		return "⏸️  paused"
	case session.StatusStuck:
		return "🛑 stuck"
	case session.StatusShipping:
		return "🚢 shipping"
	case session.StatusReviewsInProgress:
		return "👀 reviewing"
	case session.StatusPRReady:
		return "✅ pr-ready"
	case session.StatusComplete:
		return "🎉 complete"
	default:
		return string(status)
	}
}

// truncate shortens s to n runes, appending an ellipsis when it had to cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
