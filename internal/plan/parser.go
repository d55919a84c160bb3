package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	taskHeaderRE = regexp.MustCompile(`^### Task (\d+):\s*(.*)$`)
	checkboxRE   = regexp.MustCompile(`^- \[([ x])\] \*\*Description\*\*:\s*(.*)$`)

	phaseRE        = fieldRE("Phase")
	dependsOnRE    = fieldRE("Depends-on", "Depends On", "DependsOn")
	parallelWithRE = fieldRE("Parallel-with", "Parallel With", "ParallelWith")
	acceptanceRE   = fieldRE("Acceptance")
	filesRE        = fieldRE("Files")
	testRE         = fieldRE("Test")
)

// fieldRE builds a regexp matching any of the given labels as a bold
// metadata field, e.g. "- **Phase**: 2".
func fieldRE(labels ...string) *regexp.Regexp {
	return regexp.MustCompile(`^- \*\*(?:` + strings.Join(labels, "|") + `)\*\*:\s*(.*)$`)
}

// Parse extracts the ordered task set from the contents of a plan file.
// Sections without a recognized description-checkbox line are skipped
// entirely, matching the teacher's tolerant-parse-then-validate style.
func Parse(content string) (*TaskSet, error) {
	lines := strings.Split(content, "\n")

	set := &TaskSet{}
	var current *Task
	var haveCheckbox bool

	flush := func() {
		if current != nil && haveCheckbox {
			set.Tasks = append(set.Tasks, *current)
		}
		current = nil
		haveCheckbox = false
	}

	for _, line := range lines {
		if m := taskHeaderRE.FindStringSubmatch(line); m != nil {
			flush()

			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("parse task number in header %q: %w", line, err)
			}
			current = &Task{Number: n, Title: strings.TrimSpace(m[2])}
			continue
		}

		if current == nil {
			continue
		}

		if !haveCheckbox {
			if m := checkboxRE.FindStringSubmatch(line); m != nil {
				current.Done = m[1] == "x"
				current.Description = strings.TrimSpace(m[2])
				haveCheckbox = true
			}
			continue
		}

		if m := phaseRE.FindStringSubmatch(line); m != nil {
			phase, err := strconv.Atoi(strings.TrimSpace(m[1]))
			if err == nil {
				current.Phase = phase
			}
			continue
		}
		if m := dependsOnRE.FindStringSubmatch(line); m != nil {
			current.DependsOn = parseIntList(m[1])
			continue
		}
		if m := parallelWithRE.FindStringSubmatch(line); m != nil {
			current.ParallelWith = parseIntList(m[1])
			continue
		}
		if m := acceptanceRE.FindStringSubmatch(line); m != nil {
			current.Acceptance = strings.TrimSpace(m[1])
			continue
		}
		if m := filesRE.FindStringSubmatch(line); m != nil {
			current.Files = parseStringList(m[1])
			continue
		}
		if m := testRE.FindStringSubmatch(line); m != nil {
			current.Test = strings.TrimSpace(m[1])
			continue
		}
	}
	flush()

	return set, nil
}

// parseIntList splits a comma-separated field value into integers,
// skipping entries that don't parse rather than failing the whole parse —
// a malformed dependency list shouldn't sink an otherwise-valid task.
func parseIntList(s string) []int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func parseStringList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
