package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TaskRef is a 1-based position on the displayed page.
type TaskRef struct {
	Pos int
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the task reference in args[0].
// A reference is the number printed next to the task, optionally prefixed
// with '#'. Zero is out of range.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	raw := strings.TrimPrefix(strings.TrimSpace(args[0]), "#")
	if !isAllDigits(raw) {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", args[0])
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", args[0])
	}
	if n < 1 {
		return TaskRef{}, fmt.Errorf("task number out of range: %d", n)
	}
	return TaskRef{Pos: n}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
