package scripts

import (
	"fmt"
	"strings"
)

const maxStderrTail = 300

// ScriptError describes a failed script run. Stderr holds the end of the
// script's error output, which is usually where Python puts the exception.
type ScriptError struct {
	Script  string
	Message string
	Stderr  string
	Err     error
}

func (e *ScriptError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Script, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, " (stderr: %s)", e.Stderr)
	}
	return b.String()
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func newScriptError(script string, err error, message, stderr string) *ScriptError {
	return &ScriptError{
		Script:  script,
		Message: message,
		Stderr:  stderrTail(stderr),
		Err:     err,
	}
}

// stderrTail keeps the last maxStderrTail bytes, starting on a line boundary
// when one is available.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxStderrTail {
		return s
	}
	s = s[len(s)-maxStderrTail:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return "..." + s
}
