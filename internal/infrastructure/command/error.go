package command

import "fmt"

// Error is a failed external invocation with its captured output.
type Error struct {
	Op     string
	Result Result
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	tail := e.Result.StderrTail()
	if tail == "" {
		return fmt.Sprintf("%s (exit=%d): %v", e.Op, e.Result.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s (exit=%d): %s", e.Op, e.Result.ExitCode, tail)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
