package executor

import (
	"errors"
	"strings"
)

// terminalError marks a failure that retrying cannot fix, e.g. an
// undercapitalized wallet. The cycle engine stops retrying on these instead
// of burning its budget.
type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal wraps err so IsTerminal reports true for it.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err is a failure that no retry can recover.
func IsTerminal(err error) bool {
	var te *terminalError
	if errors.As(err, &te) {
		return true
	}
	return isInsufficientFunds(err)
}

// isInsufficientFunds matches the error shapes the RPC node and the system
// program produce when a payer cannot cover lamports or fees.
func isInsufficientFunds(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "insufficient lamports") ||
		strings.Contains(msg, "insufficient funds")
}
