package llm

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrMissingConfig is matched by MissingConfigError.
	ErrMissingConfig = eris.New("llm: missing configuration")

	// ErrNoSupportedClient is returned for an unknown provider name.
	ErrNoSupportedClient = eris.New("llm: no supported client")
)

// MissingConfigError lists the settings a provider needs but does not have.
type MissingConfigError struct {
	Provider string
	Vars     []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("llm: missing configuration for %s: %s", e.Provider, strings.Join(e.Vars, ", "))
}

func (e *MissingConfigError) Unwrap() error { return ErrMissingConfig }

// CallError is returned by Gateway.Call once every attempt has failed.
type CallError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("llm: %s call failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
