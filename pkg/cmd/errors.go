package cmd

import (
	"errors"
	"fmt"
)

var (
	ErrDirectoryNotFound        = errors.New("commands directory does not exist")
	ErrRelativeDirectory        = errors.New("commands directory must be an absolute path")
	ErrLegacyCallback           = errors.New(`has a "run" or "execute" function, rename it to "callback"`)
	ErrMissingName              = errors.New("no name, commands or aliases set")
	ErrInvalidStructuredMode    = errors.New(`"slash" must be boolean true or the string "both"`)
	ErrOptionsWithoutStructured = errors.New(`has "options" but is not a slash command`)
	ErrMissingDescription       = errors.New("a description is required for slash commands")
	ErrMinArgsWithoutPattern    = errors.New(`"minArgs" is set without "expectedArgs"`)
	ErrInvalidField             = errors.New("invalid field")
	ErrDecode                   = errors.New("failed to decode definition")
)

// ConfigurationError is fatal to one definition's load.
type ConfigurationError struct {
	Command string
	Source  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Command != "" && e.Source != "":
		return fmt.Sprintf("command %q (%s): %v", e.Command, e.Source, e.Err)
	case e.Command != "":
		return fmt.Sprintf("command %q: %v", e.Command, e.Err)
	case e.Source != "":
		return fmt.Sprintf("command located at %q: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// RegistrationError is fatal to one definition's structured registration.
type RegistrationError struct {
	Command string
	Scope   string
	Err     error
}

func (e *RegistrationError) Error() string {
	scope := e.Scope
	if scope == "" {
		scope = "global"
	}
	return fmt.Sprintf("register slash command %q (%s): %v", e.Command, scope, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// DispatchError is scoped to one dispatch.
type DispatchError struct {
	Command string
	Stage   string // "callback" or "reply"
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %q (%s): %v", e.Command, e.Stage, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
