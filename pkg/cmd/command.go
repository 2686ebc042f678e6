// Package cmd provides a transport-agnostic command core: a command is a validated
// definition plus the aliases it answers to. How it is registered with a platform
// and how inbound events reach it are defined by adapters that use these types.
package cmd

import (
	"context"
	"fmt"
	"strings"
)

// TypeTag is the value type of a structured option.
type TypeTag string

const (
	TypeString      TypeTag = "STRING"
	TypeInteger     TypeTag = "INTEGER"
	TypeNumber      TypeTag = "NUMBER"
	TypeBoolean     TypeTag = "BOOLEAN"
	TypeUser        TypeTag = "USER"
	TypeChannel     TypeTag = "CHANNEL"
	TypeRole        TypeTag = "ROLE"
	TypeMentionable TypeTag = "MENTIONABLE"
	TypeAttachment  TypeTag = "ATTACHMENT"
)

var knownTypes = map[TypeTag]struct{}{
	TypeString: {}, TypeInteger: {}, TypeNumber: {}, TypeBoolean: {}, TypeUser: {},
	TypeChannel: {}, TypeRole: {}, TypeMentionable: {}, TypeAttachment: {},
}

// ParseTypeTag parses a type tag case-insensitively.
func ParseTypeTag(s string) (TypeTag, error) {
	t := TypeTag(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownTypes[t]; !ok {
		return "", fmt.Errorf("unknown option type %q", s)
	}
	return t, nil
}

// StructuredMode tells on which surfaces a command is exposed.
type StructuredMode int

const (
	// TextOnly commands are triggered by prefixed chat messages only.
	TextOnly StructuredMode = iota
	// StructuredOnly commands are platform-native (slash) commands only.
	StructuredOnly
	// Both exposes the command as a text and a structured command.
	Both
)

func (m StructuredMode) String() string {
	switch m {
	case StructuredOnly:
		return "structured"
	case Both:
		return "both"
	default:
		return "text"
	}
}

// Structured reports whether the command is registered with the platform.
func (m StructuredMode) Structured() bool { return m != TextOnly }

// Text reports whether the command may be triggered by a chat message.
func (m StructuredMode) Text() bool { return m != StructuredOnly }

// OptionSpec is one typed, named parameter of a structured command.
type OptionSpec struct {
	Name        string
	Description string
	Type        TypeTag
	Required    bool
}

// Callback runs a command. The returned Reply decides what is sent back.
type Callback func(ctx context.Context, inv *Invocation) (Reply, error)

// ErrorHandler receives failures of a callback or of its reply delivery.
type ErrorHandler func(ctx context.Context, info *ErrorInfo)

// InitFunc runs once when the definition is registered.
type InitFunc func(ctx context.Context, env *Env) error

// Handler bundles the code side of a definition.
type Handler struct {
	Callback Callback
	Error    ErrorHandler
	Init     InitFunc
}

// Handlers maps handler keys referenced from definition files to code.
type Handlers map[string]Handler

// ErrorInfo describes a failed dispatch.
type ErrorInfo struct {
	Command    string
	Message    any // raw platform message or interaction
	Invocation *Invocation
	Err        error
	Info       map[string]any
}

// Definition is the validated, immutable description of one command.
type Definition struct {
	Names            []string
	Category         string
	Description      string
	Callback         Callback
	ErrorHandler     ErrorHandler
	Init             InitFunc
	GuildOnly        bool
	TestOnly         bool
	OwnerOnly        bool
	Mode             StructuredMode
	ExpectedArgs     string
	ExpectedArgTypes []TypeTag
	MinArgs          *int
	MaxArgs          *int
	Options          []OptionSpec
	Source           string
}

// Name returns the canonical name.
func (d *Definition) Name() string {
	if len(d.Names) == 0 {
		return ""
	}
	return d.Names[0]
}

// Command is a registered definition and the aliases it is keyed under.
type Command struct {
	def     Definition
	aliases []string
}

// NewCommand builds a Command. Aliases are the definition names, lower-cased.
func NewCommand(def Definition) *Command {
	aliases := make([]string, 0, len(def.Names))
	for _, n := range def.Names {
		aliases = append(aliases, strings.ToLower(n))
	}
	def.Names = append([]string(nil), def.Names...)
	def.Options = append([]OptionSpec(nil), def.Options...)
	return &Command{def: def, aliases: aliases}
}

func (c *Command) Name() string               { return c.def.Name() }
func (c *Command) Aliases() []string          { return append([]string(nil), c.aliases...) }
func (c *Command) Category() string           { return c.def.Category }
func (c *Command) Description() string        { return c.def.Description }
func (c *Command) Mode() StructuredMode       { return c.def.Mode }
func (c *Command) Options() []OptionSpec      { return append([]OptionSpec(nil), c.def.Options...) }
func (c *Command) ExpectedArgs() string       { return c.def.ExpectedArgs }
func (c *Command) GuildOnly() bool            { return c.def.GuildOnly }
func (c *Command) TestOnly() bool             { return c.def.TestOnly }
func (c *Command) OwnerOnly() bool            { return c.def.OwnerOnly }
func (c *Command) Callback() Callback         { return c.def.Callback }
func (c *Command) ErrorHandler() ErrorHandler { return c.def.ErrorHandler }

// ArgBounds returns the minimum and maximum argument counts; -1 means unbounded.
func (c *Command) ArgBounds() (min, max int) {
	min, max = -1, -1
	if c.def.MinArgs != nil {
		min = *c.def.MinArgs
	}
	if c.def.MaxArgs != nil {
		max = *c.def.MaxArgs
	}
	return min, max
}

// Definition returns a copy of the underlying definition.
func (c *Command) Definition() Definition {
	d := c.def
	d.Names = append([]string(nil), c.def.Names...)
	d.Options = append([]OptionSpec(nil), c.def.Options...)
	return d
}
