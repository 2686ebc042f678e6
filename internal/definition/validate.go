package definition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// Warning is a non-fatal finding about a definition.
type Warning struct {
	Command string
	Source  string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("command %q: %s", w.Command, w.Message)
}

// Result is a validated definition plus what was noticed along the way.
type Result struct {
	Definition cmd.Definition
	Warnings   []Warning
	// Bound is false when no callback could be resolved; the command is then
	// registered with the platform but not dispatchable.
	Bound bool
}

// Validator turns raw records into definitions.
type Validator struct {
	// Handlers resolves string references in "callback", "error" and "init".
	// When nil, handlers are not bound and no binding warnings are emitted.
	Handlers         cmd.Handlers
	TestServers      []string
	SuppressWarnings bool
	Logger           *slog.Logger
}

type validation struct {
	v      *Validator
	raw    Raw
	name   string
	result *Result
}

func (s *validation) warn(format string, args ...any) {
	w := Warning{Command: s.name, Source: s.raw.Path, Message: fmt.Sprintf(format, args...)}
	s.result.Warnings = append(s.result.Warnings, w)
	if !s.v.SuppressWarnings && s.v.Logger != nil {
		s.v.Logger.Warn(w.Message, "command", w.Command, "source", w.Source)
	}
}

func (s *validation) fail(err error) error {
	return &cmd.ConfigurationError{Command: s.name, Source: s.raw.Path, Err: err}
}

// Validate checks raw and produces a definition, synthesizing options from
// "expectedArgs" when a slash command has none.
func (v *Validator) Validate(raw Raw) (*Result, error) {
	rec := raw.Record
	s := &validation{v: v, raw: raw, result: &Result{}}

	if rec.has("run") || rec.has("execute") {
		return nil, s.fail(cmd.ErrLegacyCallback)
	}

	name, err := rec.str("name")
	if err != nil {
		return nil, s.fail(err)
	}
	if name == "" {
		name = raw.FileName
	}

	var names []string
	for _, key := range []string{"names", "commands", "aliases"} {
		list, err := rec.strList(key)
		if err != nil {
			return nil, s.fail(err)
		}
		names = append(names, list...)
	}
	names = dedupe(names)
	if name == "" && len(names) == 0 {
		return nil, s.fail(cmd.ErrMissingName)
	}
	if name != "" {
		names = withCanonical(strings.ToLower(name), names)
	}
	s.name = names[0]

	def := cmd.Definition{Names: names, Source: raw.Path}
	if def.Category, err = rec.str("category"); err != nil {
		return nil, s.fail(err)
	}
	if def.Description, err = rec.str("description"); err != nil {
		return nil, s.fail(err)
	}

	var missing []string
	if def.Category == "" {
		missing = append(missing, "Category")
	}
	if def.Description == "" {
		missing = append(missing, "Description")
	}
	if len(missing) > 0 {
		s.warn("does not have the following properties: %s", strings.Join(missing, ", "))
	}

	for _, flag := range []struct {
		key string
		dst *bool
	}{
		{"guildOnly", &def.GuildOnly},
		{"testOnly", &def.TestOnly},
		{"ownerOnly", &def.OwnerOnly},
	} {
		if *flag.dst, err = rec.boolean(flag.key); err != nil {
			return nil, s.fail(err)
		}
	}
	if def.TestOnly && len(v.TestServers) == 0 {
		s.warn(`has "testOnly" set to true, but no test servers are defined`)
	}

	if def.Mode, err = parseMode(rec["slash"]); err != nil {
		return nil, s.fail(err)
	}

	options, err := rec.list("options")
	if err != nil {
		return nil, s.fail(err)
	}
	if len(options) > 0 && !def.Mode.Structured() {
		return nil, s.fail(cmd.ErrOptionsWithoutStructured)
	}

	if def.ExpectedArgs, err = rec.str("expectedArgs"); err != nil {
		return nil, s.fail(err)
	}
	if def.MinArgs, err = rec.optInt("minArgs"); err != nil {
		return nil, s.fail(err)
	}
	if def.MaxArgs, err = rec.optInt("maxArgs"); err != nil {
		return nil, s.fail(err)
	}
	if def.MinArgs != nil && def.MaxArgs != nil && *def.MinArgs > *def.MaxArgs {
		return nil, s.fail(fmt.Errorf(`%w: "minArgs" (%d) is greater than "maxArgs" (%d)`,
			cmd.ErrInvalidField, *def.MinArgs, *def.MaxArgs))
	}
	typeNames, err := rec.strList("expectedArgsTypes")
	if err != nil {
		return nil, s.fail(err)
	}
	for _, tn := range typeNames {
		tag, err := cmd.ParseTypeTag(tn)
		if err != nil {
			return nil, s.fail(fmt.Errorf("%w: expectedArgsTypes: %v", cmd.ErrInvalidField, err))
		}
		def.ExpectedArgTypes = append(def.ExpectedArgTypes, tag)
	}

	if def.Mode.Structured() {
		if def.Description == "" {
			return nil, s.fail(cmd.ErrMissingDescription)
		}
		if def.MinArgs != nil && def.ExpectedArgs == "" {
			return nil, s.fail(cmd.ErrMinArgsWithoutPattern)
		}
		if len(options) > 0 {
			if def.Options, err = s.explicitOptions(options); err != nil {
				return nil, s.fail(err)
			}
		} else if def.ExpectedArgs != "" {
			def.Options = SynthesizeOptions(def.ExpectedArgs, def.ExpectedArgTypes, def.MinArgs)
		}
	}

	if err := s.bind(&def); err != nil {
		return nil, s.fail(err)
	}

	s.result.Definition = def
	return s.result, nil
}

func (s *validation) explicitOptions(items []any) ([]cmd.OptionSpec, error) {
	out := make([]cmd.OptionSpec, 0, len(items))
	for i, item := range items {
		rec, ok := asRecord(item)
		if !ok {
			return nil, fmt.Errorf("%w: options[%d] must be a map, got %T", cmd.ErrInvalidField, i, item)
		}
		original, err := rec.str("name")
		if err != nil || original == "" {
			return nil, fmt.Errorf("%w: options[%d] needs a name", cmd.ErrInvalidField, i)
		}
		desc, err := rec.str("description")
		if err != nil {
			return nil, err
		}
		typeName, err := rec.str("type")
		if err != nil {
			return nil, err
		}
		typ := cmd.TypeString
		if typeName != "" {
			if typ, err = cmd.ParseTypeTag(typeName); err != nil {
				return nil, fmt.Errorf("%w: options[%d]: %v", cmd.ErrInvalidField, i, err)
			}
		}
		required, err := rec.boolean("required")
		if err != nil {
			return nil, err
		}

		name, lowered, spaced := NormalizeOptionName(original)
		if lowered {
			s.warn("has an option of %q. All option names must be lower case for slash commands, it was changed to %q", original, name)
		}
		if spaced {
			s.warn("has an option of %q with a white space in it. Option names should be one word, it was changed to %q", original, name)
		}
		if desc == "" {
			desc = original
		}
		out = append(out, cmd.OptionSpec{Name: name, Description: desc, Type: typ, Required: required})
	}
	return out, nil
}

func (s *validation) bind(def *cmd.Definition) error {
	rec := s.raw.Record
	byName, hasByName := s.v.Handlers[def.Name()]

	cb, err := s.resolveCallback(rec["callback"])
	if err != nil {
		return err
	}
	if cb == nil && !rec.has("callback") && hasByName {
		cb = byName.Callback
	}
	def.Callback = cb

	eh, err := s.resolveErrorHandler(rec["error"])
	if err != nil {
		return err
	}
	if eh == nil && !rec.has("error") && hasByName {
		eh = byName.Error
	}
	def.ErrorHandler = eh

	in, err := s.resolveInit(rec["init"])
	if err != nil {
		return err
	}
	if in == nil && !rec.has("init") && hasByName {
		in = byName.Init
	}
	def.Init = in

	s.result.Bound = def.Callback != nil
	if !s.result.Bound && s.v.Handlers != nil {
		s.warn("has no callback, it will not respond to invocations")
	}
	return nil
}

func (s *validation) lookup(key, field string) cmd.Handler {
	if s.v.Handlers == nil {
		return cmd.Handler{}
	}
	h, ok := s.v.Handlers[key]
	if !ok {
		s.warn("%s handler %q is not registered", field, key)
	}
	return h
}

func (s *validation) resolveCallback(v any) (cmd.Callback, error) {
	switch f := v.(type) {
	case nil:
		return nil, nil
	case cmd.Callback:
		return f, nil
	case func(context.Context, *cmd.Invocation) (cmd.Reply, error):
		return f, nil
	case string:
		return s.lookup(f, "callback").Callback, nil
	}
	return nil, fmt.Errorf("%w: \"callback\" must be a function or a handler name, got %T", cmd.ErrInvalidField, v)
}

func (s *validation) resolveErrorHandler(v any) (cmd.ErrorHandler, error) {
	switch f := v.(type) {
	case nil:
		return nil, nil
	case cmd.ErrorHandler:
		return f, nil
	case func(context.Context, *cmd.ErrorInfo):
		return f, nil
	case string:
		return s.lookup(f, "error").Error, nil
	}
	return nil, fmt.Errorf("%w: \"error\" must be a function or a handler name, got %T", cmd.ErrInvalidField, v)
}

func (s *validation) resolveInit(v any) (cmd.InitFunc, error) {
	switch f := v.(type) {
	case nil:
		return nil, nil
	case cmd.InitFunc:
		return f, nil
	case func(context.Context, *cmd.Env) error:
		return f, nil
	case string:
		return s.lookup(f, "init").Init, nil
	}
	return nil, fmt.Errorf("%w: \"init\" must be a function or a handler name, got %T", cmd.ErrInvalidField, v)
}

// parseMode maps the "slash" field: absent or false is text only, true is
// slash only, "both" is both.
func parseMode(v any) (cmd.StructuredMode, error) {
	switch t := v.(type) {
	case nil:
		return cmd.TextOnly, nil
	case bool:
		if t {
			return cmd.StructuredOnly, nil
		}
		return cmd.TextOnly, nil
	case string:
		if t == "both" {
			return cmd.Both, nil
		}
	case cmd.StructuredMode:
		return t, nil
	}
	return cmd.TextOnly, cmd.ErrInvalidStructuredMode
}

// withCanonical prepends name unless it is already listed, in which case the
// list keeps its order and that entry takes the canonical spelling.
func withCanonical(name string, names []string) []string {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			out := append([]string(nil), names...)
			out[i] = name
			return out
		}
	}
	return append([]string{name}, names...)
}
