package definition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

func pong(context.Context, *cmd.Invocation) (cmd.Reply, error) {
	return cmd.Text("pong"), nil
}

func raw(file string, rec Record) Raw {
	return Raw{Path: "/commands/" + file + ".yaml", FileName: file, Record: rec}
}

func warningMessages(ws []Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Message)
	}
	return out
}

func TestValidate_AliasesFromSingleString(t *testing.T) {
	v := &Validator{Handlers: cmd.Handlers{"ping": {Callback: pong}}}

	res, err := v.Validate(raw("ping", Record{
		"aliases":     "p",
		"category":    "Utility",
		"description": "Replies with pong",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"ping", "p"}, res.Definition.Names)
	assert.True(t, res.Bound)
	assert.Empty(t, res.Warnings)
	assert.NotNil(t, res.Definition.Callback)
}

func TestValidate_NamesMerged(t *testing.T) {
	v := &Validator{}
	res, err := v.Validate(raw("file", Record{
		"name":        "Ban",
		"commands":    []any{"hammer", "BAN"},
		"aliases":     []any{"b", "Hammer"},
		"category":    "Mod",
		"description": "ban",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"hammer", "ban", "b"}, res.Definition.Names)
}

func TestValidate_ListedNameKeepsPosition(t *testing.T) {
	v := &Validator{}
	res, err := v.Validate(raw("ban", Record{
		"name":        "ban",
		"aliases":     []any{"hammer", "ban"},
		"category":    "Mod",
		"description": "ban",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"hammer", "ban"}, res.Definition.Names)
	assert.Equal(t, "hammer", res.Definition.Name())

	res, err = v.Validate(raw("kick", Record{
		"name":        "kick",
		"aliases":     []any{"boot"},
		"category":    "Mod",
		"description": "kick",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"kick", "boot"}, res.Definition.Names)
}

func TestValidate_MissingCategoryWarns(t *testing.T) {
	v := &Validator{Handlers: cmd.Handlers{}, SuppressWarnings: true}

	res, err := v.Validate(raw("ping", Record{
		"description": "Replies with pong",
		"callback":    cmd.Callback(pong),
	}))
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "ping", res.Warnings[0].Command)
	assert.Contains(t, res.Warnings[0].Message, "Category")
	assert.NotContains(t, res.Warnings[0].Message, "Description")
}

func TestValidate_SynthesizesOptions(t *testing.T) {
	v := &Validator{}

	res, err := v.Validate(raw("kick", Record{
		"category":     "Mod",
		"description":  "Kick a member",
		"slash":        true,
		"expectedArgs": "<user> [reason]",
		"minArgs":      uint64(1),
	}))
	require.NoError(t, err)

	assert.Equal(t, cmd.StructuredOnly, res.Definition.Mode)
	assert.Equal(t, []cmd.OptionSpec{
		{Name: "user", Description: "user", Type: cmd.TypeString, Required: true},
		{Name: "reason", Description: "reason", Type: cmd.TypeString, Required: false},
	}, res.Definition.Options)
}

func TestValidate_NormalizesExplicitOptions(t *testing.T) {
	v := &Validator{}

	res, err := v.Validate(raw("ban", Record{
		"category":    "Mod",
		"description": "Ban a member",
		"slash":       "both",
		"options": []any{
			Record{"name": "Target User", "type": "user", "required": true},
			map[string]any{"name": "reason", "description": "why"},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, cmd.Both, res.Definition.Mode)
	assert.Equal(t, []cmd.OptionSpec{
		{Name: "target_user", Description: "Target User", Type: cmd.TypeUser, Required: true},
		{Name: "reason", Description: "why", Type: cmd.TypeString},
	}, res.Definition.Options)

	msgs := warningMessages(res.Warnings)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "lower case")
	assert.Contains(t, msgs[1], "white space")
}

func TestValidate_RenamedOptionKeepsOwnDescription(t *testing.T) {
	v := &Validator{SuppressWarnings: true}
	res, err := v.Validate(raw("ban", Record{
		"category":    "Mod",
		"description": "Ban a user",
		"slash":       true,
		"options": []any{
			Record{"name": "Target User", "description": "Who to ban", "type": "USER"},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, []cmd.OptionSpec{
		{Name: "target_user", Description: "Who to ban", Type: cmd.TypeUser},
	}, res.Definition.Options)

	msgs := warningMessages(res.Warnings)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Contains(t, m, `"Target User"`)
		assert.Contains(t, m, `"target_user"`)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		file string
		want error
	}{
		{
			name: "legacy run",
			rec:  Record{"run": "x", "description": "d"},
			file: "old",
			want: cmd.ErrLegacyCallback,
		},
		{
			name: "legacy execute",
			rec:  Record{"execute": "x"},
			file: "old",
			want: cmd.ErrLegacyCallback,
		},
		{
			name: "no name at all",
			rec:  Record{"description": "d"},
			want: cmd.ErrMissingName,
		},
		{
			name: "bad slash value",
			rec:  Record{"slash": "yes", "description": "d"},
			file: "x",
			want: cmd.ErrInvalidStructuredMode,
		},
		{
			name: "options on text command",
			rec:  Record{"description": "d", "options": []any{Record{"name": "a"}}},
			file: "x",
			want: cmd.ErrOptionsWithoutStructured,
		},
		{
			name: "slash without description",
			rec:  Record{"slash": true},
			file: "x",
			want: cmd.ErrMissingDescription,
		},
		{
			name: "minArgs without pattern",
			rec:  Record{"slash": true, "description": "d", "minArgs": 1},
			file: "x",
			want: cmd.ErrMinArgsWithoutPattern,
		},
		{
			name: "min greater than max",
			rec:  Record{"description": "d", "minArgs": 3, "maxArgs": 1},
			file: "x",
			want: cmd.ErrInvalidField,
		},
		{
			name: "unknown arg type",
			rec:  Record{"description": "d", "expectedArgsTypes": []any{"WIDGET"}},
			file: "x",
			want: cmd.ErrInvalidField,
		},
		{
			name: "callback of wrong type",
			rec:  Record{"description": "d", "callback": 42},
			file: "x",
			want: cmd.ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Validator{}).Validate(raw(tt.file, tt.rec))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var cfgErr *cmd.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestValidate_TestOnlyWithoutServersWarns(t *testing.T) {
	res, err := (&Validator{}).Validate(raw("secret", Record{
		"category": "Dev", "description": "d", "testOnly": true,
	}))
	require.NoError(t, err)
	assert.True(t, res.Definition.TestOnly)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "no test servers")

	res, err = (&Validator{TestServers: []string{"g1"}}).Validate(raw("secret", Record{
		"category": "Dev", "description": "d", "testOnly": true,
	}))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

func TestValidate_BindsHandlersByKey(t *testing.T) {
	var inited bool
	handlers := cmd.Handlers{
		"shared-pong": {Callback: pong},
		"on-error":    {Error: func(context.Context, *cmd.ErrorInfo) {}},
		"setup": {Init: func(context.Context, *cmd.Env) error {
			inited = true
			return nil
		}},
	}
	v := &Validator{Handlers: handlers}

	res, err := v.Validate(raw("ping", Record{
		"category": "Utility", "description": "d",
		"callback": "shared-pong", "error": "on-error", "init": "setup",
	}))
	require.NoError(t, err)
	assert.True(t, res.Bound)
	assert.NotNil(t, res.Definition.ErrorHandler)
	require.NotNil(t, res.Definition.Init)
	require.NoError(t, res.Definition.Init(context.Background(), &cmd.Env{}))
	assert.True(t, inited)
}

func TestValidate_UnboundWarns(t *testing.T) {
	v := &Validator{Handlers: cmd.Handlers{}}

	res, err := v.Validate(raw("ping", Record{
		"category": "Utility", "description": "d", "callback": "missing",
	}))
	require.NoError(t, err)
	assert.False(t, res.Bound)
	assert.Nil(t, res.Definition.Callback)

	msgs := warningMessages(res.Warnings)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], `"missing" is not registered`)
	assert.Contains(t, msgs[1], "no callback")
}
