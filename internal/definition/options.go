package definition

import (
	"regexp"
	"strings"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// argBoundary matches the gap between two bracket groups: "> <", "] [", "> [", "] <".
var argBoundary = regexp.MustCompile(`[>\]] [<\[]`)

// SynthesizeOptions derives structured options from a pattern such as
// "<user> [reason]". Positional order in the pattern is the option order.
// Arguments before minArgs are required.
func SynthesizeOptions(pattern string, types []cmd.TypeTag, minArgs *int) []cmd.OptionSpec {
	pattern = strings.TrimSpace(pattern)
	if len(pattern) < 2 {
		return nil
	}
	inner := pattern[1 : len(pattern)-1]
	if strings.TrimSpace(inner) == "" {
		return nil
	}

	min := 0
	if minArgs != nil {
		min = *minArgs
	}

	tokens := argBoundary.Split(inner, -1)
	opts := make([]cmd.OptionSpec, 0, len(tokens))
	for i, tok := range tokens {
		typ := cmd.TypeString
		if i < len(types) && types[i] != "" {
			typ = types[i]
		}
		opts = append(opts, cmd.OptionSpec{
			Name:        strings.ToLower(strings.ReplaceAll(tok, " ", "-")),
			Description: tok,
			Type:        typ,
			Required:    i < min,
		})
	}
	return opts
}

var whitespace = regexp.MustCompile(`\s`)

// NormalizeOptionName lower-cases name and replaces whitespace with "_".
// lowered and spaced report which change was made.
func NormalizeOptionName(name string) (normalized string, lowered, spaced bool) {
	normalized = strings.ToLower(name)
	lowered = normalized != name
	if whitespace.MatchString(normalized) {
		normalized = whitespace.ReplaceAllString(normalized, "_")
		spaced = true
	}
	return normalized, lowered, spaced
}
