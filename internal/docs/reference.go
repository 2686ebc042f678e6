// Package docs renders a Markdown command reference.
package docs

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/keshon/dispatchkit/internal/config"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

// DefaultTemplate wraps the generated sections when no template is given.
const DefaultTemplate = "# Commands\n\n{{.CommandSections}}"

// Sort orders commands by category weight, then by name.
func Sort(commands []*cmd.Command) {
	sort.SliceStable(commands, func(i, j int) bool {
		wi, wj := config.CategoryWeight(commands[i].Category()), config.CategoryWeight(commands[j].Category())
		if wi != wj {
			return wi < wj
		}
		if commands[i].Category() != commands[j].Category() {
			return commands[i].Category() < commands[j].Category()
		}
		return commands[i].Name() < commands[j].Name()
	})
}

// Sections renders one "### Category" block per category.
func Sections(commands []*cmd.Command, prefix string) string {
	sorted := append([]*cmd.Command(nil), commands...)
	Sort(sorted)

	var buf bytes.Buffer
	current := ""
	for i, c := range sorted {
		cat := c.Category()
		if cat == "" {
			cat = "Other"
		}
		if i == 0 || cat != current {
			if i > 0 {
				buf.WriteString("\n")
			}
			current = cat
			fmt.Fprintf(&buf, "### %s\n\n", current)
		}
		fmt.Fprintf(&buf, "- **%s** %s\n", usage(c, prefix), c.Description())
		if aliases := c.Aliases(); len(aliases) > 1 {
			fmt.Fprintf(&buf, "  - aliases: %s\n", strings.Join(aliases[1:], ", "))
		}
	}
	return buf.String()
}

func usage(c *cmd.Command, prefix string) string {
	var forms []string
	if c.Mode().Text() {
		forms = append(forms, prefix+c.Name())
	}
	if c.Mode().Structured() {
		forms = append(forms, "/"+c.Name())
	}
	out := strings.Join(forms, " | ")
	if args := c.ExpectedArgs(); args != "" {
		out += " " + args
	}
	return out
}

// Write executes tmpl with the rendered sections as .CommandSections. An empty
// tmpl uses DefaultTemplate.
func Write(w io.Writer, tmpl string, commands []*cmd.Command, prefix string) error {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	t, err := template.New("reference").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	data := struct {
		CommandSections string
	}{
		CommandSections: Sections(commands, prefix),
	}
	return t.Execute(w, data)
}
