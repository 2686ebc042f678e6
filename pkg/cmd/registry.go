package cmd

import (
	"sort"
	"strings"
	"sync"
)

// Collision records an alias that was re-pointed at another command.
type Collision struct {
	Alias    string
	Previous string
	Current  string
}

// Registry maps lower-cased aliases to commands. Registering an alias that is
// already present overwrites it; the last registration wins.
type Registry struct {
	mu         sync.RWMutex
	commands   map[string]*Command
	collisions []Collision
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register keys c under every alias and returns the collisions it caused.
func (r *Registry) Register(aliases []string, c *Command) []Collision {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Collision
	for _, a := range aliases {
		key := strings.ToLower(a)
		if prev, ok := r.commands[key]; ok && prev != c {
			out = append(out, Collision{Alias: key, Previous: prev.Name(), Current: c.Name()})
		}
		r.commands[key] = c
	}
	r.collisions = append(r.collisions, out...)
	return out
}

// Lookup returns the command for alias, case-insensitively.
func (r *Registry) Lookup(alias string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[strings.ToLower(alias)]
	return c, ok
}

// Commands returns every distinct command, sorted by name.
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[*Command]bool, len(r.commands))
	list := make([]*Command, 0, len(r.commands))
	for _, c := range r.commands {
		if seen[c] {
			continue
		}
		seen[c] = true
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// Collisions returns every alias overwrite seen so far.
func (r *Registry) Collisions() []Collision {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Collision(nil), r.collisions...)
}

// Len returns the number of aliases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
