// Package definition turns command definition files into validated cmd.Definition
// values: discovery, decoding, validation and option synthesis.
package definition

import (
	"fmt"
	"math"
	"strings"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// Record is one decoded definition, keyed by field name.
type Record map[string]any

// Raw is a record plus where it came from.
type Raw struct {
	Path     string
	FileName string // fallback command name, without extension
	Record   Record
}

func (r Record) has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

func (r Record) str(key string) (string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", cmd.ErrInvalidField, key, v)
	}
	return s, nil
}

func (r Record) boolean(key string) (bool, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q must be a boolean, got %T", cmd.ErrInvalidField, key, v)
	}
	return b, nil
}

func (r Record) optInt(key string) (*int, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := toInt(v)
	if !ok || n < 0 {
		return nil, fmt.Errorf("%w: %q must be a non-negative integer, got %v", cmd.ErrInvalidField, key, v)
	}
	return &n, nil
}

// strList accepts a single string or a list of strings.
func (r Record) strList(key string) ([]string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %q must only contain strings, got %T", cmd.ErrInvalidField, key, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q must be a string or a list of strings, got %T", cmd.ErrInvalidField, key, v)
}

func (r Record) list(key string) ([]any, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []any:
		return t, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, nil
	case []Record:
		out := make([]any, len(t))
		for i := range t {
			out[i] = map[string]any(t[i])
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q must be a list, got %T", cmd.ErrInvalidField, key, v)
}

func asRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case Record:
		return t, true
	case map[string]any:
		return Record(t), true
	case map[any]any:
		out := make(Record, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

// toInt accepts any integral number that fits in int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n > math.MaxInt || n < math.MinInt {
			return 0, false
		}
		return int(n), true
	case uint:
		return fitUint(uint64(n))
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return fitUint(uint64(n))
	case uint64:
		return fitUint(n)
	case float64:
		return fitFloat(n)
	case float32:
		return fitFloat(float64(n))
	}
	return 0, false
}

func fitUint(n uint64) (int, bool) {
	if n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func fitFloat(f float64) (int, bool) {
	if f != math.Trunc(f) || f >= math.MaxInt || f < math.MinInt {
		return 0, false
	}
	return int(f), true
}

// dedupe keeps the first occurrence of each name, compared case-insensitively.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
