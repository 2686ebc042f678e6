package definition

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// Extensions per source format.
var (
	YAMLExtensions = []string{".yaml", ".yml", ".json"}
	HCLExtensions  = []string{".hcl"}
)

// Decode parses a definition file. The format is picked by extension.
func Decode(path string, data []byte) (Record, error) {
	var (
		rec Record
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		rec, err = decodeHCL(path, data)
	default:
		rec, err = decodeYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cmd.ErrDecode, err)
	}
	return unwrapDefault(rec), nil
}

func decodeYAML(data []byte) (Record, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return normalize(m).(Record), nil
}

// normalize converts nested maps into Record so later stages see one map type.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(Record, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(Record, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	}
	return v
}

// unwrapDefault lifts the value of a lone "default" key, so files written as
// `default: {...}` and plain files look the same.
func unwrapDefault(r Record) Record {
	if len(r) != 1 {
		return r
	}
	if inner, ok := asRecord(r["default"]); ok {
		return inner
	}
	return r
}

func decodeHCL(path string, data []byte) (Record, error) {
	file, diags := hclsyntax.ParseConfig(data, path, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	out := make(Record, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = native
	}
	return out, nil
}

// ctyToNative converts a cty.Value to plain Go values.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return int(i), nil
		}
		f, _ := bf.Float64()
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, el := it.Element()
			n, err := ctyToNative(el)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(Record)
		it := v.ElementIterator()
		for it.Next() {
			k, el := it.Element()
			n, err := ctyToNative(el)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", k.AsString(), err)
			}
			out[k.AsString()] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
}
