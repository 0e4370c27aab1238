// ABOUTME: Process-wide default protocol metadata for agent records.
// ABOUTME: ApplyDefaults fills absent fields and never overrides caller values.

package roster

import "maps"

// Defaults holds the values merged into agents saved without their own
// protocol metadata.
type Defaults struct {
	// Context is the JSON-LD "@context" object. Used when the caller sends
	// no "@context".
	Context map[string]any `yaml:"context" toml:"context"`

	// SecurityDefinitions maps scheme names to descriptors. Used when the
	// caller sends no "securityDefinitions".
	SecurityDefinitions map[string]SecurityScheme `yaml:"security_definitions" toml:"security_definitions"`

	// Security lists the schemes that apply. Used when the caller sends no
	// "security".
	Security Security `yaml:"security" toml:"security"`
}

// BuiltinDefaults returns the defaults used when configuration supplies
// none: schema.org vocabulary with DID prefixes and a single DID-based
// authorization header scheme.
func BuiltinDefaults() Defaults {
	return Defaults{
		Context: map[string]any{
			"@vocab": "https://schema.org/",
			"did":    "https://w3id.org/did#",
			"ad":     "https://service.multiversity.ai/ad#",
		},
		SecurityDefinitions: map[string]SecurityScheme{
			"didwba_sc": {Scheme: "didwba", In: "header", Name: "Authorization"},
		},
		Security: Security{"didwba_sc"},
	}
}

// IsZero reports whether no default is configured at all.
func (d Defaults) IsZero() bool {
	return len(d.Context) == 0 && len(d.SecurityDefinitions) == 0 && len(d.Security) == 0
}

// ApplyDefaults returns a copy of input where "@context",
// "securityDefinitions" and "security" are filled from d when absent or
// null. Present values are kept as sent, and the input map is not modified.
func (d Defaults) ApplyDefaults(input map[string]any) map[string]any {
	out := make(map[string]any, len(input)+3)
	maps.Copy(out, input)

	if absent(out, FieldContext) && len(d.Context) > 0 {
		out[FieldContext] = cloneValue(d.Context)
	}
	if absent(out, FieldSecurityDefinitions) && len(d.SecurityDefinitions) > 0 {
		defs := make(map[string]any, len(d.SecurityDefinitions))
		for name, scheme := range d.SecurityDefinitions {
			defs[name] = map[string]any{
				"scheme": scheme.Scheme,
				"in":     scheme.In,
				"name":   scheme.Name,
			}
		}
		out[FieldSecurityDefinitions] = defs
	}
	if absent(out, FieldSecurity) && len(d.Security) > 0 {
		out[FieldSecurity] = d.Security.Value()
	}
	return out
}

func absent(doc map[string]any, key string) bool {
	v, ok := doc[key]
	return !ok || v == nil
}

// cloneValue deep-copies the map/slice shapes produced by JSON and YAML
// decoding so stored documents never alias the defaults.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
