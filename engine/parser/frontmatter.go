package parser

import (
	"regexp"

	"github.com/goccy/go-yaml"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/ferrors"
	"github.com/flowscript/flowscript/engine/sourcemap"
)

// versionPattern is the anchored semver X.Y[.Z] law of §8: accepts exactly
// strings matching this pattern, rejecting prerelease/build suffixes, a
// "v" prefix, single-number versions, and non-numeric parts.
var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+(\.[0-9]+)?$`)

// IsValidVersion reports whether s satisfies the version-acceptance law.
func IsValidVersion(s string) bool {
	return versionPattern.MatchString(s)
}

// rawMetadata mirrors the frontmatter's YAML shape before normalization;
// fields use `any` where the source can be written in more than one form
// (e.g. trigger as a bare string or an object).
type rawMetadata struct {
	Name        string         `yaml:"name"`
	Version     string         `yaml:"version"`
	Description string         `yaml:"description"`
	Trigger     any            `yaml:"trigger"`
	Config      map[string]any `yaml:"config"`
	Secrets     []string       `yaml:"secrets"`
	Schemas     map[string]any `yaml:"schemas"`
	Evolution   map[string]any `yaml:"evolution"`
}

// parseFrontmatter decodes and validates the YAML frontmatter into a
// Metadata, using goccy/go-yaml (a safe decoder: it never executes
// arbitrary code, unlike YAML's !!python/object-style tags some parsers
// support).
func parseFrontmatter(text string, offset int, sm *sourcemap.Map) (ast.Metadata, error) {
	var raw rawMetadata
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		loc := sm.LocationFor(offset, offset+len(text))
		return ast.Metadata{}, ferrors.Wrap(ferrors.KindYamlInvalid, err, "invalid frontmatter YAML").WithLocation(loc)
	}

	var errs []error
	if raw.Name == "" {
		errs = append(errs, ferrors.New(ferrors.KindMissingRequiredField, "metadata.name is required"))
	}
	if raw.Version == "" {
		errs = append(errs, ferrors.New(ferrors.KindMissingRequiredField, "metadata.version is required"))
	} else if !IsValidVersion(raw.Version) {
		errs = append(errs, ferrors.New(ferrors.KindInvalidFieldType,
			"metadata.version must match X.Y or X.Y.Z"))
	}
	if len(errs) > 0 {
		loc := sm.LocationFor(offset, offset+len(text))
		return ast.Metadata{}, errs[0].(*ferrors.Error).WithLocation(loc)
	}

	md := ast.Metadata{
		Name:        raw.Name,
		Version:     raw.Version,
		Description: raw.Description,
		Secrets:     raw.Secrets,
		Schemas:     raw.Schemas,
	}
	md.Trigger = normalizeTrigger(raw.Trigger)
	md.Config = normalizeConfigFields(raw.Config)
	md.Evolution = normalizeEvolution(raw.Evolution)
	return md, nil
}

// normalizeTrigger accepts either a bare string ("manual") or an object
// ({type: manual, config: {...}}) and always returns object form.
func normalizeTrigger(raw any) *ast.Trigger {
	switch v := raw.(type) {
	case string:
		return &ast.Trigger{Type: ast.TriggerType(v)}
	case map[string]any:
		t := &ast.Trigger{}
		if typ, ok := v["type"].(string); ok {
			t.Type = ast.TriggerType(typ)
		}
		if cfg, ok := v["config"].(map[string]any); ok {
			t.Config = cfg
		}
		return t
	default:
		return nil
	}
}

// normalizeConfigFields discards malformed entries (missing/invalid type)
// rather than failing the whole parse, per §4.1.
func normalizeConfigFields(raw map[string]any) map[string]ast.ConfigField {
	if len(raw) == 0 {
		return nil
	}
	out := map[string]ast.ConfigField{}
	for name, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		typ, ok := m["type"].(string)
		if !ok {
			continue
		}
		switch ast.ConfigFieldType(typ) {
		case ast.ConfigTypeString, ast.ConfigTypeNumber, ast.ConfigTypeBoolean,
			ast.ConfigTypeObject, ast.ConfigTypeArray:
		default:
			continue
		}
		field := ast.ConfigField{Type: ast.ConfigFieldType(typ)}
		if d, ok := m["default"]; ok {
			field.Default = d
		}
		if r, ok := m["required"].(bool); ok {
			field.Required = r
		}
		if desc, ok := m["description"].(string); ok {
			field.Description = desc
		}
		out[name] = field
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeEvolution is only recognized when "generation" is set; fitness
// outside [0,1] is dropped, non-string learnings are filtered.
func normalizeEvolution(raw map[string]any) *ast.Evolution {
	if raw == nil {
		return nil
	}
	genRaw, ok := raw["generation"]
	if !ok {
		return nil
	}
	gen, ok := toInt(genRaw)
	if !ok {
		return nil
	}
	ev := &ast.Evolution{Generation: gen}
	if parent, ok := raw["parent"].(string); ok {
		ev.Parent = parent
	}
	if fitnessRaw, ok := raw["fitness"]; ok {
		if f, ok := toFloat(fitnessRaw); ok && f >= 0 && f <= 1 {
			ev.Fitness = &f
		}
	}
	if learningsRaw, ok := raw["learnings"].([]any); ok {
		for _, l := range learningsRaw {
			if s, ok := l.(string); ok {
				ev.Learnings = append(ev.Learnings, s)
			}
		}
	}
	return ev
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
