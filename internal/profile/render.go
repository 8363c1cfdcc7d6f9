package profile

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"arena/internal/engine"
)

// RenderEngine encodes an engine profile for the options an engine
// declared. Options holding a value are written as settings; the rest appear
// commented out with their default so the file documents what can be tuned.
// Buttons are omitted and declaration order is kept.
func RenderEngine(meta EngineMetadata, opts *engine.Options) (string, error) {
	if err := validate.Struct(&meta); err != nil {
		return "", fmt.Errorf("invalid engine metadata: %w", err)
	}

	head, err := marshalTable("engine", meta)
	if err != nil {
		return "", fmt.Errorf("failed to render profile: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(head)
	sb.WriteString("\n[options]\n")

	for name, opt := range opts.All() {
		line, err := renderOption(name, opt)
		if err != nil {
			return "", fmt.Errorf("failed to render option %q: %w", name, err)
		}
		if line == "" {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// renderOption writes one option as a key/value line, commented out unless
// it holds a value, followed by a hint about what the engine accepts.
// go-toml cannot emit comments, so only the key/value pair goes through it.
func renderOption(name string, opt engine.Option) (string, error) {
	_, set := opt.Current()
	prefix := "# "
	if set {
		prefix = ""
	}

	var (
		value any
		hint  string
	)
	switch o := opt.(type) {
	case *engine.CheckOption:
		value = deref(o.Value, o.Default)
		hint = fmt.Sprintf(" # true or false, default %t", o.Default)

	case *engine.SpinOption:
		value = deref(o.Value, o.Default)
		hint = fmt.Sprintf(" # between %d and %d, default %d", o.Min, o.Max, o.Default)

	case *engine.ComboOption:
		value = deref(o.Value, o.Default)
		vars := make([]string, len(o.Vars))
		for i, v := range o.Vars {
			s, err := tomlValue(v)
			if err != nil {
				return "", err
			}
			vars[i] = s
		}
		def, err := tomlValue(o.Default)
		if err != nil {
			return "", err
		}
		hint = fmt.Sprintf(" # default %s, can be one of %s", def, strings.Join(vars, ", "))

	case *engine.StringOption:
		value = deref(o.Value, o.Default)
		if set {
			def, err := tomlValue(o.Default)
			if err != nil {
				return "", err
			}
			hint = "\n# ^^^^ default " + def
		}

	default:
		return "", nil
	}

	kv, err := keyValue(name, value)
	if err != nil {
		return "", err
	}
	return prefix + kv + hint + "\n", nil
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// keyValue encodes a single `key = value` line, without the newline.
func keyValue(key string, value any) (string, error) {
	b, err := toml.Marshal(map[string]any{key: value})
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(b), "\n"), nil
}

// tomlValue encodes v as it would appear on the right of a key.
func tomlValue(v any) (string, error) {
	kv, err := keyValue("v", v)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(kv, "v = "), nil
}
