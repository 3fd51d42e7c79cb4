package settings

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/oomph-ac/oflight/oerror"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a settings file.
type Format uint8

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatOf returns the format of a settings file based on its extension. Unknown extensions are TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load will load the settings from your settings file, and return an error if the file does not exist or
// is missing any threshold.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, oerror.New("error reading settings: %w", err)
	}
	s, err := Decode(data, FormatOf(path))
	if err != nil {
		return Settings{}, oerror.New("%s: %w", path, err)
	}
	return s, nil
}

// Decode decodes settings in the format passed. Every threshold must be present in the "flight" table.
// Families absent from the "checks" table keep their default settings, and absent keys of a family keep
// the default value of that key.
func Decode(data []byte, format Format) (Settings, error) {
	var raw map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Settings{}, oerror.New("error decoding settings: %w", err)
		}
	default:
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return Settings{}, oerror.New("error decoding settings: %w", err)
		}
		raw = tree.ToMap()
	}

	s := DefaultSettings()
	flight, _ := raw["flight"].(map[string]any)
	for _, option := range Options {
		v, ok := flight[option]
		if !ok {
			return Settings{}, oerror.New("flight.%s: %w", option, ErrMissingOption)
		}
		n, ok := number(v)
		if !ok {
			return Settings{}, oerror.New("flight.%s = %v: %w", option, v, ErrInvalidOption)
		}
		if err := s.set(option, n); err != nil {
			return Settings{}, err
		}
	}

	checks, _ := raw["checks"].(map[string]any)
	for family, v := range checks {
		table, ok := v.(map[string]any)
		if !ok {
			return Settings{}, oerror.New("checks.%s is not a table: %w", family, ErrInvalidOption)
		}
		b, err := decodeBasics(s.Checks[family], table)
		if err != nil {
			return Settings{}, oerror.New("checks.%s: %w", family, err)
		}
		s.Checks[family] = b
	}
	return s, s.Validate()
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return
// an error.
func SaveDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return oerror.New("settings file %s already exists", path)
	}
	data, err := Encode(DefaultSettings(), FormatOf(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return oerror.New("failed creating settings file: %w", err)
	}
	return nil
}

// Encode encodes the settings in the format passed.
func Encode(s Settings, format Format) ([]byte, error) {
	flight := make(map[string]any, len(Options))
	for _, option := range Options {
		v, _ := s.Value(option)
		if option == OptionMaxHoverTime || option == OptionAscendTime {
			flight[option] = int64(v)
			continue
		}
		flight[option] = v
	}
	checks := make(map[string]any, len(s.Checks))
	for family, b := range s.Checks {
		checks[family] = map[string]any{
			"enabled":        b.Enabled,
			"cancel":         b.Cancel,
			"punishable":     b.Punishable,
			"max-violations": b.MaxViolations,
			"fail-buffer":    b.FailBuffer,
			"max-buffer":     b.MaxBuffer,
			"trust-duration": b.TrustDuration,
		}
	}
	raw := map[string]any{"flight": flight, "checks": checks}

	if format == FormatYAML {
		data, err := yaml.Marshal(raw)
		if err != nil {
			return nil, oerror.New("failed encoding settings: %w", err)
		}
		return data, nil
	}
	tree, err := toml.TreeFromMap(raw)
	if err != nil {
		return nil, oerror.New("failed encoding settings: %w", err)
	}
	return []byte(tree.String()), nil
}

func (s *Settings) set(option string, v float64) error {
	t := &s.Thresholds
	switch option {
	case OptionAscendLadder:
		t.AscendLadder = v
	case OptionDescendLadder:
		t.DescendLadder = v
	case OptionMaxJump:
		t.MaxJump = v
	case OptionMaxHoverTime:
		t.MaxHoverTime = int(v)
	case OptionAscendDistance:
		t.AscendDistance = v
	case OptionAscendTime:
		t.AscendTime = int(v)
	default:
		return oerror.New("unknown threshold %q: %w", option, ErrInvalidOption)
	}
	return nil
}

func decodeBasics(b Basics, table map[string]any) (Basics, error) {
	for key, v := range table {
		var ok bool
		switch key {
		case "enabled":
			b.Enabled, ok = v.(bool)
		case "cancel":
			b.Cancel, ok = v.(bool)
		case "punishable":
			b.Punishable, ok = v.(bool)
		case "max-violations":
			b.MaxViolations, ok = number(v)
		case "fail-buffer":
			b.FailBuffer, ok = number(v)
		case "max-buffer":
			b.MaxBuffer, ok = number(v)
		case "trust-duration":
			var n float64
			n, ok = number(v)
			b.TrustDuration = int64(n)
		default:
			return b, oerror.New("unknown key %q: %w", key, ErrInvalidOption)
		}
		if !ok {
			return b, oerror.New("%s = %v: %w", key, v, ErrInvalidOption)
		}
	}
	return b, nil
}

// number converts the numeric types produced by the TOML and YAML decoders to a float64.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// String returns a short name of the format.
func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "toml"
}
