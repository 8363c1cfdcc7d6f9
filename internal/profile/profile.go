// Package profile reads and writes the TOML files describing players and
// engines. An engine profile records the identity an engine reported, how to
// start it and the option values to apply once it is running.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"arena/internal/engine"
)

var ErrProfileExists = errors.New("profile already exists")

var validate = validator.New()

// Titles recognised for human players
var Titles = []string{"CM", "FM", "IM", "GM"}

// EngineMetadata is the [engine] table of an engine profile.
type EngineMetadata struct {
	Name   string `toml:"name" validate:"required"`
	Author string `toml:"author"`
	// Command is the executable followed by its arguments
	Command []string `toml:"command" validate:"required,min=1,dive,required"`
	// Log keeps the engine's stderr in <executable>.log
	Log bool `toml:"log"`
}

func (m EngineMetadata) Identity() engine.Identity {
	return engine.Identity{Name: m.Name, Author: m.Author}
}

func (m EngineMetadata) Path() string {
	return m.Command[0]
}

func (m EngineMetadata) Args() []string {
	return m.Command[1:]
}

// EngineProfile is a complete engine profile file.
type EngineProfile struct {
	Engine EngineMetadata `toml:"engine"`
	// Options maps option names to booleans, integers or strings
	Options map[string]any `toml:"options"`
}

type PlayerMetadata struct {
	Name  string `toml:"name" validate:"required"`
	Title string `toml:"title" validate:"omitempty,oneof=CM FM IM GM"`
	Elo   int    `toml:"elo" validate:"gte=0,lte=4000"`
}

// PlayerProfile describes a human player.
type PlayerProfile struct {
	Human PlayerMetadata `toml:"human"`
}

// Profile is either kind of profile file.
type Profile struct {
	Engine *EngineProfile
	Player *PlayerProfile
}

// LoadEngine reads and validates the engine profile at path.
func LoadEngine(path string) (*EngineProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return parseEngine(path, data)
}

func parseEngine(path string, data []byte) (*EngineProfile, error) {
	var p EngineProfile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if err := validate.Struct(&p.Engine); err != nil {
		return nil, fmt.Errorf("invalid engine profile %s: %w", path, err)
	}
	if p.Options == nil {
		p.Options = map[string]any{}
	}
	return &p, nil
}

// LoadPlayer reads and validates the player profile at path.
func LoadPlayer(path string) (*PlayerProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return parsePlayer(path, data)
}

func parsePlayer(path string, data []byte) (*PlayerProfile, error) {
	var p PlayerProfile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if err := validate.Struct(&p.Human); err != nil {
		return nil, fmt.Errorf("invalid player profile %s: %w", path, err)
	}
	return &p, nil
}

// Load reads a profile of either kind, telling them apart by their top
// level table.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var tables map[string]any
	if err := toml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	switch {
	case tables["engine"] != nil:
		p, err := parseEngine(path, data)
		if err != nil {
			return nil, err
		}
		return &Profile{Engine: p}, nil
	case tables["human"] != nil:
		p, err := parsePlayer(path, data)
		if err != nil {
			return nil, err
		}
		return &Profile{Player: p}, nil
	default:
		return nil, fmt.Errorf("profile %s has neither an [engine] nor a [human] table", path)
	}
}

// RenderPlayer encodes a player profile.
func RenderPlayer(p PlayerProfile) (string, error) {
	if err := validate.Struct(&p.Human); err != nil {
		return "", fmt.Errorf("invalid player profile: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to render profile: %w", err)
	}
	return string(data), nil
}

// NormalizeTitle returns title if it is a recognised FIDE title and ""
// otherwise.
func NormalizeTitle(title string) string {
	title = strings.ToUpper(strings.TrimSpace(title))
	for _, t := range Titles {
		if t == title {
			return t
		}
	}
	return ""
}

// FileName returns the file a profile called name is stored in.
func FileName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-") + ".toml"
}

// Create writes content to a new profile file for name inside dir and
// returns its path. An existing file is never overwritten.
func Create(dir, name, content string) (string, error) {
	path := filepath.Join(dir, FileName(name))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, fmt.Errorf("%w: %s", ErrProfileExists, path)
		}
		return path, fmt.Errorf("failed to create profile: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return path, fmt.Errorf("failed to write profile: %w", err)
	}
	return path, f.Close()
}

func marshalTable(name string, v any) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("[" + name + "]\n")
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
