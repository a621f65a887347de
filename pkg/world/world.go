// Package world holds the genre configuration bundled with the game and the
// candidate settings generated from it.
package world

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed world_config.yaml
var bundledConfig []byte

// StatDef describes one status stat shown in the status panel.
type StatDef struct {
	Label string `json:"label" yaml:"label"`
	Icon  string `json:"icon" yaml:"icon"`
	Max   int    `json:"max" yaml:"max"`
}

type GenreConfig struct {
	Label            string             `json:"label" yaml:"label"`
	Stats            map[string]StatDef `json:"stats" yaml:"stats"`
	SituationLabel   string             `json:"situationLabel" yaml:"situationLabel"`
	InventoryLabel   string             `json:"inventoryLabel" yaml:"inventoryLabel"`
	Keywords         []string           `json:"keywords" yaml:"keywords"`
	ImageStyleSuffix string             `json:"imageStyleSuffix" yaml:"imageStyleSuffix"`
	SampleSettings   []string           `json:"sampleSettings" yaml:"sampleSettings"`
}

// StatKeys returns the stat keys with hp first and the rest sorted.
func (g *GenreConfig) StatKeys() []string {
	keys := make([]string, 0, len(g.Stats))
	for k := range g.Stats {
		if k != "hp" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := g.Stats["hp"]; ok {
		keys = append([]string{"hp"}, keys...)
	}
	return keys
}

func (g *GenreConfig) Validate() error {
	if strings.TrimSpace(g.Label) == "" {
		return fmt.Errorf("label is required")
	}
	if _, ok := g.Stats["hp"]; !ok {
		return fmt.Errorf("stats.hp is required")
	}
	for _, key := range g.StatKeys() {
		if g.Stats[key].Max <= 0 {
			return fmt.Errorf("stats.%s.max must be positive", key)
		}
	}
	if len(g.SampleSettings) == 0 {
		return fmt.Errorf("at least one sample setting is required")
	}
	return nil
}

// WorldConfig is the read-only configuration document for all genres.
type WorldConfig struct {
	Genres            map[string]GenreConfig `json:"genres" yaml:"genres"`
	GlobalImageStyle  string                 `json:"globalImageStyle" yaml:"globalImageStyle"`
	AudioPromptSuffix string                 `json:"audioPromptSuffix" yaml:"audioPromptSuffix"`
}

// GenreKeys returns the genre keys in sorted order.
func (w *WorldConfig) GenreKeys() []string {
	keys := make([]string, 0, len(w.Genres))
	for k := range w.Genres {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Genre looks up a genre, reporting whether it exists.
func (w *WorldConfig) Genre(key string) (GenreConfig, bool) {
	g, ok := w.Genres[key]
	return g, ok
}

// GenreOrDefault returns the genre for key, falling back to fantasy and then
// to the first genre in key order.
func (w *WorldConfig) GenreOrDefault(key string) GenreConfig {
	if g, ok := w.Genres[key]; ok {
		return g
	}
	if g, ok := w.Genres["fantasy"]; ok {
		return g
	}
	keys := w.GenreKeys()
	if len(keys) == 0 {
		return GenreConfig{}
	}
	return w.Genres[keys[0]]
}

func (w *WorldConfig) Validate() error {
	if len(w.Genres) == 0 {
		return fmt.Errorf("no genres defined")
	}
	for _, key := range w.GenreKeys() {
		g := w.Genres[key]
		if err := g.Validate(); err != nil {
			return fmt.Errorf("genre %q: %w", key, err)
		}
	}
	return nil
}

// Parse decodes a YAML (or JSON) world configuration document.
func Parse(data []byte) (*WorldConfig, error) {
	var cfg WorldConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse world config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid world config: %w", err)
	}
	return &cfg, nil
}

// Load returns the configuration at path, or the bundled one when path is
// empty.
func Load(path string) (*WorldConfig, error) {
	if path == "" {
		return Parse(bundledConfig)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world config %s: %w", path, err)
	}
	return Parse(data)
}

// Bundled returns the configuration compiled into the binary.
func Bundled() *WorldConfig {
	cfg, err := Parse(bundledConfig)
	if err != nil {
		panic(err)
	}
	return cfg
}
