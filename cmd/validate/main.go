package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/gem-engine/pkg/world"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <world_config.yaml>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &WorldValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	for _, w := range validator.warnings {
		fmt.Println("warning: " + w)
	}
	fmt.Println("World config is valid!")
}

// WorldValidator collects every problem in a world config instead of
// stopping at the first one.
type WorldValidator struct {
	errors   []string
	warnings []string
}

var validKey = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func (v *WorldValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml", ".json":
	default:
		return fmt.Errorf("world config must be .yaml, .yml or .json: %s", filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return v.validate(data, filename)
}

func (v *WorldValidator) validate(data []byte, filename string) error {
	v.errors = nil
	v.warnings = nil

	// Parse applies the structural checks the server enforces at startup.
	cfg, err := world.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	if strings.TrimSpace(cfg.GlobalImageStyle) == "" {
		v.warnings = append(v.warnings, "globalImageStyle is empty; images fall back to the built-in style")
	}
	if strings.TrimSpace(cfg.AudioPromptSuffix) == "" {
		v.warnings = append(v.warnings, "audioPromptSuffix is empty")
	}
	if len(cfg.Genres) < world.CandidateCount {
		v.errors = append(v.errors, fmt.Sprintf("at least %d genres are needed for candidate selection, found %d", world.CandidateCount, len(cfg.Genres)))
	}

	for _, key := range cfg.GenreKeys() {
		genre := cfg.Genres[key]
		v.validateIDFormat("genre key", key)
		v.validateGenre(key, &genre)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *WorldValidator) validateGenre(key string, g *world.GenreConfig) {
	for statKey, stat := range g.Stats {
		v.validateIDFormat(fmt.Sprintf("stat key in genre %s", key), statKey)
		if strings.TrimSpace(stat.Label) == "" {
			v.errors = append(v.errors, fmt.Sprintf("genre %s: stats.%s.label is required", key, statKey))
		}
		if stat.Icon == "" {
			v.warnings = append(v.warnings, fmt.Sprintf("genre %s: stats.%s has no icon", key, statKey))
		}
	}
	for _, reserved := range []string{"inventory", "situation"} {
		if _, ok := g.Stats[reserved]; ok {
			v.errors = append(v.errors, fmt.Sprintf("genre %s: %q is reserved and cannot be a stat", key, reserved))
		}
	}

	seen := make(map[string]bool, len(g.SampleSettings))
	for i, s := range g.SampleSettings {
		s = strings.TrimSpace(s)
		if s == "" {
			v.errors = append(v.errors, fmt.Sprintf("genre %s: sampleSettings[%d] is empty", key, i))
			continue
		}
		if seen[s] {
			v.errors = append(v.errors, fmt.Sprintf("genre %s: duplicate sample setting %q", key, s))
		}
		seen[s] = true
	}

	if strings.TrimSpace(g.ImageStyleSuffix) == "" {
		v.warnings = append(v.warnings, fmt.Sprintf("genre %s: imageStyleSuffix is empty", key))
	}
	if len(g.Keywords) == 0 {
		v.warnings = append(v.warnings, fmt.Sprintf("genre %s: no keywords for candidate generation", key))
	}
}

func (v *WorldValidator) validateIDFormat(fieldName, id string) {
	if !validKey.MatchString(id) {
		v.errors = append(v.errors, fmt.Sprintf("%s '%s' must be lowercase snake_case", fieldName, id))
	}
}
