package world

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// CandidateCount is the number of genres a candidate request must name.
const CandidateCount = 3

const defaultStatMax = 100

// Candidate is a world setting for one genre, either generated by the
// candidates endpoint or drawn from the bundled sample settings.
type Candidate struct {
	GenreKey string `json:"genreKey"`
	GenreConfig
}

// Setting returns the opening line a game starts from.
func (c *Candidate) Setting() string {
	if len(c.SampleSettings) == 0 {
		return c.Label
	}
	return c.SampleSettings[0]
}

// Normalize fills stat maxima the model left out.
func (c *Candidate) Normalize() {
	for key, stat := range c.Stats {
		if stat.Max <= 0 {
			stat.Max = defaultStatMax
			c.Stats[key] = stat
		}
	}
}

func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.GenreKey) == "" {
		return fmt.Errorf("genreKey is required")
	}
	if err := c.GenreConfig.Validate(); err != nil {
		return fmt.Errorf("candidate %q: %w", c.GenreKey, err)
	}
	return nil
}

// SampleCandidates picks n distinct genres at random and one sample setting
// from each. It returns fewer than n when the config has fewer genres.
func SampleCandidates(cfg *WorldConfig, n int, rng *rand.Rand) []Candidate {
	keys := cfg.GenreKeys()
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	if n > len(keys) {
		n = len(keys)
	}

	out := make([]Candidate, 0, n)
	for _, key := range keys[:n] {
		genre := cfg.Genres[key]
		if len(genre.SampleSettings) == 0 {
			continue
		}
		pick := genre.SampleSettings[rng.IntN(len(genre.SampleSettings))]
		genre.SampleSettings = []string{pick}
		out = append(out, Candidate{GenreKey: key, GenreConfig: genre})
	}
	return out
}

// RandomCandidate picks one genre and one of its sample settings.
func RandomCandidate(cfg *WorldConfig, rng *rand.Rand) (Candidate, bool) {
	picked := SampleCandidates(cfg, 1, rng)
	if len(picked) == 0 {
		return Candidate{}, false
	}
	return picked[0], true
}
