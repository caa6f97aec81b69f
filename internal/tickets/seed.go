package tickets

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the canned knowledge base and remediation text served by the mocked analyzer.
type Seed struct {
	Suggestion string         `yaml:"suggestion"`
	Tickets    []SolvedTicket `yaml:"tickets"`
}

// LoadSeed reads a seed file from path, or the embedded default when path is empty.
func LoadSeed(path string) (Seed, error) {
	raw := defaultSeed
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Seed{}, fmt.Errorf("read seed: %w", err)
		}
		raw = data
	}
	return ParseSeed(raw)
}

// ParseSeed decodes and validates a YAML seed document.
func ParseSeed(raw []byte) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	seed.Suggestion = strings.TrimSpace(seed.Suggestion)
	if seed.Suggestion == "" {
		return Seed{}, fmt.Errorf("%w: suggestion is empty", ErrInvalidSeed)
	}
	seen := make(map[string]struct{}, len(seed.Tickets))
	for i, t := range seed.Tickets {
		if strings.TrimSpace(t.TicketNo) == "" {
			return Seed{}, fmt.Errorf("%w: ticket %d has no ticket_no", ErrInvalidSeed, i)
		}
		if _, dup := seen[t.TicketNo]; dup {
			return Seed{}, fmt.Errorf("%w: duplicate ticket %s", ErrInvalidSeed, t.TicketNo)
		}
		seen[t.TicketNo] = struct{}{}
		if t.Similarity != nil && (*t.Similarity < 0 || *t.Similarity > 1) {
			return Seed{}, fmt.Errorf("%w: ticket %s similarity outside [0,1]", ErrInvalidSeed, t.TicketNo)
		}
		if t.Module != "" {
			m, err := ParseModule(string(t.Module))
			if err != nil {
				return Seed{}, fmt.Errorf("%w: ticket %s: %v", ErrInvalidSeed, t.TicketNo, err)
			}
			seed.Tickets[i].Module = m
		}
	}
	return seed, nil
}

// Apply writes the seed tickets into repo.
func (s Seed) Apply(ctx context.Context, repo Repo) error {
	if len(s.Tickets) == 0 {
		return nil
	}
	if _, err := repo.Upsert(ctx, SourceSeed, s.Tickets); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	return nil
}
