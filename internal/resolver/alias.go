package resolver

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Never2333/tfl-status/internal/stations"
)

//go:embed aliases.yaml
var defaultAliases []byte

type aliasFile struct {
	Aliases []aliasEntry `yaml:"aliases" validate:"required,min=1,dive"`
}

type aliasEntry struct {
	Match    []string       `yaml:"match" validate:"required,min=1,dive,required"`
	Stations []aliasStation `yaml:"stations" validate:"required,min=1,dive"`
}

type aliasStation struct {
	ID    string   `yaml:"id" validate:"required,startswith=940G"`
	Name  string   `yaml:"name" validate:"required"`
	Lines []string `yaml:"lines" validate:"required,min=1,dive,required"`
}

type alias struct {
	fragments []string
	stations  []stations.Station
}

// AliasTable maps normalized hub name fragments to canonical stations
type AliasTable struct {
	entries []alias
}

// LoadAliasTable parses and validates a YAML alias table. Line display
// names are resolved through catalog.
func LoadAliasTable(data []byte, catalog *stations.Catalog) (*AliasTable, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid alias table: %w", err)
	}

	t := &AliasTable{entries: make([]alias, 0, len(f.Aliases))}
	for _, e := range f.Aliases {
		a := alias{}
		for _, m := range e.Match {
			a.fragments = append(a.fragments, stations.Normalize(m))
		}
		for _, s := range e.Stations {
			lines := make([]stations.Line, len(s.Lines))
			for i, id := range s.Lines {
				lines[i] = catalog.Line(id)
			}
			a.stations = append(a.stations, stations.NewStation(s.ID, s.Name, lines))
		}
		t.entries = append(t.entries, a)
	}
	return t, nil
}

// DefaultAliasTable loads the compiled-in table
func DefaultAliasTable(catalog *stations.Catalog) (*AliasTable, error) {
	return LoadAliasTable(defaultAliases, catalog)
}

// Match returns stations whose fragment equals q, then those where either
// contains the other, in table order without duplicates. q must be
// normalized.
func (t *AliasTable) Match(q string) []stations.Station {
	if q == "" {
		return nil
	}
	var exact, partial []stations.Station
	for _, a := range t.entries {
		kind := 0
		for _, frag := range a.fragments {
			if frag == q {
				kind = 2
				break
			}
			if strings.Contains(frag, q) || strings.Contains(q, frag) {
				kind = 1
			}
		}
		switch kind {
		case 2:
			exact = append(exact, a.stations...)
		case 1:
			partial = append(partial, a.stations...)
		}
	}

	seen := make(map[string]bool)
	var out []stations.Station
	for _, s := range append(exact, partial...) {
		if !seen[s.ID] {
			seen[s.ID] = true
			out = append(out, s)
		}
	}
	return out
}

// Stations lists every station in the table, in table order
func (t *AliasTable) Stations() []stations.Station {
	seen := make(map[string]bool)
	var out []stations.Station
	for _, a := range t.entries {
		for _, s := range a.stations {
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// AliasTier is the last resort: a static table of hub names upstream
// search is known to miss
type AliasTier struct {
	table *AliasTable
	limit int
}

// NewAliasTier creates the alias tier
func NewAliasTier(table *AliasTable, limit int) *AliasTier {
	if limit <= 0 {
		limit = stations.DefaultLimit
	}
	return &AliasTier{table: table, limit: limit}
}

func (t *AliasTier) Name() string { return "alias" }

func (t *AliasTier) Resolve(ctx context.Context, q Query) ([]stations.Station, error) {
	out := t.table.Match(q.Normalized)
	if len(out) > t.limit {
		out = out[:t.limit]
	}
	return out, nil
}
