package anchors

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"MarketRegime/internal/domain/models"
	drepo "MarketRegime/internal/domain/repository"
	"MarketRegime/pkg/util"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var assets embed.FS

type fileAnchor struct {
	Date   string             `yaml:"date"`
	Values map[string]float64 `yaml:"values"`
}

type file struct {
	Indicator string       `yaml:"indicator"`
	Version   int          `yaml:"version"`
	Fields    []string     `yaml:"fields"`
	Anchors   []fileAnchor `yaml:"anchors"`
}

// Table is an immutable, validated anchor table. Safe for concurrent reads.
type Table struct {
	indicator string
	version   int
	fields    []string
	points    []models.Point
}

// Load reads the embedded table for the named indicator.
func Load(indicator string) (*Table, error) {
	b, err := assets.ReadFile(path.Join("data", indicator+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("anchors %s: %w", indicator, err)
	}
	return Parse(b)
}

// LoadAll reads every embedded table keyed by indicator name.
func LoadAll() (map[string]*Table, error) {
	entries, err := assets.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("anchors: %w", err)
	}
	out := make(map[string]*Table, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".yaml")
		t, err := Load(name)
		if err != nil {
			return nil, err
		}
		out[t.Indicator()] = t
	}
	return out, nil
}

// Parse decodes and validates one anchor table document.
func Parse(b []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse anchors: %w", err)
	}
	if f.Indicator == "" {
		return nil, fmt.Errorf("anchors: indicator is required")
	}
	if len(f.Fields) == 0 {
		return nil, fmt.Errorf("anchors %s: fields cannot be empty", f.Indicator)
	}
	if len(f.Anchors) == 0 {
		return nil, fmt.Errorf("anchors %s: table is empty", f.Indicator)
	}

	points := make([]models.Point, 0, len(f.Anchors))
	for i, a := range f.Anchors {
		d, err := util.ParseDay(a.Date)
		if err != nil {
			return nil, fmt.Errorf("anchors %s[%d]: %w", f.Indicator, i, err)
		}
		fields := make(map[string]float64, len(f.Fields))
		for _, name := range f.Fields {
			v, ok := a.Values[name]
			if !ok {
				return nil, fmt.Errorf("anchors %s %s: missing field %s", f.Indicator, a.Date, name)
			}
			fields[name] = v
		}
		if len(a.Values) != len(f.Fields) {
			return nil, fmt.Errorf("anchors %s %s: unexpected extra fields", f.Indicator, a.Date)
		}
		points = append(points, models.Point{Date: d, Fields: fields, Source: models.ProvenanceHistorical})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	for i := 1; i < len(points); i++ {
		if points[i].Date.Equal(points[i-1].Date) {
			return nil, fmt.Errorf("anchors %s: duplicate date %s", f.Indicator, util.FormatDay(points[i].Date))
		}
	}

	return &Table{
		indicator: f.Indicator,
		version:   f.Version,
		fields:    append([]string(nil), f.Fields...),
		points:    points,
	}, nil
}

func (t *Table) Indicator() string { return t.indicator }

func (t *Table) Version() int { return t.version }

// Fields lists the raw input names every anchor carries.
func (t *Table) Fields() []string { return append([]string(nil), t.fields...) }

// Anchors returns a copy so callers cannot mutate the shared table.
func (t *Table) Anchors() []models.Point {
	out := make([]models.Point, len(t.points))
	for i, p := range t.points {
		fields := make(map[string]float64, len(p.Fields))
		for k, v := range p.Fields {
			fields[k] = v
		}
		out[i] = models.Point{Date: p.Date, Fields: fields, Source: p.Source}
	}
	return out
}

var _ drepo.AnchorTable = (*Table)(nil)
