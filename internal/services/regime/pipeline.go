package regime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketRegime/internal/domain/models"
	"MarketRegime/pkg/config"
)

// Options are the engine-wide knobs shared by every indicator.
type Options struct {
	RecencyWindow time.Duration
	Stride        int
	ExtremeLimit  int
}

// Result is one complete pass of fuse → derive → band → classify → extremes.
type Result struct {
	Series   []models.DerivedPoint
	Current  models.DerivedPoint
	Regime   models.Regime
	Bands    models.Bands
	Extremes []models.ExtremeEvent
}

// Outcome is a Result tagged with where its data came from.
// Err is set only on fallback and explains why live data was discarded.
type Outcome struct {
	Result
	Source models.DataSource
	Err    error
}

// FetchFunc retrieves every required live series, or fails as a whole.
type FetchFunc func(ctx context.Context) (LiveSeries, error)

// Pipeline runs one configured indicator. It holds only read-only state and is safe for concurrent use.
type Pipeline struct {
	name       string
	primary    string
	fields     []string
	anchors    []models.Point
	interp     *Interpolator
	formula    Formula
	classifier Classifier
	labels     Labels
	stride     int
	limit      int
}

// NewPipeline validates the indicator against its anchor table and builds the pipeline.
func NewPipeline(ic config.IndicatorConfig, anchors []models.Point, opts Options) (*Pipeline, error) {
	if len(anchors) == 0 {
		return nil, fmt.Errorf("pipeline %s: anchor table is empty", ic.Name)
	}
	formula, err := NewFormula(ic.Formula)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", ic.Name, err)
	}
	classifier, err := NewClassifier(ic.Classifier)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", ic.Name, err)
	}

	p := &Pipeline{
		name:       ic.Name,
		anchors:    anchors,
		interp:     NewInterpolator(anchors, opts.RecencyWindow),
		formula:    formula,
		classifier: classifier,
		labels:     Labels{Upper: ic.Labels.Upper, Lower: ic.Labels.Lower},
		stride:     opts.Stride,
		limit:      opts.ExtremeLimit,
	}
	if p.stride < 1 {
		p.stride = DefaultStride
	}
	if p.limit < 1 {
		p.limit = DefaultExtremeLimit
	}

	for _, s := range ic.Sources {
		p.fields = append(p.fields, s.Field)
		if s.Primary {
			p.primary = s.Field
		}
	}
	if p.primary == "" {
		return nil, fmt.Errorf("pipeline %s: no primary source", ic.Name)
	}
	for _, f := range append(formula.Fields(), p.fields...) {
		if _, ok := anchors[0].Field(f); !ok {
			return nil, fmt.Errorf("pipeline %s: anchors lack field %s", ic.Name, f)
		}
	}
	// Anchors must all compute, otherwise fallback itself could fail.
	if _, err := p.derive(anchors); err != nil {
		return nil, fmt.Errorf("pipeline %s: anchors: %w", ic.Name, err)
	}
	return p, nil
}

// Name is the indicator name.
func (p *Pipeline) Name() string { return p.name }

// Classifier returns the regime rule the pipeline applies.
func (p *Pipeline) Classifier() Classifier { return p.classifier }

// Run tries the live branch and falls back to anchors on any failure. It always returns an Outcome.
func (p *Pipeline) Run(ctx context.Context, from, now time.Time, fetch FetchFunc) Outcome {
	res, err := p.runLive(ctx, from, now, fetch)
	if err == nil {
		return Outcome{Result: res, Source: models.DataSourceLive}
	}

	fb, ferr := p.runFallback(from)
	if ferr != nil {
		// Unreachable with a validated table; still report rather than panic.
		return Outcome{Source: models.DataSourceFallback, Err: errors.Join(err, ferr)}
	}
	return Outcome{Result: fb, Source: models.DataSourceFallback, Err: err}
}

func (p *Pipeline) runLive(ctx context.Context, from, now time.Time, fetch FetchFunc) (Result, error) {
	if fetch == nil {
		return Result{}, fmt.Errorf("live %s: no sources configured", p.name)
	}
	series, err := fetch(ctx)
	if err != nil {
		return Result{}, err
	}
	live, err := p.assembleLive(series, now)
	if err != nil {
		return Result{}, err
	}
	return p.Compute(p.anchors, live, from)
}

// runFallback recomputes from anchors alone. A window with no anchors widens to the whole table.
func (p *Pipeline) runFallback(from time.Time) (Result, error) {
	res, err := p.Compute(p.anchors, nil, from)
	if errors.Is(err, ErrEmptySeries) {
		return p.Compute(p.anchors, nil, time.Time{})
	}
	return res, err
}

// Compute runs fusion through extreme detection for already-assembled points.
func (p *Pipeline) Compute(historical, live []models.Point, from time.Time) (Result, error) {
	fused, err := Fuse(historical, live, from, p.stride)
	if err != nil {
		return Result{}, fmt.Errorf("fuse %s: %w", p.name, err)
	}
	series, err := p.derive(fused)
	if err != nil {
		return Result{}, err
	}

	values := make([]float64, len(series))
	for i, d := range series {
		values[i] = d.Value
	}
	bands := ComputeBands(values)
	current := series[len(series)-1]

	return Result{
		Series:   series,
		Current:  current,
		Regime:   p.classifier.Classify(current.Value, bands),
		Bands:    bands,
		Extremes: DetectExtremes(series, bands, p.labels, p.limit),
	}, nil
}

func (p *Pipeline) derive(points []models.Point) ([]models.DerivedPoint, error) {
	out := make([]models.DerivedPoint, 0, len(points))
	for _, pt := range points {
		v, err := p.formula.Compute(pt.Fields)
		if err != nil {
			return nil, fmt.Errorf("derive %s %s: %w", p.name, pt.Date.Format("2006-01-02"), err)
		}
		out = append(out, models.DerivedPoint{Point: pt, Value: v})
	}
	return out, nil
}
