package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	domsvc "MarketRegime/internal/domain/service"
	"MarketRegime/internal/services/regime"
	"MarketRegime/pkg/config"
	applogger "MarketRegime/pkg/logger"
	"MarketRegime/pkg/util"

	"golang.org/x/sync/errgroup"
)

// rawFieldPrecision is used for the raw inputs echoed in history rows.
const rawFieldPrecision = 2

// AdapterFactory builds the live sources of one indicator.
type AdapterFactory interface {
	Adapters(ic config.IndicatorConfig) ([]domrepo.SourceAdapter, error)
}

// ServiceOption configures IndicatorService.
type ServiceOption func(*IndicatorService)

// WithClock replaces time.Now. Tests use it to pin recency and lastUpdated.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *IndicatorService) {
		if now != nil {
			s.now = now
		}
	}
}

type indicatorRuntime struct {
	cfg      config.IndicatorConfig
	pipeline *regime.Pipeline
	adapters []domrepo.SourceAdapter
}

// IndicatorService evaluates configured indicators per request. It keeps no per-request state.
type IndicatorService struct {
	indicators   map[string]*indicatorRuntime
	order        []string
	timeout      time.Duration
	defaultRange models.Lookback
	metrics      domrepo.Metrics
	logger       *applogger.Logger
	now          func() time.Time
}

var _ domsvc.IndicatorEvaluator = (*IndicatorService)(nil)

// NewIndicatorService builds one pipeline per configured indicator from its anchor table and sources.
func NewIndicatorService(cfg *config.Config, tables []domrepo.AnchorTable, factory AdapterFactory, metrics domrepo.Metrics, logger *applogger.Logger, opts ...ServiceOption) (*IndicatorService, error) {
	if logger == nil {
		logger = applogger.Nop()
	}
	byName := make(map[string]domrepo.AnchorTable, len(tables))
	for _, t := range tables {
		byName[t.Indicator()] = t
	}

	s := &IndicatorService{
		indicators:   make(map[string]*indicatorRuntime, len(cfg.Indicators)),
		timeout:      cfg.Engine.RequestTimeout,
		defaultRange: models.NormalizeLookback(cfg.Engine.DefaultRange, models.LookbackMax),
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	engineOpts := regime.Options{
		RecencyWindow: cfg.Engine.RecencyWindow,
		Stride:        cfg.Engine.Stride,
		ExtremeLimit:  cfg.Engine.ExtremeLimit,
	}
	for _, ic := range cfg.Indicators {
		table, ok := byName[ic.Name]
		if !ok {
			return nil, fmt.Errorf("indicator %s: no anchor table", ic.Name)
		}
		declared := table.Fields()
		for _, src := range ic.Sources {
			if !slices.Contains(declared, src.Field) {
				return nil, fmt.Errorf("indicator %s: anchors v%d do not declare source field %s", ic.Name, table.Version(), src.Field)
			}
		}
		p, err := regime.NewPipeline(ic, table.Anchors(), engineOpts)
		if err != nil {
			return nil, err
		}
		adapters, err := factory.Adapters(ic)
		if err != nil {
			return nil, err
		}
		s.indicators[ic.Name] = &indicatorRuntime{cfg: ic, pipeline: p, adapters: adapters}
		s.order = append(s.order, ic.Name)
		logger.Info("indicator ready",
			applogger.String("indicator", ic.Name),
			applogger.Int("anchors_version", table.Version()),
			applogger.Int("sources", len(adapters)))
	}
	return s, nil
}

// Evaluate computes the named indicator. The bool is false only for an unknown name;
// every known indicator yields a response, live or fallback.
func (s *IndicatorService) Evaluate(ctx context.Context, indicator string, lookback models.Lookback) (*models.IndicatorResponse, bool) {
	rt, ok := s.indicators[indicator]
	if !ok {
		return nil, false
	}

	lb := models.NormalizeLookback(string(lookback), s.defaultRange)
	now := s.now().UTC()
	from := lb.Start(now)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	out := rt.pipeline.Run(ctx, from, now, func(ctx context.Context) (regime.LiveSeries, error) {
		return s.fetchLive(ctx, rt, from, now)
	})
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordRun(indicator, out.Source)
		s.metrics.RecordLatency("indicator."+indicator, elapsed.Seconds())
		if len(out.Series) > 0 {
			s.metrics.RecordScalar(indicator, out.Current.Value)
		}
	}
	if out.Source == models.DataSourceFallback {
		s.logger.Warn("indicator served from anchors",
			applogger.String("indicator", indicator),
			applogger.String("range", string(lb)),
			applogger.Error(out.Err))
	}
	s.logger.Debug("indicator evaluated",
		applogger.String("indicator", indicator),
		applogger.String("range", string(lb)),
		applogger.String("source", string(out.Source)),
		applogger.Int("points", len(out.Series)),
		applogger.String("regime", string(out.Regime)),
		applogger.Duration("duration_ms", elapsed))

	return buildResponse(rt.cfg, out, now), true
}

// fetchLive runs every adapter concurrently. The first failure cancels the rest and fails the whole set.
func (s *IndicatorService) fetchLive(ctx context.Context, rt *indicatorRuntime, from, now time.Time) (regime.LiveSeries, error) {
	if len(rt.adapters) == 0 {
		return nil, fmt.Errorf("%s: no live sources", rt.cfg.Name)
	}
	results := make([][]models.Observation, len(rt.adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range rt.adapters {
		i, a := i, a
		g.Go(func() error {
			start := time.Now()
			obs, err := a.Fetch(gctx, from, now)
			if s.metrics != nil {
				s.metrics.RecordLatency("adapter."+a.Name(), time.Since(start).Seconds())
			}
			if err != nil {
				if s.metrics != nil {
					s.metrics.RecordAdapterError(a.Name())
				}
				s.logger.Warn("source adapter failed",
					applogger.String("indicator", rt.cfg.Name),
					applogger.String("adapter", a.Name()),
					applogger.Error(err))
				return fmt.Errorf("%s: %w", a.Name(), err)
			}
			results[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	series := make(regime.LiveSeries, len(rt.adapters))
	for i, a := range rt.adapters {
		series[a.Field()] = results[i]
	}
	return series, nil
}

// Catalog lists the configured indicators in configuration order.
func (s *IndicatorService) Catalog() []models.IndicatorInfo {
	out := make([]models.IndicatorInfo, 0, len(s.order))
	for _, name := range s.order {
		ic := s.indicators[name].cfg
		info := models.IndicatorInfo{
			Name:       ic.Name,
			Title:      ic.Title,
			Scalar:     ic.Scalar,
			Classifier: ic.Classifier.Kind,
		}
		if ic.Classifier.Kind == config.ClassifierThreshold {
			info.Threshold = ic.Classifier.Threshold
		}
		for _, src := range ic.Sources {
			info.Fields = append(info.Fields, src.Field)
		}
		out = append(out, info)
	}
	return out
}

func buildResponse(ic config.IndicatorConfig, out regime.Outcome, now time.Time) *models.IndicatorResponse {
	prec := ic.Precision
	resp := &models.IndicatorResponse{
		History:     make([]models.HistoryEntry, 0, len(out.Series)),
		Extremes:    make([]models.ExtremeView, 0, len(out.Extremes)),
		LastUpdated: now.Format(time.RFC3339),
		DataSource:  out.Source,
		Current:     models.CurrentReading{Scalar: ic.Scalar, Regime: out.Regime},
	}
	if out.Err != nil {
		resp.Error = "live data unavailable: " + out.Err.Error()
	}
	if len(out.Series) == 0 {
		return resp
	}

	for _, d := range out.Series {
		values := make(map[string]float64, len(d.Fields)+1)
		for k, v := range d.Fields {
			values[k] = models.Round(v, rawFieldPrecision)
		}
		values[ic.Scalar] = models.Round(d.Value, prec)
		resp.History = append(resp.History, models.HistoryEntry{Date: util.FormatDay(d.Date), Values: values})
	}
	resp.Current.Value = models.Round(out.Current.Value, prec)

	b := out.Bands
	resp.Bands = models.BandsView{
		Upper2: models.Round(b.Upper2, prec),
		Upper1: models.Round(b.Upper1, prec),
		Mean:   models.Round(b.Mean, prec),
		Lower1: models.Round(b.Lower1, prec),
		Lower2: models.Round(b.Lower2, prec),
	}
	for _, e := range out.Extremes {
		resp.Extremes = append(resp.Extremes, models.ExtremeView{
			Date:  util.FormatDay(e.Date),
			Value: models.Round(e.Value, prec),
			Label: e.Label,
		})
	}
	return resp
}
