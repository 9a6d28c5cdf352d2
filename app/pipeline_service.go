package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"salesprobe/adapters/coercer"
	"salesprobe/adapters/excel"
	"salesprobe/domain/core"
	"salesprobe/domain/run"
	"salesprobe/domain/sales"
	"salesprobe/internal"
	"salesprobe/internal/aggregate"
	"salesprobe/internal/config"
	"salesprobe/internal/errors"
	"salesprobe/internal/features"
	"salesprobe/internal/metrics"
	"salesprobe/internal/outliers"
	"salesprobe/internal/segment"
	"salesprobe/internal/significance"

	"golang.org/x/sync/errgroup"
)

// CodeVersion is stamped into every run manifest.
var CodeVersion = "v0.3.0"

// PipelineOptions are the analysis parameters of one run.
type PipelineOptions struct {
	Source              string
	InputHash           core.Hash
	Normalize           coercer.Options
	OutlierColumn       string
	OutlierPolicy       outliers.Policy
	SpendingLabels      []string
	FrequencyBoundaries []float64
	FrequencyLabels     []string
	TopN                int
	CoOccurrenceTopN    int
	HistogramBins       int
}

// OptionsFromConfig maps validated configuration onto pipeline options.
func OptionsFromConfig(cfg config.PipelineConfig) (PipelineOptions, error) {
	policy, err := outliers.ParsePolicy(cfg.OutlierPolicy)
	if err != nil {
		return PipelineOptions{}, err
	}
	return PipelineOptions{
		Normalize:           coercer.Options{DateLayout: cfg.DateLayout},
		OutlierColumn:       cfg.OutlierColumn,
		OutlierPolicy:       policy,
		SpendingLabels:      cfg.SpendingLabels,
		FrequencyBoundaries: cfg.FrequencyBoundaries,
		FrequencyLabels:     cfg.FrequencyLabels,
		TopN:                cfg.TopN,
		CoOccurrenceTopN:    cfg.CoOccurrenceTopN,
		HistogramBins:       cfg.HistogramBins,
	}, nil
}

// Result carries the report plus the tables and assignments the sinks need.
type Result struct {
	Report    *Report
	Derived   sales.Table
	Cleaned   sales.Table
	Customers []aggregate.Customer
	Spending  segment.Segmentation
	Frequency segment.Segmentation
	Combined  segment.Combination
}

// PipelineService runs normalize → derive → analyses over one input table.
type PipelineService struct {
	logger *internal.Logger
}

// NewPipelineService creates a pipeline service
func NewPipelineService(logger *internal.Logger) *PipelineService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PipelineService{logger: logger.With("Pipeline")}
}

// RunFile reads and hashes a CSV or XLSX file, then runs the pipeline on it.
func (s *PipelineService) RunFile(ctx context.Context, path string, opts PipelineOptions) (*Result, error) {
	hash, err := core.HashFile(path)
	if err != nil {
		return nil, errors.IOError("failed to hash input", err)
	}

	raw, err := excel.NewDataReader(path).WithLogger(s.logger).Read()
	if err != nil {
		return nil, errors.IOError("failed to read input", err)
	}

	opts.Source = path
	opts.InputHash = hash
	return s.Run(ctx, raw, opts)
}

// Run normalizes and derives the raw table, then runs the outlier, aggregate,
// segment and significance branches concurrently over the derived table.
// The first failing branch cancels the others.
func (s *PipelineService) Run(ctx context.Context, raw sales.RawTable, opts PipelineOptions) (*Result, error) {
	source := opts.Source
	if source == "" {
		source = "memory"
	}
	manifest := run.NewManifest(source, opts.InputHash, CodeVersion)
	manifest.RawRows = raw.Len()
	s.logger.Info("run %s started on %s (%d rows, input %s)", manifest.RunID, source, raw.Len(), opts.InputHash.Short())

	start := time.Now()
	normalized, err := coercer.Normalize(raw, opts.Normalize)
	if err != nil {
		metrics.InputsRejected.WithLabelValues(rejectionKind(err)).Inc()
		return nil, fmt.Errorf("normalize: %w", err)
	}
	metrics.RowsNormalized.Add(float64(normalized.Len()))
	s.record(manifest, "normalize", start)

	start = time.Now()
	derived, err := features.Derive(normalized)
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	s.record(manifest, "derive", start)
	manifest.DerivedRows = derived.Len()

	if derived.Len() == 0 {
		return nil, core.NewInsufficientDataError("input has no rows")
	}

	res := &Result{Derived: derived, Report: &Report{Manifest: manifest}}
	branches := []struct {
		name string
		fn   func(context.Context, *Result, PipelineOptions) error
	}{
		{"outliers", s.runOutliers},
		{"aggregate", s.runAggregates},
		{"segment", s.runSegments},
		{"significance", s.runSignificance},
	}
	durations := make([]time.Duration, len(branches))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range branches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			begin := time.Now()
			if err := b.fn(gctx, res, opts); err != nil {
				return fmt.Errorf("%s: %w", b.name, err)
			}
			durations[i] = time.Since(begin)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("run %s failed (%s): %v", manifest.RunID, errors.Classify(err), err)
		return nil, err
	}

	for i, b := range branches {
		manifest.Record(b.name, durations[i])
		metrics.ObserveStage(b.name, durations[i])
	}
	manifest.Finish()
	s.logger.Info("run %s finished: %d derived rows, %d customers", manifest.RunID, derived.Len(), len(res.Customers))
	return res, nil
}

func (s *PipelineService) record(m *run.Manifest, stage string, start time.Time) {
	d := time.Since(start)
	m.Record(stage, d)
	metrics.ObserveStage(stage, d)
	s.logger.Debug("%s took %.2fms", stage, float64(d.Nanoseconds())/1e6)
}

func (s *PipelineService) runOutliers(_ context.Context, res *Result, opts PipelineOptions) error {
	summary, err := outliers.Summarize(res.Derived, opts.OutlierColumn)
	if err != nil {
		return err
	}
	cleaned, err := outliers.Handle(res.Derived, opts.OutlierColumn, opts.OutlierPolicy)
	if err != nil {
		return err
	}
	res.Cleaned = cleaned
	res.Report.Outliers = OutlierReport{
		Summary:    summary,
		Policy:     opts.OutlierPolicy,
		RowsBefore: res.Derived.Len(),
		RowsAfter:  cleaned.Len(),
	}
	return nil
}

func (s *PipelineService) runAggregates(ctx context.Context, res *Result, opts PipelineOptions) error {
	t := res.Derived
	r := res.Report
	var err error

	if r.Descriptive, err = aggregate.DescriptiveStats(t); err != nil {
		return err
	}
	if r.TopProducts, err = aggregate.Top(t, sales.ColDescription, sales.ColTotalPurchase, aggregate.Sum, opts.TopN); err != nil {
		return err
	}
	if r.TopCategories, err = aggregate.Top(t, sales.ColDescription, sales.ColTotalPurchase, aggregate.Mean, 5); err != nil {
		return err
	}
	if r.TopCountries, err = aggregate.Top(t, sales.ColCountry, sales.ColTotalPurchase, aggregate.Sum, opts.TopN); err != nil {
		return err
	}
	if r.MonthlySales, err = aggregate.MonthlySales(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	top := make(map[string]bool, r.TopProducts.Len())
	for _, g := range r.TopProducts.Groups {
		top[g.Key[0]] = true
	}
	seasonal := sales.Table{Columns: t.Columns}
	for _, li := range t.Items {
		if top[li.Description] {
			seasonal.Items = append(seasonal.Items, li)
		}
	}
	if r.Seasonal, err = aggregate.PivotTable(seasonal, sales.ColMonth, sales.ColDescription, sales.ColTotalPurchase, aggregate.Sum, 0); err != nil {
		return err
	}
	byCountry, err := aggregate.PivotTable(t, sales.ColDescription, sales.ColCountry, sales.ColTotalPurchase, aggregate.Sum, aggregate.NoFill)
	if err != nil {
		return err
	}
	r.CountryCorrelation = aggregate.CorrelationMatrix(byCountry)
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.CoOccurrence, err = aggregate.CoOccurrence(t, opts.CoOccurrenceTopN); err != nil {
		return err
	}

	quantities := make([]float64, t.Len())
	for i, li := range t.Items {
		quantities[i] = li.Quantity
	}
	if r.QuantityHistogram, err = aggregate.NewHistogram(quantities, opts.HistogramBins); err != nil {
		return err
	}
	return nil
}

func (s *PipelineService) runSegments(_ context.Context, res *Result, opts PipelineOptions) error {
	customers, err := aggregate.Customers(res.Derived)
	if err != nil {
		return err
	}
	res.Customers = customers

	spend := make(segment.Series, len(customers))
	freq := make(segment.Series, len(customers))
	lines := make([]float64, len(customers))
	for i, c := range customers {
		spend[i] = segment.Point{Key: c.CustomerID, Value: c.TotalSpending}
		freq[i] = segment.Point{Key: c.CustomerID, Value: float64(c.Frequency)}
		lines[i] = float64(c.LineItems)
	}

	if res.Spending, err = segment.Quantile(spend, len(opts.SpendingLabels), opts.SpendingLabels); err != nil {
		return err
	}
	if res.Frequency, err = segment.Fixed(freq, opts.FrequencyBoundaries, opts.FrequencyLabels); err != nil {
		return err
	}
	res.Combined = segment.Combine(res.Spending, res.Frequency)

	res.Report.Segments = SegmentReport{
		Customers: len(customers),
		Spending:  res.Spending.Counts(),
		Frequency: res.Frequency.Counts(),
		Combined:  res.Combined.Counts(),
	}
	if len(lines) > 0 {
		h, err := aggregate.NewHistogram(lines, opts.HistogramBins)
		if err != nil {
			return err
		}
		res.Report.Segments.PurchaseFrequency = &h
	}
	return nil
}

func (s *PipelineService) runSignificance(_ context.Context, res *Result, _ PipelineOptions) error {
	result, err := significance.WeekdayVsWeekend(res.Derived)
	switch {
	case stderrors.Is(err, core.ErrInsufficientData):
		s.logger.Warn("weekday/weekend test skipped: %v", err)
		res.Report.Significance = SignificanceReport{Test: weekdayTest, Skipped: err.Error()}
		return nil
	case err != nil:
		return err
	}
	res.Report.Significance = SignificanceReport{
		Test:        weekdayTest,
		Result:      &result,
		Significant: result.Significant(0.05),
	}
	return nil
}

func rejectionKind(err error) string {
	switch {
	case stderrors.Is(err, core.ErrParse):
		return "parse"
	case stderrors.Is(err, core.ErrType):
		return "type"
	case stderrors.Is(err, core.ErrMissingField):
		return "missing_field"
	}
	return "other"
}
