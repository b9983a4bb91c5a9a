// Package services composes the loader, classifier and metrics engine into
// the views the dashboard serves.
package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"networth/internal/aggregate"
	"networth/internal/cache"
	"networth/internal/classify"
	"networth/internal/config"
	"networth/internal/core"
	"networth/internal/log"
	"networth/internal/metrics"
	"networth/internal/sheets"
	"networth/internal/vehicle"
)

// Refresher asks an out-of-band worker to re-import the source.
type Refresher interface {
	PublishRefresh(ctx context.Context, source string) (string, error)
}

// liveReader is a source that serves from a mirror and can be told to read
// the live data on its next load.
type liveReader interface {
	PreferLive()
}

// Dashboard serves every view of the ledger. Loaded data is memoized for
// the life of the process; Reload clears it.
type Dashboard struct {
	source     sheets.Source
	classifier *classify.Classifier
	analysis   config.Analysis
	timeout    time.Duration
	refresher  Refresher
	logger     *log.Logger
	now        func() time.Time

	caches   *cache.Manager
	ledger   *cache.Memo[[]core.Entry]
	flows    *cache.Memo[[]core.Cashflow]
	vehicles *cache.Memo[vehicle.Dataset]
}

// Options configures a Dashboard. Zero values take defaults.
type Options struct {
	Classifier *classify.Classifier
	Analysis   config.Analysis
	Timeout    time.Duration
	Refresher  Refresher
	Logger     *log.Logger
}

func NewDashboard(source sheets.Source, opts Options) *Dashboard {
	if opts.Classifier == nil {
		opts.Classifier = classify.New(nil)
	}
	if opts.Analysis == (config.Analysis{}) {
		opts.Analysis = config.DefaultAnalysis()
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	d := &Dashboard{
		source:     source,
		classifier: opts.Classifier,
		analysis:   opts.Analysis,
		timeout:    opts.Timeout,
		refresher:  opts.Refresher,
		logger:     opts.Logger.WithComponent(log.ComponentLedger),
		now:        time.Now,
		caches:     cache.NewManager(),
		ledger:     cache.NewMemo[[]core.Entry](),
		flows:      cache.NewMemo[[]core.Cashflow](),
		vehicles:   cache.NewMemo[vehicle.Dataset](),
	}
	d.caches.Register(d.ledger)
	d.caches.Register(d.flows)
	d.caches.Register(d.vehicles)
	return d
}

// Analysis returns the constants the dashboard computes with.
func (d *Dashboard) Analysis() config.Analysis { return d.analysis }

func (d *Dashboard) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.timeout)
}

// Ledger returns the classified ledger.
func (d *Dashboard) Ledger(ctx context.Context) ([]core.Entry, error) {
	return d.ledger.Do("ledger", func() ([]core.Entry, error) {
		ctx, cancel := d.withTimeout(ctx)
		defer cancel()

		start := time.Now()
		raw, err := d.source.ReadLedger(ctx)
		if err != nil {
			log.LogError(ctx, "Failed to load ledger", err, log.ComponentLedger, log.OpLoad)
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		entries := d.classifier.Apply(raw)
		d.logger.InfoContext(ctx, "Ledger loaded",
			log.FieldRows, len(entries),
			log.FieldDuration, time.Since(start).Milliseconds())
		return entries, nil
	})
}

// Cashflows returns the pension cashflow ledger.
func (d *Dashboard) Cashflows(ctx context.Context) ([]core.Cashflow, error) {
	return d.flows.Do("cashflows", func() ([]core.Cashflow, error) {
		ctx, cancel := d.withTimeout(ctx)
		defer cancel()
		flows, err := d.source.ReadCashflows(ctx)
		if err != nil {
			return nil, fmt.Errorf("load cashflows: %w", err)
		}
		return flows, nil
	})
}

// Vehicles returns the vehicle workbook.
func (d *Dashboard) Vehicles(ctx context.Context) (vehicle.Dataset, error) {
	return d.vehicles.Do("vehicles", func() (vehicle.Dataset, error) {
		ctx, cancel := d.withTimeout(ctx)
		defer cancel()
		ds, err := d.source.ReadVehicles(ctx)
		if err != nil {
			return vehicle.Dataset{}, fmt.Errorf("load vehicles: %w", err)
		}
		return ds, nil
	})
}

// Section names used in Overview.Errors.
const (
	SectionAllocation     = "allocation"
	SectionAssetTypes     = "asset_types"
	SectionSeries         = "series"
	SectionClassification = "classification"
	SectionPensions       = "pensions"
	SectionVehicles       = "vehicles"
)

// Overview is the landing page. Each section is computed independently;
// a failed section is nil and its error is listed in Errors.
type Overview struct {
	Allocation     *metrics.Allocation        `json:"allocation,omitempty"`
	AssetTypes     []metrics.AssetTypeMetrics `json:"asset_types,omitempty"`
	Series         []metrics.SeriesPoint      `json:"series,omitempty"`
	Classification *classify.Report           `json:"classification,omitempty"`
	Pensions       *metrics.PensionSummary    `json:"pensions,omitempty"`
	Vehicles       *vehicle.Summary           `json:"vehicles,omitempty"`
	Errors         map[string]string          `json:"errors,omitempty"`
	GeneratedAt    time.Time                  `json:"generated_at"`
}

func (o *Overview) fail(section string, err error) {
	if o.Errors == nil {
		o.Errors = make(map[string]string)
	}
	o.Errors[section] = err.Error()
}

// Overview loads the ledger, cashflows and vehicles concurrently and builds
// every section it can. It only fails when the context is done.
func (d *Dashboard) Overview(ctx context.Context) (Overview, error) {
	var (
		entries          []core.Entry
		flows            []core.Cashflow
		ds               vehicle.Dataset
		lerr, ferr, verr error
	)
	// a failed dataset only blanks its own sections, so loads are not cancelled
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		entries, lerr = d.Ledger(ctx)
	}()
	go func() {
		defer wg.Done()
		flows, ferr = d.Cashflows(ctx)
	}()
	go func() {
		defer wg.Done()
		ds, verr = d.Vehicles(ctx)
	}()
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return Overview{}, err
	}

	o := Overview{GeneratedAt: d.now()}
	if lerr != nil {
		for _, s := range []string{SectionAllocation, SectionAssetTypes, SectionSeries, SectionClassification, SectionPensions} {
			o.fail(s, lerr)
		}
	} else {
		if a, err := metrics.Allocate(entries); err != nil {
			o.fail(SectionAllocation, err)
		} else {
			o.Allocation = &a
		}
		o.AssetTypes = metrics.ForAllAssetTypes(entries, d.analysis.RollingWindow)
		o.Series = metrics.TypeSeries(entries, "", d.analysis.RollingWindow)
		rep := d.classifier.Validate(entries)
		o.Classification = &rep

		if ferr != nil {
			o.fail(SectionPensions, ferr)
		} else {
			p := metrics.PensionReturns(entries, flows)
			o.Pensions = &p
		}
	}

	if verr != nil {
		o.fail(SectionVehicles, verr)
	} else {
		_, sum := vehicle.ComputeAll(ds, d.now())
		o.Vehicles = &sum
	}

	if len(o.Errors) > 0 {
		d.logger.WarnContext(ctx, "Overview built with failed sections", "failed", len(o.Errors))
	}
	return o, nil
}

// AssetTypeView is the drill-down page of one asset type.
type AssetTypeView struct {
	Metrics        metrics.AssetTypeMetrics `json:"metrics"`
	Series         []metrics.SeriesPoint    `json:"series"`
	Platforms      []aggregate.Share        `json:"platforms"`
	Assets         []aggregate.Share        `json:"assets"`
	PlatformShares []metrics.MonthBreakdown `json:"platform_allocation"`
	PlatformTrends []metrics.MonthBreakdown `json:"platform_trends"`
}

func (d *Dashboard) AssetType(ctx context.Context, t core.AssetType) (AssetTypeView, error) {
	if !t.Valid() {
		return AssetTypeView{}, fmt.Errorf("%w: %q", core.ErrUnknownAssetType, t)
	}
	entries, err := d.Ledger(ctx)
	if err != nil {
		return AssetTypeView{}, err
	}
	rows := aggregate.Filter(entries, t)
	latest := aggregate.Latest(rows)
	return AssetTypeView{
		Metrics:        metrics.ForAssetType(entries, t, d.analysis.RollingWindow),
		Series:         metrics.TypeSeries(entries, t, d.analysis.RollingWindow),
		Platforms:      aggregate.Breakdown(latest, aggregate.ByPlatform),
		Assets:         aggregate.Breakdown(latest, aggregate.ByAsset),
		PlatformShares: metrics.PlatformAllocationSeries(entries, t),
		PlatformTrends: metrics.PlatformTrends(entries, t),
	}, nil
}

// Allocation returns the headline allocation and its history.
func (d *Dashboard) Allocation(ctx context.Context) (metrics.Allocation, []metrics.MonthBreakdown, error) {
	entries, err := d.Ledger(ctx)
	if err != nil {
		return metrics.Allocation{}, nil, err
	}
	a, err := metrics.Allocate(entries)
	if err != nil {
		return metrics.Allocation{}, nil, err
	}
	return a, metrics.AllocationSeries(entries), nil
}

// series is the monthly total of t, or of the whole ledger when t is empty.
func (d *Dashboard) series(ctx context.Context, t core.AssetType) ([]aggregate.Point, error) {
	if t != "" && !t.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownAssetType, t)
	}
	entries, err := d.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	if t != "" {
		entries = aggregate.Filter(entries, t)
	}
	points := aggregate.Totals(entries)
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", cmp.Or(string(t), "ledger"), core.ErrNoData)
	}
	return points, nil
}

// Performance is the monthly performance table of t (whole ledger when empty).
func (d *Dashboard) Performance(ctx context.Context, t core.AssetType) ([]metrics.PerformanceRow, error) {
	points, err := d.series(ctx, t)
	if err != nil {
		return nil, err
	}
	return metrics.Performance(points, d.analysis.VolatilityWindow), nil
}

// Risk is the risk profile of t (whole ledger when empty).
func (d *Dashboard) Risk(ctx context.Context, t core.AssetType) (metrics.RiskProfile, error) {
	points, err := d.series(ctx, t)
	if err != nil {
		return metrics.RiskProfile{}, err
	}
	return metrics.Risk(points, d.analysis.VolatilityWindow, d.analysis.RiskFreeRate), nil
}

// Pensions returns actual returns net of cashflows.
func (d *Dashboard) Pensions(ctx context.Context) (metrics.PensionSummary, error) {
	entries, err := d.Ledger(ctx)
	if err != nil {
		return metrics.PensionSummary{}, err
	}
	flows, err := d.Cashflows(ctx)
	if err != nil {
		return metrics.PensionSummary{}, err
	}
	return metrics.PensionReturns(entries, flows), nil
}

// ClassificationView is the classification report plus the rule behind
// every distinct holding.
type ClassificationView struct {
	Report   classify.Report `json:"report"`
	Holdings []HoldingRule   `json:"holdings"`
}

type HoldingRule struct {
	Platform  string         `json:"platform"`
	Asset     string         `json:"asset"`
	AssetType core.AssetType `json:"asset_type"`
	Rule      classify.Rule  `json:"rule"`
}

func (d *Dashboard) Classification(ctx context.Context) (ClassificationView, error) {
	entries, err := d.Ledger(ctx)
	if err != nil {
		return ClassificationView{}, err
	}
	view := ClassificationView{Report: d.classifier.Validate(entries)}
	seen := make(map[[2]string]bool)
	for _, e := range aggregate.Latest(entries) {
		k := [2]string{e.Platform, e.Asset}
		if seen[k] {
			continue
		}
		seen[k] = true
		t, rule := d.classifier.Explain(e.Platform, e.Asset)
		view.Holdings = append(view.Holdings, HoldingRule{Platform: e.Platform, Asset: e.Asset, AssetType: t, Rule: rule})
	}
	return view, nil
}

// FleetView lists every car with the fleet roll-up.
type FleetView struct {
	Cars    []vehicle.Metrics `json:"cars"`
	Summary vehicle.Summary   `json:"summary"`
}

func (d *Dashboard) Fleet(ctx context.Context) (FleetView, error) {
	ds, err := d.Vehicles(ctx)
	if err != nil {
		return FleetView{}, err
	}
	cars, sum := vehicle.ComputeAll(ds, d.now())
	return FleetView{Cars: cars, Summary: sum}, nil
}

// CarView is one car's position and projections.
type CarView struct {
	Metrics  vehicle.Metrics  `json:"metrics"`
	Forecast vehicle.Forecast `json:"forecast"`
}

func (d *Dashboard) Car(ctx context.Context, id int) (CarView, error) {
	ds, err := d.Vehicles(ctx)
	if err != nil {
		return CarView{}, err
	}
	m, err := vehicle.Compute(ds, id, d.now())
	if err != nil {
		return CarView{}, err
	}
	return CarView{Metrics: m, Forecast: vehicle.ForecastCar(ds, id, d.analysis.ForecastPeriods)}, nil
}

// ReloadResult reports what a reload did.
type ReloadResult struct {
	Cleared   int    `json:"cleared"`
	RefreshID string `json:"refresh_id,omitempty"`
}

// Reload drops every memoized load. A mirrored source reads live data on
// the next load, since an import requested here lands asynchronously. When a
// refresher is configured it also requests a re-import; a failed publish is
// logged and does not fail the reload.
func (d *Dashboard) Reload(ctx context.Context) ReloadResult {
	if lr, ok := d.source.(liveReader); ok {
		lr.PreferLive()
	}
	res := ReloadResult{Cleared: d.caches.ClearAll()}
	d.logger.InfoContext(ctx, "Caches cleared", log.FieldOperation, log.OpReload, "entries", res.Cleared)

	if d.refresher == nil {
		return res
	}
	id, err := d.refresher.PublishRefresh(ctx, "reload")
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish refresh request", log.FieldError, err.Error())
		return res
	}
	res.RefreshID = id
	return res
}

// IsUpstream reports whether err is a data source failure rather than a bad
// request or a source that simply holds no data.
func IsUpstream(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, core.ErrUnknownAssetType) && !errors.Is(err, vehicle.ErrCarNotFound) &&
		!errors.Is(err, core.ErrNoData) && !errors.Is(err, context.Canceled)
}
