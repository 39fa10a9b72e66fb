// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// Analyzer turns raw source tables into a dashboard
type Analyzer struct {
	config *Config
	logger *Logger
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(config *Config, logger *Logger) *Analyzer {
	return &Analyzer{
		config: config,
		logger: logger,
	}
}

// Prepare normalizes, joins, imputes and derives billing for the raw data.
// It does not modify raw.
func (a *Analyzer) Prepare(raw *RawData) (*Dataset, error) {
	consumption, extraColumns, err := NormalizeConsumption(&raw.Consumption)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize consumption data: %w", err)
	}
	a.logger.LogPipelineStage("normalize_consumption", len(consumption))

	prices, err := NormalizePrices(&raw.Price, delimiterRune(a.config.PriceDecimal))
	if err != nil {
		return nil, fmt.Errorf("failed to normalize price data: %w", err)
	}
	a.logger.LogPipelineStage("normalize_price", len(prices))

	records, duplicates := LeftJoin(consumption, prices)
	if duplicates > 0 {
		a.logger.Warn("Duplicate price timestamps ignored", "count", duplicates)
	}
	a.logger.LogPipelineStage("join", len(records))

	imputation, err := ImputeMissingPrices(records)
	if err != nil {
		return nil, err
	}
	if imputation.Filled > 0 {
		a.logger.LogImputation(imputation.Filled, imputation.Mean)
	}

	DeriveBilling(records)

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time.Before(records[j].Time)
	})
	a.logger.LogPipelineStage("derive", len(records))

	return &Dataset{
		Records:      records,
		ExtraColumns: extraColumns,
		Imputation:   imputation,
		Raw:          raw,
	}, nil
}

// Analyze applies the date range and grouping to a prepared dataset.
// It is a pure function of its inputs apart from GeneratedAt.
func (a *Analyzer) Analyze(ds *Dataset, params ViewParams) *Dashboard {
	filtered := FilterRange(ds.Records, params.Range)
	a.logger.LogPipelineStage("filter", len(filtered))

	dash := &Dashboard{
		GeneratedAt:      time.Now(),
		Params:           params,
		Imputation:       ds.Imputation,
		Summary:          Summarize(filtered),
		Buckets:          Resample(filtered, params.Grouping),
		Hourly:           HourlyPatterns(filtered),
		ConsumptionStats: ComputeSeriesStats(column(filtered, kwhOf)),
		PriceStats:       ComputeSeriesStats(column(filtered, priceOf)),
		TemperatureStats: ComputeSeriesStats(column(filtered, temperatureOf)),
		Quality:          AssessQuality(filtered, ds),
		Records:          filtered,
		ExtraColumns:     ds.ExtraColumns,
	}
	if ds.Raw != nil {
		dash.ConsumptionPreview = ds.Raw.Consumption.Head(PreviewRows)
		dash.PricePreview = ds.Raw.Price.Head(PreviewRows)
	}

	a.logger.LogPipelineStage("aggregate", len(dash.Buckets))
	return dash
}

// DashboardService runs the whole pipeline for one set of view parameters
type DashboardService struct {
	collector *Collector
	analyzer  *Analyzer
	logger    *Logger
}

// NewDashboardService wires the collector and analyzer together
func NewDashboardService(collector *Collector, analyzer *Analyzer, logger *Logger) *DashboardService {
	return &DashboardService{
		collector: collector,
		analyzer:  analyzer,
		logger:    logger,
	}
}

// Build loads (memoized) raw data and recomputes every derived value
func (s *DashboardService) Build(ctx context.Context, params ViewParams) (*Dashboard, error) {
	raw, err := s.collector.CollectAll(ctx)
	if err != nil {
		return nil, err
	}

	ds, err := s.analyzer.Prepare(raw)
	if err != nil {
		return nil, err
	}
	SetImputedPrices(ds.Imputation.Filled)

	return s.analyzer.Analyze(ds, params), nil
}

// FormatEuro formats a euro amount with two decimals
func FormatEuro(value float64) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return fmt.Sprintf("€%.2f", value)
}

// FormatEuroWhole formats a euro amount with thousands separators and no decimals
func FormatEuroWhole(value float64) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return "€" + humanize.Comma(int64(math.Round(value)))
}

// FormatKWhWhole formats energy with thousands separators and no decimals
func FormatKWhWhole(value float64) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return humanize.Comma(int64(math.Round(value))) + " kWh"
}

// FormatCents formats a price in cents
func FormatCents(value float64) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f cents", value)
}

// FormatFloat formats a value with the given decimals, "n/a" for NaN
func FormatFloat(value float64, decimals int) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// FormatCount formats an integer with thousands separators
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatDate formats a date, "n/a" for the zero time
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.Format(DateLayout)
}

// periodLabel names a bucket the way the charts and tables show it
func periodLabel(b AggregatedBucket, g Grouping) string {
	switch g {
	case GroupWeekly:
		year, week := b.PeriodStart.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case GroupMonthly:
		return b.PeriodStart.Format("Jan 2006")
	default:
		return b.PeriodStart.Format(DateLayout)
	}
}
