// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardServiceScenario(t *testing.T) {
	dash := buildScenarioDashboard(t, "2022-01-01", "2022-01-01", "Daily")

	assert.Equal(t, "Filled 1 missing prices with average value: 10.00 cents", dash.Imputation.Notice())
	assert.InDelta(t, 5.0, dash.Summary.TotalKWh, 1e-9)
	assert.InDelta(t, 0.50, dash.Summary.TotalBill, 1e-9)
	assert.InDelta(t, 10.0, dash.Summary.AvgPaidPriceCents, 1e-9)

	require.Len(t, dash.Buckets, 1)
	assert.Equal(t, 2, dash.Buckets[0].Rows)
	assert.InDelta(t, -2.0, dash.Buckets[0].TemperatureMean, 1e-9)

	require.Len(t, dash.Hourly, 2)
	assert.Equal(t, 2, dash.Quality.HoursAnalyzed)
	assert.Equal(t, 1, dash.Quality.MissingPricesFilled)

	assert.Equal(t, []string{"time", "kWh", "Temperature"}, dash.ConsumptionPreview.Header)
	assert.Len(t, dash.PricePreview.Rows, 2)
	assert.Equal(t, "", dash.PricePreview.Rows[1][1], "preview shows raw data before imputation")
}

func TestDashboardServiceInvertedRange(t *testing.T) {
	dash := buildScenarioDashboard(t, "2022-01-02", "2022-01-01", "Weekly")

	assert.Empty(t, dash.Buckets)
	assert.Empty(t, dash.Hourly)
	assert.Zero(t, dash.Summary.TotalKWh)
	assert.Zero(t, dash.Summary.AvgPaidPriceCents)
	assert.True(t, math.IsNaN(dash.Summary.AvgHourlyPrice))
	assert.Zero(t, dash.Quality.HoursAnalyzed)
	assert.Equal(t, 2, dash.Quality.TotalRecords)
	// the fill notice reflects the whole dataset, not the view
	assert.Equal(t, 1, dash.Imputation.Filled)
}

func TestDashboardServiceDownloadsOnce(t *testing.T) {
	cfg := newTestConfig()
	logger := NewDiscardLogger()
	fetcher := newScenarioFetcher()
	collector := NewCollector(fetcher, cfg, NewCache(logger), logger)
	service := NewDashboardService(collector, NewAnalyzer(cfg, logger), logger)

	for _, group := range []string{"Daily", "Weekly", "Monthly", "Daily"} {
		_, err := service.Build(context.Background(), mustParams(t, "2022-01-01", "2022-01-31", group))
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestDashboardServiceFetchFailure(t *testing.T) {
	cfg := newTestConfig()
	logger := NewDiscardLogger()
	fetcher := &fakeFetcher{err: &FetchError{Source: SourceConsumption, StatusCode: 503, Message: "unavailable"}}
	collector := NewCollector(fetcher, cfg, NewCache(logger), logger)
	service := NewDashboardService(collector, NewAnalyzer(cfg, logger), logger)

	_, err := service.Build(context.Background(), mustParams(t, "2022-01-01", "2022-01-31", "Daily"))

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 503, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "failed to load consumption data")
}

func TestPrepareDoesNotModifyRawData(t *testing.T) {
	cfg := newTestConfig()
	analyzer := NewAnalyzer(cfg, NewDiscardLogger())
	raw := &RawData{
		Consumption: *mustTable(t, scenarioConsumptionCSV, ','),
		Price:       *mustTable(t, scenarioPriceCSV, ';'),
	}

	ds, err := analyzer.Prepare(raw)
	require.NoError(t, err)

	require.Len(t, ds.Records, 2)
	assert.Equal(t, "", raw.Price.Rows[1][1])
	assert.Same(t, raw, ds.Raw)
}

func TestPrepareSortsByTime(t *testing.T) {
	cfg := newTestConfig()
	analyzer := NewAnalyzer(cfg, NewDiscardLogger())
	raw := &RawData{
		Consumption: *mustTable(t, "time,kWh,Temperature\n2022-01-01 02:00:00,1,0\n2022-01-01 00:00:00,1,0\n2022-01-01 01:00:00,1,0\n", ','),
		Price:       *mustTable(t, scenarioPriceCSV, ';'),
	}

	ds, err := analyzer.Prepare(raw)
	require.NoError(t, err)

	for i := 1; i < len(ds.Records); i++ {
		assert.True(t, ds.Records[i-1].Time.Before(ds.Records[i].Time))
	}
	// two of three hours have no usable price
	assert.Equal(t, 2, ds.Imputation.Filled)
}

func TestPrepareRejectsPricelessData(t *testing.T) {
	cfg := newTestConfig()
	analyzer := NewAnalyzer(cfg, NewDiscardLogger())
	raw := &RawData{
		Consumption: *mustTable(t, scenarioConsumptionCSV, ','),
		Price:       *mustTable(t, "timestamp;Price\n00:00 06/01/2023;10\n", ';'),
	}

	_, err := analyzer.Prepare(raw)

	var dataErr *DataError
	assert.True(t, errors.As(err, &dataErr))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "€0.50", FormatEuro(0.5))
	assert.Equal(t, "€12,346", FormatEuroWhole(12345.6))
	assert.Equal(t, "1,235 kWh", FormatKWhWhole(1234.5))
	assert.Equal(t, "10.00 cents", FormatCents(10))
	assert.Equal(t, "n/a", FormatCents(math.NaN()))
	assert.Equal(t, "n/a", FormatFloat(math.NaN(), 2))
	assert.Equal(t, "-1.5", FormatFloat(-1.5, 1))
	assert.Equal(t, "21,000", FormatCount(21000))
	assert.Equal(t, "n/a", FormatDate(time.Time{}))
	assert.Equal(t, "2022-01-01", FormatDate(mustDate(t, "2022-01-01")))
}

// gatedFetcher blocks every fetch until release is closed and reports a
// cancelled context as a fetch failure
type gatedFetcher struct {
	inner   *fakeFetcher
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedFetcher) FetchTable(ctx context.Context, source, locator string, delimiter rune) (*Table, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: source, Locator: locator, Message: "request failed", Err: err}
	}
	return g.inner.FetchTable(ctx, source, locator, delimiter)
}

func TestCollectAllSurvivesCancelledFirstRequest(t *testing.T) {
	cfg := newTestConfig()
	logger := NewDiscardLogger()
	fetcher := &gatedFetcher{
		inner:   newScenarioFetcher(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	collector := NewCollector(fetcher, cfg, NewCache(logger), logger)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := collector.CollectAll(firstCtx)
		firstErr <- err
	}()

	<-fetcher.started
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	secondErr := make(chan error, 1)
	go func() {
		_, err := collector.CollectAll(context.Background())
		secondErr <- err
	}()
	close(fetcher.release)

	require.NoError(t, <-secondErr)
	assert.Equal(t, int32(2), fetcher.inner.calls.Load())
}
