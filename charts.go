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
	"bytes"
	"encoding/base64"
	"fmt"
	"math"

	charts "github.com/vicanso/go-charts/v2"
	chart "github.com/wcharczuk/go-chart/v2"
)

// SeriesChart is one rendered time-series chart
type SeriesChart struct {
	Title  string
	Unit   string
	Base64 string // PNG, empty when there was nothing to plot
}

// seriesSpec describes which bucket column a time-series chart plots
type seriesSpec struct {
	title string
	unit  string
	value func(AggregatedBucket) float64
}

var dashboardSeries = []seriesSpec{
	{"Electricity consumption (kWh)", "kWh", func(b AggregatedBucket) float64 { return b.KWhSum }},
	{"Electricity price (cents)", "cents/kWh", func(b AggregatedBucket) float64 { return b.PriceMean }},
	{"Electricity bill (€)", "Euros (€)", func(b AggregatedBucket) float64 { return b.BillSum }},
	{"Temperature", "°C", func(b AggregatedBucket) float64 { return b.TemperatureMean }},
}

// ChartGenerator handles chart generation
type ChartGenerator struct {
	theme  string
	width  int
	height int
}

// NewChartGenerator creates a new chart generator
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{
		theme:  "dark", // Match the HTML dashboard dark theme
		width:  1200,
		height: 400,
	}
}

// GenerateSeriesCharts renders the consumption, price, bill and temperature
// charts over the resampled buckets. Empty buckets are drawn as gaps.
func (cg *ChartGenerator) GenerateSeriesCharts(dash *Dashboard) ([]SeriesChart, error) {
	labels := make([]string, len(dash.Buckets))
	for i, b := range dash.Buckets {
		labels[i] = periodLabel(b, dash.Params.Grouping)
	}

	out := make([]SeriesChart, 0, len(dashboardSeries))
	for _, spec := range dashboardSeries {
		sc := SeriesChart{Title: spec.title, Unit: spec.unit}

		values := make([]float64, len(dash.Buckets))
		plotted := 0
		for i, b := range dash.Buckets {
			v := spec.value(b)
			if b.Rows == 0 || math.IsNaN(v) {
				values[i] = charts.GetNullValue()
				continue
			}
			values[i] = v
			plotted++
		}

		if plotted > 0 {
			encoded, err := cg.renderLine(spec.title, labels, values, spec.unit)
			if err != nil {
				return nil, err
			}
			sc.Base64 = encoded
		}
		out = append(out, sc)
	}

	return out, nil
}

// renderLine draws one line chart and returns it base64 encoded
func (cg *ChartGenerator) renderLine(title string, labels []string, values []float64, legend string) (string, error) {
	p, err := charts.LineRender(
		[][]float64{values},
		charts.PNGTypeOption(),
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{legend}, charts.PositionRight),
		charts.ThemeOptionFunc(cg.getTheme()),
		charts.WidthOptionFunc(cg.width),
		charts.HeightOptionFunc(cg.height),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s chart: %w", title, err)
	}

	// Convert to base64 for embedding in HTML
	buf, err := p.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// GenerateHourlyChart plots the average consumption per hour of day with
// point markers. Returns "" when fewer than two hours have data.
func (cg *ChartGenerator) GenerateHourlyChart(hourly []HourlyPattern) (string, error) {
	var xs, ys []float64
	for _, h := range hourly {
		if math.IsNaN(h.KWhMean) {
			continue
		}
		xs = append(xs, float64(h.Hour))
		ys = append(ys, h.KWhMean)
	}
	if len(xs) < 2 {
		return "", nil
	}

	ticks := make([]chart.Tick, 0, 12)
	for hour := 0; hour < 24; hour += 2 {
		ticks = append(ticks, chart.Tick{Value: float64(hour), Label: fmt.Sprintf("%d", hour)})
	}

	graph := chart.Chart{
		Title:  "Hourly Patterns",
		Width:  cg.width,
		Height: cg.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Hour of Day (0 = Midnight)",
			Range: &chart.ContinuousRange{Min: 0, Max: 23},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Average Consumption (kWh)",
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Avg Consumption (kWh)",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
					DotColor:    chart.ColorBlue,
					DotWidth:    4,
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return "", fmt.Errorf("failed to render hourly chart: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// getTheme returns the chart theme name
func (cg *ChartGenerator) getTheme() string {
	return cg.theme
}
