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
	"math"
	"sort"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FilterRange keeps records from the start date's midnight up to, but not
// including, midnight after the end date. The input must be time-ordered;
// the result is a contiguous slice of it. An inverted range yields nothing.
func FilterRange(records []MergedRecord, r DateRange) []MergedRecord {
	lower, upper := r.Bounds()
	if !lower.Before(upper) {
		return nil
	}

	first := sort.Search(len(records), func(i int) bool {
		return !records[i].Time.Before(lower)
	})
	last := sort.Search(len(records), func(i int) bool {
		return !records[i].Time.Before(upper)
	})
	if first >= last {
		return nil
	}
	return records[first:last]
}

// periodStart truncates t to the start of its grouping period.
// Weeks are ISO weeks starting on Monday.
func periodStart(t time.Time, g Grouping) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch g {
	case GroupWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case GroupMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

// nextPeriod returns the start of the period following start
func nextPeriod(start time.Time, g Grouping) time.Time {
	switch g {
	case GroupWeekly:
		return start.AddDate(0, 0, 7)
	case GroupMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// Resample buckets time-ordered records into calendar periods. kWh and
// bill are summed, price and temperature averaged, NaN cells skipped.
// Every period from the first to the last record is emitted; periods
// without rows have zero sums and NaN means.
func Resample(records []MergedRecord, g Grouping) []AggregatedBucket {
	if len(records) == 0 {
		return nil
	}

	grouped := lo.GroupBy(records, func(r MergedRecord) int64 {
		return periodStart(r.Time, g).Unix()
	})

	firstPeriod := periodStart(records[0].Time, g)
	lastPeriod := periodStart(records[len(records)-1].Time, g)

	var buckets []AggregatedBucket
	for start := firstPeriod; !start.After(lastPeriod); start = nextPeriod(start, g) {
		rows := grouped[start.Unix()]
		buckets = append(buckets, AggregatedBucket{
			PeriodStart:     start,
			PeriodEnd:       nextPeriod(start, g),
			Rows:            len(rows),
			KWhSum:          nanSum(column(rows, kwhOf)),
			BillSum:         nanSum(column(rows, billOf)),
			PriceMean:       nanMean(column(rows, priceOf)),
			TemperatureMean: nanMean(column(rows, temperatureOf)),
		})
	}

	return buckets
}

// HourlyPatterns averages kWh and price per hour of day across all records.
// Only hours that occur are returned, in ascending order.
func HourlyPatterns(records []MergedRecord) []HourlyPattern {
	grouped := lo.GroupBy(records, func(r MergedRecord) int { return r.Time.Hour() })

	hours := lo.Keys(grouped)
	sort.Ints(hours)

	patterns := make([]HourlyPattern, 0, len(hours))
	for _, hour := range hours {
		rows := grouped[hour]
		patterns = append(patterns, HourlyPattern{
			Hour:      hour,
			Rows:      len(rows),
			KWhMean:   nanMean(column(rows, kwhOf)),
			PriceMean: nanMean(column(rows, priceOf)),
		})
	}
	return patterns
}

// Summarize computes the headline metrics. The average paid price is the
// consumption-weighted price in cents, 0 when nothing was consumed.
func Summarize(records []MergedRecord) Summary {
	summary := Summary{
		TotalKWh:       nanSum(column(records, kwhOf)),
		TotalBill:      nanSum(column(records, billOf)),
		AvgHourlyPrice: nanMean(column(records, priceOf)),
	}
	if summary.TotalKWh > 0 {
		summary.AvgPaidPriceCents = (summary.TotalBill / summary.TotalKWh) * MinorUnitsPerMajor
	}
	return summary
}

// ComputeSeriesStats returns mean, max and min ignoring NaN cells
func ComputeSeriesStats(values []float64) SeriesStats {
	present := dropNaN(values)
	if len(present) == 0 {
		return SeriesStats{Mean: math.NaN(), Max: math.NaN(), Min: math.NaN()}
	}
	return SeriesStats{
		Mean: stat.Mean(present, nil),
		Max:  floats.Max(present),
		Min:  floats.Min(present),
	}
}

// AssessQuality describes coverage of the filtered records
func AssessQuality(filtered []MergedRecord, ds *Dataset) DataQuality {
	quality := DataQuality{
		HoursAnalyzed:       len(filtered),
		MissingPricesFilled: ds.Imputation.Filled,
		TotalRecords:        len(ds.Records),
	}
	quality.CompleteRows = lo.CountBy(filtered, func(r MergedRecord) bool {
		return r.HasPrice && !math.IsNaN(r.KWh) && !math.IsNaN(r.Temperature)
	})
	if len(filtered) > 0 {
		quality.FirstTime = filtered[0].Time
		quality.LastTime = filtered[len(filtered)-1].Time
	}
	return quality
}

func kwhOf(r MergedRecord) float64         { return r.KWh }
func billOf(r MergedRecord) float64        { return r.Bill }
func priceOf(r MergedRecord) float64       { return r.Price }
func temperatureOf(r MergedRecord) float64 { return r.Temperature }

func column(records []MergedRecord, get func(MergedRecord) float64) []float64 {
	return lo.Map(records, func(r MergedRecord, _ int) float64 { return get(r) })
}

func dropNaN(values []float64) []float64 {
	return lo.Filter(values, func(v float64, _ int) bool { return !math.IsNaN(v) })
}

// nanSum is 0 for an empty or all-NaN input
func nanSum(values []float64) float64 {
	return floats.Sum(dropNaN(values))
}

// nanMean is NaN for an empty or all-NaN input
func nanMean(values []float64) float64 {
	present := dropNaN(values)
	if len(present) == 0 {
		return math.NaN()
	}
	return stat.Mean(present, nil)
}
