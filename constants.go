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

import "time"

const (
	// DefaultConsumptionURL is the hourly consumption dataset
	DefaultConsumptionURL = "https://github.com/Bhandka/Final-Assignment/raw/main/Electricity_consumption_2015-2025.csv"

	// DefaultPriceURL is the hourly spot price dataset
	DefaultPriceURL = "https://github.com/Bhandka/Final-Assignment/raw/main/Electricity_price_2015-2025.csv"
)

// Source names used in logs, errors and metrics
const (
	SourceConsumption = "consumption"
	SourcePrice       = "price"
)

// Column names in the source files
const (
	ColumnConsumptionTime = "time"
	ColumnKWh             = "kWh"
	ColumnTemperature     = "Temperature"
	ColumnPriceTime       = "timestamp"
	ColumnPrice           = "Price"
)

// PriceTimeLayout is the only accepted layout for the price timestamp column.
// 24-hour clock, then month/day/year.
const PriceTimeLayout = "15:04 01/02/2006"

// consumptionTimeLayouts are tried in order for the consumption time column
var consumptionTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DateLayout is used for date-range inputs and date display
const DateLayout = "2006-01-02"

// MinorUnitsPerMajor converts cents to euros
const MinorUnitsPerMajor = 100.0

// PreviewRows is the number of raw rows shown per dataset
const PreviewRows = 5

// Default dashboard controls
const (
	DefaultStartDate = "2022-01-01"
	DefaultEndDate   = "2024-06-01"
	DefaultGrouping  = "Daily"
)
