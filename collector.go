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
	"fmt"
	"time"
)

// TableFetcher downloads one delimited source file
type TableFetcher interface {
	FetchTable(ctx context.Context, source, locator string, delimiter rune) (*Table, error)
}

// Collector loads both source datasets through the process-wide cache
type Collector struct {
	fetcher TableFetcher
	config  *Config
	cache   *Cache
	logger  *Logger
}

// NewCollector creates a new data collector
func NewCollector(fetcher TableFetcher, config *Config, cache *Cache, logger *Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		config:  config,
		cache:   cache,
		logger:  logger,
	}
}

// cacheKey identifies a load by its fixed source locators
func (c *Collector) cacheKey() string {
	return fmt.Sprintf("%s|%s", c.config.ConsumptionURL, c.config.PriceURL)
}

// CollectAll returns both raw tables, downloading them on first use only
func (c *Collector) CollectAll(ctx context.Context) (*RawData, error) {
	return c.cache.GetOrLoad(ctx, c.cacheKey(), c.fetchAll)
}

func (c *Collector) fetchAll(ctx context.Context) (*RawData, error) {
	c.logger.Info("Starting data collection")

	consumption, err := c.fetcher.FetchTable(ctx, SourceConsumption, c.config.ConsumptionURL, delimiterRune(c.config.ConsumptionDelimiter))
	if err != nil {
		return nil, fmt.Errorf("failed to load consumption data: %w", err)
	}

	price, err := c.fetcher.FetchTable(ctx, SourcePrice, c.config.PriceURL, delimiterRune(c.config.PriceDelimiter))
	if err != nil {
		return nil, fmt.Errorf("failed to load price data: %w", err)
	}

	c.logger.Info("Data collection completed",
		"consumption_rows", len(consumption.Rows),
		"price_rows", len(price.Rows),
	)

	return &RawData{
		Consumption: *consumption,
		Price:       *price,
		FetchedAt:   time.Now(),
	}, nil
}
