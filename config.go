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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Source datasets
	ConsumptionURL       string `yaml:"consumption_url"`
	PriceURL             string `yaml:"price_url"`
	ConsumptionDelimiter string `yaml:"consumption_delimiter"`
	PriceDelimiter       string `yaml:"price_delimiter"`
	PriceDecimal         string `yaml:"price_decimal"`

	// Dashboard defaults
	DefaultStart    string `yaml:"default_start"`
	DefaultEnd      string `yaml:"default_end"`
	DefaultGrouping string `yaml:"default_grouping"`

	// Server
	ListenAddr         string `yaml:"listen_addr"`
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`

	// Logging
	LogFormat string `yaml:"log_format"`
	Debug     bool   `yaml:"debug"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		ConsumptionURL:       DefaultConsumptionURL,
		PriceURL:             DefaultPriceURL,
		ConsumptionDelimiter: ",",
		PriceDelimiter:       ";",
		PriceDecimal:         ",",
		DefaultStart:         DefaultStartDate,
		DefaultEnd:           DefaultEndDate,
		DefaultGrouping:      DefaultGrouping,
		ListenAddr:           ":8080",
		HTTPTimeoutSeconds:   60,
		LogFormat:            "text",
		Debug:                false,
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	// Set defaults
	config := DefaultConfig()

	// If no path provided, return defaults with env var overrides
	if path == "" {
		config.applyEnvironmentVariables()
		return config, nil
	}

	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			config.applyEnvironmentVariables()
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentVariables()

	return config, nil
}

// applyEnvironmentVariables overrides config with environment variables
func (c *Config) applyEnvironmentVariables() {
	if val := os.Getenv("ELECDASH_CONSUMPTION_URL"); val != "" {
		c.ConsumptionURL = val
	}
	if val := os.Getenv("ELECDASH_PRICE_URL"); val != "" {
		c.PriceURL = val
	}
	if val := os.Getenv("ELECDASH_LISTEN_ADDR"); val != "" {
		c.ListenAddr = val
	}
	if val := os.Getenv("ELECDASH_HTTP_TIMEOUT_SECONDS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.HTTPTimeoutSeconds = n
		}
	}
	if val := os.Getenv("ELECDASH_LOG_FORMAT"); val != "" {
		c.LogFormat = val
	}
	if val := os.Getenv("ELECDASH_DEBUG"); val == "true" || val == "1" {
		c.Debug = true
	}
}

// HTTPTimeout returns the client timeout for source downloads
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// DefaultParams returns the dashboard controls used when a request omits them
func (c *Config) DefaultParams() (ViewParams, error) {
	return ParseViewParams(c.DefaultStart, c.DefaultEnd, c.DefaultGrouping)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	if c.ConsumptionURL == "" {
		errors = append(errors, "consumption_url is required")
	}
	if c.PriceURL == "" {
		errors = append(errors, "price_url is required")
	}

	for name, val := range map[string]string{
		"consumption_delimiter": c.ConsumptionDelimiter,
		"price_delimiter":       c.PriceDelimiter,
		"price_decimal":         c.PriceDecimal,
	} {
		if utf8.RuneCountInString(val) != 1 {
			errors = append(errors, (&ConfigError{Field: name, Message: "must be a single character"}).Error())
		}
	}
	if c.PriceDelimiter != "" && c.PriceDelimiter == c.PriceDecimal {
		errors = append(errors, "price_delimiter and price_decimal must differ")
	}

	if _, err := c.DefaultParams(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.HTTPTimeoutSeconds < 1 {
		errors = append(errors, "http_timeout_seconds must be at least 1")
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, "log_format must be text or json")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// delimiterRune returns the first rune of a single-character setting
func delimiterRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
