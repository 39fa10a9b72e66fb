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
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CSVClient downloads and decodes the source CSV files
type CSVClient struct {
	httpClient *http.Client
	logger     *Logger
}

// NewCSVClient creates a new CSV client
func NewCSVClient(timeout time.Duration, logger *Logger) *CSVClient {
	return &CSVClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchTable downloads a CSV file and splits it with the given delimiter
func (c *CSVClient) FetchTable(ctx context.Context, source, locator string, delimiter rune) (*Table, error) {
	started := time.Now()

	body, err := c.fetch(ctx, source, locator)
	if err != nil {
		ObserveFetch(source, ResultError, time.Since(started))
		return nil, err
	}

	table, err := decodeTable(bytes.NewReader(body), delimiter)
	if err != nil {
		ObserveFetch(source, ResultError, time.Since(started))
		return nil, &FetchError{
			Source:  source,
			Locator: locator,
			Message: "failed to decode CSV",
			Err:     err,
		}
	}

	ObserveFetch(source, ResultSuccess, time.Since(started))
	c.logger.LogFetch(source, locator, len(body), time.Since(started))
	c.logger.Debug("Table decoded", "source", source, "columns", len(table.Header), "rows", len(table.Rows))
	return table, nil
}

// fetch performs the GET request and returns the whole body
func (c *CSVClient) fetch(ctx context.Context, source, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &FetchError{
			Source:  source,
			Locator: locator,
			Message: "failed to create request",
			Err:     err,
		}
	}

	req.Header.Set("User-Agent", GetUserAgent())
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.LogFetchError(source, locator, 0, err)
		return nil, &FetchError{
			Source:  source,
			Locator: locator,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.LogFetchError(source, locator, resp.StatusCode, fmt.Errorf("%s", string(bodyBytes)))
		return nil, &FetchError{
			Source:     source,
			Locator:    locator,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(bodyBytes)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{
			Source:  source,
			Locator: locator,
			Message: "failed to read response body",
			Err:     err,
		}
	}

	return body, nil
}

// decodeTable reads a delimited file with a mandatory header row
func decodeTable(r io.Reader, delimiter rune) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	table := &Table{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}
