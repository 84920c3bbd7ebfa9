package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Catalog selects the analytics catalog and database a query runs against
type Catalog struct {
	Catalog  string
	Database string
}

var (
	// DefaultCatalog holds the processed L1 transactions
	DefaultCatalog = Catalog{Catalog: "default_catalog", Database: "mev_commit_8855"}
	// FastRPCCatalog holds the FastRPC transaction tables
	FastRPCCatalog = Catalog{Catalog: "pg_mev_commit_fastrpc", Database: "public"}
)

// Row is one result row of an analytics query
type Row []interface{}

// AnalyticsClient runs SQL through the analytics catalog API
type AnalyticsClient struct {
	baseURL   string
	authToken string
	http      httpDoer
	logger    *zap.Logger
}

// NewAnalyticsClient creates an analytics client
func NewAnalyticsClient(baseURL, authToken string, logger *zap.Logger) *AnalyticsClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if authToken == "" {
		logger.Warn("ANALYTICS_DB_AUTH_TOKEN not configured, analytics queries will fail")
	}
	return &AnalyticsClient{
		baseURL:   baseURL,
		authToken: authToken,
		http:      newHTTPDoer("analytics", logger),
		logger:    logger,
	}
}

// Configured reports whether an auth token is set
func (c *AnalyticsClient) Configured() bool {
	return c.authToken != ""
}

// Query posts sql to the catalog and returns the data rows
func (c *AnalyticsClient) Query(ctx context.Context, catalog Catalog, sql string) ([]Row, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("analytics DB auth token: %w", ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	u := fmt.Sprintf("%s/%s/databases/%s/sql", c.baseURL, catalog.Catalog, catalog.Database)
	headers := map[string]string{"Authorization": "Basic " + c.authToken}

	body, _, err := c.http.do(ctx, http.MethodPost, u, headers, map[string]string{"query": sql})
	if err != nil {
		c.logger.Error("analytics query failed", zap.String("sql", sql), zap.Error(err))
		return nil, err
	}

	rows := ParseNDJSON(body, c.logger)
	c.logger.Debug("analytics query executed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// ParseNDJSON extracts the data arrays of an NDJSON response. Lines that
// are not JSON or carry no data array are skipped.
func ParseNDJSON(body []byte, logger *zap.Logger) []Row {
	var rows []Row

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var parsed struct {
			Data []interface{} `json:"data"`
		}
		decoder := json.NewDecoder(bytes.NewReader(line))
		decoder.UseNumber()
		if err := decoder.Decode(&parsed); err != nil {
			if logger != nil {
				logger.Warn("skipping invalid NDJSON line", zap.Error(err))
			}
			continue
		}
		if parsed.Data == nil {
			continue
		}
		rows = append(rows, Row(parsed.Data))
	}

	return rows
}
