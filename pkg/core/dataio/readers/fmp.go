package readers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"finstatements/pkg/core/config"
	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"github.com/iancoleman/strcase"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// FMP READER - Financial Modeling Prep statements API
// =============================================================================

var fmpEndpoints = map[string]string{
	ioconfig.StatementIncome:   "income-statement",
	ioconfig.StatementBalance:  "balance-sheet-statement",
	ioconfig.StatementCashFlow: "cash-flow-statement",
}

// Response fields that describe the filing rather than a line item.
var fmpMetadataFields = map[string]bool{
	"date":             true,
	"symbol":           true,
	"reportedCurrency": true,
	"cik":              true,
	"fillingDate":      true,
	"filingDate":       true,
	"acceptedDate":     true,
	"calendarYear":     true,
	"fiscalYear":       true,
	"period":           true,
	"link":             true,
	"finalLink":        true,
}

// FMPReader fetches one statement for a ticker and builds a Graph with one
// node per numeric field.
type FMPReader struct {
	cfg        ioconfig.FMPReaderConfig
	defaults   iocore.ScopedMapping
	httpClient *http.Client
}

// NewFMPReader is the fmp reader factory.
func NewFMPReader(cfg any, hc iocore.HandlerContext) (iocore.Reader, error) {
	c, ok := cfg.(ioconfig.FMPReaderConfig)
	if !ok {
		return nil, fmt.Errorf("fmp reader requires FMPReaderConfig, got %T", cfg)
	}
	return &FMPReader{
		cfg:      c,
		defaults: hc.Defaults,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Get().API.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Read fetches the configured statement for source (the ticker). The ticker
// given to Read takes precedence over the configured one.
func (r *FMPReader) Read(ctx context.Context, source any, opts iocore.Options) (*graph.Graph, error) {
	cfg := r.cfg
	if s, ok := source.(string); ok && strings.TrimSpace(s) != "" {
		cfg.Source = strings.ToUpper(strings.TrimSpace(s))
	}
	ticker := cfg.Ticker()

	if cfg.ValidateAPIKey {
		if err := r.validateAPIKey(ctx, cfg.BaseURL, cfg.APIKey); err != nil {
			return nil, iocore.NewReadError("FMP API key validation failed", ticker, ioconfig.FormatFMP, err)
		}
	}

	records, err := r.fetch(ctx, cfg)
	if err != nil {
		return nil, iocore.NewReadError("Failed to fetch data from FMP API", ticker, ioconfig.FormatFMP, err)
	}
	if len(records) == 0 {
		return nil, iocore.NewReadError(
			fmt.Sprintf("No %s data returned for %s", cfg.StatementType, ticker), ticker, ioconfig.FormatFMP, nil)
	}

	// Newest period first on the wire.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	mapping := iocore.Mapper{Defaults: r.defaults, User: cfg.MappingConfig}.Mapping(cfg.StatementType)
	items := newItemValues()
	var periods []string

	for _, rec := range records {
		period, err := fmpPeriod(rec, cfg.PeriodType)
		if err != nil {
			return nil, iocore.NewReadError("Unexpected FMP response", ticker, ioconfig.FormatFMP, err)
		}
		periods = append(periods, period)

		for field, raw := range rec {
			if fmpMetadataFields[field] {
				continue
			}
			v, ok := raw.(float64)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			canonical, mapped := mapping[field]
			if !mapped {
				canonical = strcase.ToSnake(field)
			}
			name, ok := iocore.ValidateNodeName(canonical, false)
			if !ok {
				continue
			}
			items.touch(name)[period] = v
		}
	}

	// Field iteration above is unordered; keep node order stable.
	sort.Strings(items.order)
	return buildItemGraph(periods, items, ticker, ioconfig.FormatFMP)
}

func (r *FMPReader) fetch(ctx context.Context, cfg ioconfig.FMPReaderConfig) ([]map[string]any, error) {
	endpoint, ok := fmpEndpoints[cfg.StatementType]
	if !ok {
		return nil, fmt.Errorf("unsupported statement type %q", cfg.StatementType)
	}

	period := "annual"
	if cfg.PeriodType == ioconfig.PeriodQuarterly {
		period = "quarter"
	}
	q := url.Values{}
	q.Set("period", period)
	q.Set("limit", strconv.Itoa(cfg.Limit))
	q.Set("apikey", cfg.APIKey)
	endpointURL := fmt.Sprintf("%s/%s/%s?%s", cfg.BaseURL, endpoint, url.PathEscape(cfg.Ticker()), q.Encode())

	log := logging.Named("io.fmp")
	log.Info("fetching statement",
		zap.String("ticker", cfg.Ticker()),
		zap.String("statement", cfg.StatementType),
		zap.String("period", period),
		zap.Int("limit", cfg.Limit))

	body, err := r.get(ctx, endpointURL)
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		var apiErr map[string]any
		if json.Unmarshal(body, &apiErr) == nil {
			if msg, ok := apiErr["Error Message"].(string); ok {
				return nil, fmt.Errorf("API error: %s", msg)
			}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}

func (r *FMPReader) get(ctx context.Context, endpointURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", redactKey(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

type httpStatusError struct {
	Status int
	Body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// =============================================================================
// API KEY VALIDATION CACHE
// =============================================================================

type apiKeyCache struct {
	mu     sync.Mutex
	valid  map[uint64]bool
	flight singleflight.Group
}

var fmpKeys = &apiKeyCache{valid: make(map[uint64]bool)}

func (c *apiKeyCache) lookup(h uint64) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.valid[h]
	return v, ok
}

func (c *apiKeyCache) store(h uint64, valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid[h] = valid
}

func (c *apiKeyCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = make(map[uint64]bool)
}

// validateAPIKey checks the key with a cheap profile request once per
// (base URL, key). Transport failures are not cached. The shared request is
// detached from the first caller's cancellation.
func (r *FMPReader) validateAPIKey(ctx context.Context, baseURL, key string) error {
	h := xxh3.HashString(baseURL + "\x00" + key)
	if valid, ok := fmpKeys.lookup(h); ok {
		if !valid {
			return fmt.Errorf("invalid FMP API key")
		}
		return nil
	}

	v, err, _ := fmpKeys.flight.Do(strconv.FormatUint(h, 16), func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		q := url.Values{}
		q.Set("apikey", key)
		body, err := r.get(fctx, fmt.Sprintf("%s/profile/AAPL?%s", baseURL, q.Encode()))
		if err != nil {
			if se, ok := err.(*httpStatusError); ok && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
				fmpKeys.store(h, false)
				return false, nil
			}
			return false, err
		}

		var profile []map[string]any
		valid := json.Unmarshal(body, &profile) == nil && len(profile) > 0
		fmpKeys.store(h, valid)
		return valid, nil
	})
	if err != nil {
		return err
	}
	if !v.(bool) {
		return fmt.Errorf("invalid FMP API key")
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// fmpPeriod derives "2023" (FY) or "2023Q4" (QTR) from a record.
func fmpPeriod(rec map[string]any, periodType string) (string, error) {
	year := ""
	switch y := rec["calendarYear"].(type) {
	case string:
		year = strings.TrimSpace(y)
	case float64:
		year = strconv.Itoa(int(y))
	}
	if year == "" {
		if date, ok := rec["date"].(string); ok && len(date) >= 4 {
			year = date[:4]
		}
	}
	if year == "" {
		return "", fmt.Errorf("record has neither calendarYear nor date")
	}

	if periodType != ioconfig.PeriodQuarterly {
		return year, nil
	}
	quarter, _ := rec["period"].(string)
	quarter = strings.ToUpper(strings.TrimSpace(quarter))
	if !strings.HasPrefix(quarter, "Q") {
		return "", fmt.Errorf("quarterly record %s has period %q", year, quarter)
	}
	return year + quarter, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// redactKey strips the query string (which carries the API key) from URL
// errors.
func redactKey(err error) error {
	if ue, ok := err.(*url.Error); ok {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
		}
	}
	return err
}
