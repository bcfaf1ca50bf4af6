package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/dnldd/pullback/shared"
	"github.com/tidwall/gjson"
)

const (
	// defaultFMPBaseURL is the default base url of the FMP api.
	defaultFMPBaseURL = "https://financialmodelingprep.com/stable"
)

// FMPConfig represents the configuration for the FMP client.
type FMPConfig struct {
	// APIkey is the FMP API Key.
	APIKey string
	// BaseURL is the base url of the api, defaults to the FMP stable api.
	BaseURL string
}

// FMPClient represents the Financial Modeling Preparation (FMP) API client.
type FMPClient struct {
	cfg    *FMPConfig
	httpc  http.Client
	buf    *bytes.Buffer
	bufMtx sync.Mutex
}

// Ensure the FMPClient implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*FMPClient)(nil)

// NewFMPClient instantiates a new FMP client.
func NewFMPClient(cfg *FMPConfig) *FMPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultFMPBaseURL
	}

	return &FMPClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
		buf:   bytes.NewBuffer(make([]byte, 0, 512)),
	}
}

// formURL creates full urls including paramters for the api.
func (c *FMPClient) formURL(path string, params string) string {
	c.bufMtx.Lock()
	defer c.bufMtx.Unlock()

	c.buf.WriteString(c.cfg.BaseURL)
	c.buf.WriteString(path)
	c.buf.WriteString("?")
	c.buf.WriteString(params)
	url := c.buf.String()
	c.buf.Reset()

	return url
}

// historicalPath returns the intraday historical chart path of the provided timeframe.
func historicalPath(timeframe shared.Timeframe) (string, error) {
	switch timeframe {
	case shared.FiveMinute:
		return "/historical-chart/5min", nil
	case shared.FifteenMinute:
		return "/historical-chart/15min", nil
	case shared.OneHour:
		return "/historical-chart/1hour", nil
	case shared.FourHour:
		return "/historical-chart/4hour", nil
	default:
		return "", fmt.Errorf("unknown timeframe provided: %s", timeframe.String())
	}
}

// FetchIndexIntradayHistorical fetches intraday historical market data, newest first.
func (c *FMPClient) FetchIndexIntradayHistorical(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]gjson.Result, error) {
	path, err := historicalPath(timeframe)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("symbol", market)
	params.Add("apikey", c.cfg.APIKey)
	if !start.IsZero() {
		params.Add("from", start.Format(time.DateOnly))
	}
	if !end.IsZero() {
		params.Add("to", end.Format(time.DateOnly))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.formURL(path, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching intraday historical data (%s) for %s: %w", timeframe.String(), market, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching %s data for %s (%d): %s",
			timeframe.String(), market, resp.StatusCode, gjson.GetBytes(body, "Error Message").String())
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("unexpected response fetching %s data for %s: %s",
			timeframe.String(), market, parsed.Raw)
	}

	return parsed.Array(), nil
}

// FetchCandles fetches the most recent n candles of a market, oldest first.
func (c *FMPClient) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, n int) ([]shared.Candlestick, error) {
	// Request enough calendar days to cover the requested candles.
	days := time.Duration(n)*timeframe.Duration()/(time.Hour*24) + 5
	start := time.Now().UTC().Add(-(days * time.Hour * 24))

	data, err := c.FetchIndexIntradayHistorical(ctx, market, timeframe, start, time.Time{})
	if err != nil {
		return nil, err
	}

	candles, err := shared.ParseCandlesticks(data, market, timeframe)
	if err != nil {
		return nil, fmt.Errorf("parsing candlesticks: %w", err)
	}

	slices.SortFunc(candles, func(a, b shared.Candlestick) int {
		return a.Date.Compare(b.Date)
	})

	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}

	return candles, nil
}
