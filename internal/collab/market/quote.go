package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	errx "github.com/Finmate-core-poc/server/internal/core/error"
)

type QuoteConfig struct {
	BaseURL string `split_words:"true" default:"https://www.alphavantage.co/query"`
	APIKey  string `envconfig:"API_KEY"`
	Timeout int    `split_words:"true" default:"10"`
}

// QuoteClient fetches equity quotes. Like the rate client, it degrades to a
// static snapshot table when no API key is configured.
type QuoteClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type Quote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        int64
	// Approximate is true when the static snapshot supplied the quote.
	Approximate bool
}

// fallbackQuotes is a static snapshot of common tickers, used without a key.
var fallbackQuotes = map[string]Quote{
	"AAPL":  {Symbol: "AAPL", Price: 229.87, Change: 1.52, ChangePercent: 0.67, Approximate: true},
	"GOOGL": {Symbol: "GOOGL", Price: 207.14, Change: -0.88, ChangePercent: -0.42, Approximate: true},
	"MSFT":  {Symbol: "MSFT", Price: 506.69, Change: 2.31, ChangePercent: 0.46, Approximate: true},
	"TSLA":  {Symbol: "TSLA", Price: 333.87, Change: -4.12, ChangePercent: -1.22, Approximate: true},
	"AMZN":  {Symbol: "AMZN", Price: 228.84, Change: 0.97, ChangePercent: 0.43, Approximate: true},
	"NVDA":  {Symbol: "NVDA", Price: 177.87, Change: 3.05, ChangePercent: 1.74, Approximate: true},
}

func NewQuoteClient(cfg QuoteConfig) *QuoteClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QuoteClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *QuoteClient) Live() bool {
	return c.apiKey != ""
}

// globalQuoteResponse mirrors the GLOBAL_QUOTE body. Alpha Vantage returns
// every field as a string.
type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
	Note         string `json:"Note"`
	ErrorMessage string `json:"Error Message"`
}

// Quote returns the latest quote for a ticker symbol.
func (c *QuoteClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errx.New(nil, http.StatusBadRequest, "symbol is required")
	}

	if !c.Live() {
		q, ok := fallbackQuotes[symbol]
		if !ok {
			return nil, errx.New(fmt.Errorf("unknown symbol %s", symbol),
				http.StatusNotFound, errx.UpstreamErrorMessage)
		}
		return &q, nil
	}

	u := fmt.Sprintf("%s?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errx.WrapUpstream(err, 0, errx.UpstreamErrorMessage)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errx.WrapUpstream(err, 0, errx.UpstreamErrorMessage)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errx.WrapUpstream(fmt.Errorf("status %d", resp.StatusCode), resp.StatusCode, errx.UpstreamErrorMessage)
	}

	var body globalQuoteResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, errx.WrapUpstream(err, 0, errx.UpstreamErrorMessage)
	}
	if body.ErrorMessage != "" {
		return nil, errx.New(fmt.Errorf("quote api: %s", body.ErrorMessage),
			http.StatusBadGateway, errx.UpstreamErrorMessage)
	}
	// A Note with an empty quote means throttling.
	if body.Note != "" && body.GlobalQuote.Symbol == "" {
		return nil, errx.New(fmt.Errorf("quote api throttled: %s", body.Note),
			http.StatusTooManyRequests, errx.UpstreamErrorMessage)
	}
	if body.GlobalQuote.Symbol == "" {
		return nil, errx.New(fmt.Errorf("unknown symbol %s", symbol),
			http.StatusNotFound, errx.UpstreamErrorMessage)
	}

	q := &Quote{Symbol: body.GlobalQuote.Symbol}
	q.Price, _ = strconv.ParseFloat(body.GlobalQuote.Price, 64)
	q.Change, _ = strconv.ParseFloat(body.GlobalQuote.Change, 64)
	q.Volume, _ = strconv.ParseInt(body.GlobalQuote.Volume, 10, 64)
	q.ChangePercent, _ = strconv.ParseFloat(strings.TrimSuffix(body.GlobalQuote.ChangePercent, "%"), 64)
	return q, nil
}
