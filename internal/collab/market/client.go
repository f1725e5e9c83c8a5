package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	errx "github.com/Finmate-core-poc/server/internal/core/error"
)

type Config struct {
	BaseURL string `split_words:"true" default:"https://v6.exchangerate-api.com/v6"`
	APIKey  string `envconfig:"API_KEY"`
	Timeout int    `split_words:"true" default:"10"`
}

// Client talks to the exchange-rate service. With no API key configured it
// falls back to a static approximate-rate table so the assistant stays
// usable offline.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var supportedCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "THB": true, "JPY": true,
	"CNY": true, "KRW": true, "INR": true, "AUD": true, "CAD": true,
	"CHF": true, "SGD": true, "HKD": true, "NZD": true, "SEK": true,
	"NOK": true, "DKK": true, "MXN": true, "BRL": true, "ZAR": true,
}

// fallbackRates are approximate pair rates used when no API key is set.
// Missing pairs resolve through the inverse pair or a USD hop.
var fallbackRates = map[[2]string]float64{
	{"USD", "EUR"}: 0.92,
	{"USD", "GBP"}: 0.79,
	{"USD", "THB"}: 35.5,
	{"USD", "JPY"}: 149.5,
	{"EUR", "USD"}: 1.09,
	{"EUR", "GBP"}: 0.86,
	{"GBP", "USD"}: 1.27,
	{"THB", "USD"}: 0.028,
	{"JPY", "USD"}: 0.0067,
}

func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Live reports whether the client has a key for real-time rates.
func (c *Client) Live() bool {
	return c.apiKey != ""
}

// Supported reports whether the currency code is one the service handles.
func Supported(code string) bool {
	return supportedCurrencies[strings.ToUpper(strings.TrimSpace(code))]
}

type Conversion struct {
	From      string
	To        string
	Amount    float64
	Rate      float64
	Converted float64
	// Approximate is true when the static fallback table supplied the rate.
	Approximate bool
	UpdatedAt   string
}

// pairResponse mirrors the /pair endpoint body.
type pairResponse struct {
	Result           string  `json:"result"`
	ErrorType        string  `json:"error-type"`
	ConversionRate   float64 `json:"conversion_rate"`
	ConversionResult float64 `json:"conversion_result"`
	LastUpdateUTC    string  `json:"time_last_update_utc"`
}

// Convert converts amount between two currency codes.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (*Conversion, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == to {
		return &Conversion{From: from, To: to, Amount: amount, Rate: 1, Converted: amount}, nil
	}

	if !c.Live() {
		rate := fallbackRate(from, to)
		return &Conversion{
			From: from, To: to, Amount: amount,
			Rate: rate, Converted: amount * rate,
			Approximate: true,
		}, nil
	}

	url := fmt.Sprintf("%s/%s/pair/%s/%s/%g", c.baseURL, c.apiKey, from, to, amount)
	var body pairResponse
	if err := c.get(ctx, url, &body); err != nil {
		return nil, err
	}
	if body.Result != "success" {
		return nil, errx.New(fmt.Errorf("exchange rate api: %s", body.ErrorType),
			http.StatusBadGateway, errx.UpstreamErrorMessage)
	}

	return &Conversion{
		From: from, To: to, Amount: amount,
		Rate: body.ConversionRate, Converted: body.ConversionResult,
		UpdatedAt: body.LastUpdateUTC,
	}, nil
}

// Rate returns the current rate for one unit of from in to.
func (c *Client) Rate(ctx context.Context, from, to string) (*Conversion, error) {
	return c.Convert(ctx, 1, from, to)
}

// latestResponse mirrors the /latest endpoint body.
type latestResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
	LastUpdateUTC   string             `json:"time_last_update_utc"`
}

// Rates returns rates for the given targets against base.
func (c *Client) Rates(ctx context.Context, base string, targets []string) (map[string]float64, error) {
	base = strings.ToUpper(strings.TrimSpace(base))

	out := make(map[string]float64, len(targets))
	if !c.Live() {
		for _, t := range targets {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == base {
				continue
			}
			out[t] = fallbackRate(base, t)
		}
		return out, nil
	}

	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)
	var body latestResponse
	if err := c.get(ctx, url, &body); err != nil {
		return nil, err
	}
	if body.Result != "success" {
		return nil, errx.New(fmt.Errorf("exchange rate api: %s", body.ErrorType),
			http.StatusBadGateway, errx.UpstreamErrorMessage)
	}

	for _, t := range targets {
		t = strings.ToUpper(strings.TrimSpace(t))
		if r, ok := body.ConversionRates[t]; ok && t != base {
			out[t] = r
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errx.WrapUpstream(err, 0, errx.UpstreamErrorMessage)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errx.WrapUpstream(err, 0, errx.UpstreamErrorMessage)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return errx.WrapUpstream(fmt.Errorf("status %d", resp.StatusCode), resp.StatusCode, errx.UpstreamErrorMessage)
	}

	if err := decodeJSON(resp, out); err != nil {
		return errx.WrapUpstream(err, 0, errx.UpstreamErrorMessage)
	}
	return nil
}

func decodeJSON(resp *http.Response, out any) error {
	return json.NewDecoder(resp.Body).Decode(out)
}

func fallbackRate(from, to string) float64 {
	if r, ok := fallbackRates[[2]string{from, to}]; ok {
		return r
	}
	if inv, ok := fallbackRates[[2]string{to, from}]; ok {
		return 1 / inv
	}
	// hop through USD
	toUSD, ok := fallbackRates[[2]string{from, "USD"}]
	if !ok {
		toUSD = 1
	}
	fromUSD, ok := fallbackRates[[2]string{"USD", to}]
	if !ok {
		fromUSD = 1
	}
	return toUSD * fromUSD
}
