package registry

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/collab/market"
)

// ===================================
// Market Tools (currency, stocks)
// ===================================

type ConvertCurrencyInput struct {
	Amount       float64 `json:"amount"`
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
}

type ConvertCurrencyOutput struct {
	Amount      float64 `json:"amount"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Rate        float64 `json:"rate"`
	Converted   float64 `json:"converted"`
	Approximate bool    `json:"approximate,omitempty"`
	Summary     string  `json:"summary"`
}

func convertCurrencyTool(rates *market.Client) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "convert_currency",
			Desc: "Convert an amount from one currency to another using current exchange rates.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"amount": {
					Type:     "number",
					Desc:     "Amount to convert, positive number",
					Required: true,
				},
				"from_currency": {
					Type:     "string",
					Desc:     "Source currency code (USD, EUR, GBP, THB, JPY, ...)",
					Required: true,
				},
				"to_currency": {
					Type:     "string",
					Desc:     "Target currency code",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *ConvertCurrencyInput) (*ConvertCurrencyOutput, error) {
			if in.Amount <= 0 {
				return nil, &model.SlotError{Slot: "amount", Reason: "must be a positive number"}
			}
			if !market.Supported(in.FromCurrency) {
				return nil, &model.SlotError{Slot: "from_currency", Reason: fmt.Sprintf("unknown currency %q", in.FromCurrency)}
			}
			if !market.Supported(in.ToCurrency) {
				return nil, &model.SlotError{Slot: "to_currency", Reason: fmt.Sprintf("unknown currency %q", in.ToCurrency)}
			}

			conv, err := rates.Convert(ctx, in.Amount, in.FromCurrency, in.ToCurrency)
			if err != nil {
				return nil, err
			}
			return &ConvertCurrencyOutput{
				Amount:      conv.Amount,
				From:        conv.From,
				To:          conv.To,
				Rate:        conv.Rate,
				Converted:   conv.Converted,
				Approximate: conv.Approximate,
				Summary:     fmt.Sprintf("%.2f %s = %.2f %s (rate %.4f)", conv.Amount, conv.From, conv.Converted, conv.To, conv.Rate),
			}, nil
		},
	)
}

type ExchangeRateInput struct {
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
}

type ExchangeRateOutput struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Rate        float64 `json:"rate"`
	Approximate bool    `json:"approximate,omitempty"`
	Summary     string  `json:"summary"`
}

func getExchangeRateTool(rates *market.Client) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "get_exchange_rate",
			Desc: "Get the current exchange rate between two currencies.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"from_currency": {
					Type:     "string",
					Desc:     "Base currency code",
					Required: true,
				},
				"to_currency": {
					Type:     "string",
					Desc:     "Target currency code",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *ExchangeRateInput) (*ExchangeRateOutput, error) {
			if !market.Supported(in.FromCurrency) {
				return nil, &model.SlotError{Slot: "from_currency", Reason: fmt.Sprintf("unknown currency %q", in.FromCurrency)}
			}
			if !market.Supported(in.ToCurrency) {
				return nil, &model.SlotError{Slot: "to_currency", Reason: fmt.Sprintf("unknown currency %q", in.ToCurrency)}
			}

			conv, err := rates.Rate(ctx, in.FromCurrency, in.ToCurrency)
			if err != nil {
				return nil, err
			}
			return &ExchangeRateOutput{
				From:        conv.From,
				To:          conv.To,
				Rate:        conv.Rate,
				Approximate: conv.Approximate,
				Summary:     fmt.Sprintf("1 %s = %.4f %s", conv.From, conv.Rate, conv.To),
			}, nil
		},
	)
}

type StockPriceInput struct {
	Symbol string `json:"symbol"`
}

type StockPriceOutput struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	Approximate bool    `json:"approximate,omitempty"`
	Summary     string  `json:"summary"`
}

func getStockPriceTool(quotes *market.QuoteClient) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "get_stock_price",
			Desc: "Get the latest price for a stock ticker symbol.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol, e.g. AAPL, MSFT, TSLA",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *StockPriceInput) (*StockPriceOutput, error) {
			q, err := quotes.Quote(ctx, in.Symbol)
			if err != nil {
				return nil, err
			}
			return &StockPriceOutput{
				Symbol:      q.Symbol,
				Price:       q.Price,
				Approximate: q.Approximate,
				Summary:     fmt.Sprintf("%s is trading at %.2f", q.Symbol, q.Price),
			}, nil
		},
	)
}

type StockQuoteInput struct {
	Symbol string `json:"symbol"`
}

type StockQuoteOutput struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	Approximate   bool    `json:"approximate,omitempty"`
	Summary       string  `json:"summary"`
}

func getStockQuoteTool(quotes *market.QuoteClient) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "get_stock_quote",
			Desc: "Get a detailed quote for a stock: price, change, and volume.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol, e.g. AAPL, MSFT, TSLA",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *StockQuoteInput) (*StockQuoteOutput, error) {
			q, err := quotes.Quote(ctx, in.Symbol)
			if err != nil {
				return nil, err
			}
			return &StockQuoteOutput{
				Symbol:        q.Symbol,
				Price:         q.Price,
				Change:        q.Change,
				ChangePercent: q.ChangePercent,
				Volume:        q.Volume,
				Approximate:   q.Approximate,
				Summary: fmt.Sprintf("%s: %.2f (%+.2f, %+.2f%%)",
					q.Symbol, q.Price, q.Change, q.ChangePercent),
			}, nil
		},
	)
}

func marketTools(rates *market.Client, quotes *market.QuoteClient) []tool.BaseTool {
	return []tool.BaseTool{
		convertCurrencyTool(rates),
		getExchangeRateTool(rates),
		getStockPriceTool(quotes),
		getStockQuoteTool(quotes),
	}
}
