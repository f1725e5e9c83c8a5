package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/collab/persistence"
)

// ===================================
// Ledger Tools (expenses, income, balance)
// ===================================

const defaultCurrency = "USD"

type CreateExpenseInput struct {
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Merchant string  `json:"merchant,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Note     string  `json:"note,omitempty"`
}

type CreateExpenseOutput struct {
	ID       uint64  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Category string  `json:"category"`
	Merchant string  `json:"merchant,omitempty"`
	Summary  string  `json:"summary"`
}

func createExpenseTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "create_expense",
			Desc: "Record a new expense in the user's ledger. Use whenever the user says they spent, bought, or paid for something.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"amount": {
					Type:     "number",
					Desc:     "Amount spent, positive number",
					Required: true,
				},
				"category": {
					Type:     "string",
					Desc:     "Spending category, e.g. food, transport, groceries, entertainment",
					Required: true,
				},
				"merchant": {
					Type: "string",
					Desc: "Where the money was spent, e.g. Starbucks",
				},
				"currency": {
					Type: "string",
					Desc: "3-letter currency code, defaults to the account currency",
				},
				"note": {
					Type: "string",
					Desc: "Free-form note",
				},
			}),
		},
		func(ctx context.Context, in *CreateExpenseInput) (*CreateExpenseOutput, error) {
			if in.Amount <= 0 {
				return nil, &model.SlotError{Slot: "amount", Reason: "must be a positive number"}
			}
			if in.Currency == "" {
				in.Currency = defaultCurrency
			}

			e := &persistence.Expense{
				Amount:   in.Amount,
				Currency: in.Currency,
				Category: in.Category,
				Merchant: in.Merchant,
				Note:     in.Note,
			}
			if err := ledger.CreateExpense(ctx, e); err != nil {
				return nil, err
			}

			return &CreateExpenseOutput{
				ID:       e.ID,
				Amount:   e.Amount,
				Currency: e.Currency,
				Category: e.Category,
				Merchant: e.Merchant,
				Summary:  fmt.Sprintf("Recorded %.2f %s on %s", e.Amount, e.Currency, e.Category),
			}, nil
		},
	)
}

type ListExpensesInput struct {
	Category string `json:"category,omitempty"`
	Days     int    `json:"days,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type ExpenseRow struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Category string  `json:"category"`
	Merchant string  `json:"merchant,omitempty"`
	SpentAt  string  `json:"spent_at"`
}

type ListExpensesOutput struct {
	Expenses []ExpenseRow `json:"expenses"`
	Total    float64      `json:"total"`
	Count    int          `json:"count"`
	Table    *model.Table `json:"table,omitempty"`
}

func listExpensesTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "list_expenses",
			Desc: "List recorded expenses, newest first, optionally filtered by category and time window.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"category": {
					Type: "string",
					Desc: "Only expenses in this category",
				},
				"days": {
					Type: "number",
					Desc: "Look-back window in days (default: 30)",
				},
				"limit": {
					Type: "number",
					Desc: "Maximum rows to return (default: 20)",
				},
			}),
		},
		func(ctx context.Context, in *ListExpensesInput) (*ListExpensesOutput, error) {
			if in.Days <= 0 {
				in.Days = 30
			}
			if in.Limit <= 0 {
				in.Limit = 20
			}
			from := time.Now().UTC().AddDate(0, 0, -in.Days)

			expenses, err := ledger.ListExpenses(ctx, from, time.Time{}, in.Category, in.Limit)
			if err != nil {
				return nil, err
			}

			out := &ListExpensesOutput{Count: len(expenses)}
			table := &model.Table{
				Title:   "Recent expenses",
				Columns: []string{"Date", "Category", "Merchant", "Amount"},
			}
			for _, e := range expenses {
				out.Total += e.Amount
				out.Expenses = append(out.Expenses, ExpenseRow{
					Amount:   e.Amount,
					Currency: e.Currency,
					Category: e.Category,
					Merchant: e.Merchant,
					SpentAt:  e.SpentAt.Format("2006-01-02"),
				})
				table.Rows = append(table.Rows, []string{
					e.SpentAt.Format("2006-01-02"),
					e.Category,
					e.Merchant,
					fmt.Sprintf("%.2f %s", e.Amount, e.Currency),
				})
			}
			if len(table.Rows) > 0 {
				out.Table = table
			}
			return out, nil
		},
	)
}

type SpendingByCategoryInput struct {
	Days int `json:"days,omitempty"`
}

type SpendingByCategoryOutput struct {
	Categories []model.ChartPoint     `json:"categories"`
	Total      float64                `json:"total"`
	Chart      *model.ChartDescriptor `json:"chart,omitempty"`
}

func spendingByCategoryTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "get_spending_by_category",
			Desc: "Aggregate spending per category over a time window. Returns chart-ready data for a pie breakdown.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"days": {
					Type: "number",
					Desc: "Look-back window in days (default: 30)",
				},
			}),
		},
		func(ctx context.Context, in *SpendingByCategoryInput) (*SpendingByCategoryOutput, error) {
			if in.Days <= 0 {
				in.Days = 30
			}
			from := time.Now().UTC().AddDate(0, 0, -in.Days)

			totals, err := ledger.SpendingByCategory(ctx, from, time.Time{})
			if err != nil {
				return nil, err
			}

			out := &SpendingByCategoryOutput{}
			for _, t := range totals {
				out.Total += t.Total
				out.Categories = append(out.Categories, model.ChartPoint{Name: t.Category, Value: t.Total})
			}
			if len(out.Categories) > 0 {
				out.Chart = &model.ChartDescriptor{
					Kind:   "pie",
					Title:  "Spending by Category",
					Data:   out.Categories,
					Colors: defaultChartColors[:min(len(out.Categories), len(defaultChartColors))],
				}
			}
			return out, nil
		},
	)
}

type CreateIncomeInput struct {
	Amount   float64 `json:"amount"`
	Source   string  `json:"source,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Note     string  `json:"note,omitempty"`
}

type CreateIncomeOutput struct {
	ID      uint64 `json:"id"`
	Summary string `json:"summary"`
}

func createIncomeTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "create_income",
			Desc: "Record incoming money: salary, refunds, transfers in.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"amount": {
					Type:     "number",
					Desc:     "Amount received, positive number",
					Required: true,
				},
				"source": {
					Type: "string",
					Desc: "Where the money came from, e.g. salary, refund",
				},
				"currency": {
					Type: "string",
					Desc: "3-letter currency code, defaults to the account currency",
				},
				"note": {
					Type: "string",
					Desc: "Free-form note",
				},
			}),
		},
		func(ctx context.Context, in *CreateIncomeInput) (*CreateIncomeOutput, error) {
			if in.Amount <= 0 {
				return nil, &model.SlotError{Slot: "amount", Reason: "must be a positive number"}
			}
			if in.Currency == "" {
				in.Currency = defaultCurrency
			}
			if in.Source == "" {
				in.Source = "other"
			}

			inc := &persistence.Income{
				Amount:   in.Amount,
				Currency: in.Currency,
				Source:   in.Source,
				Note:     in.Note,
			}
			if err := ledger.CreateIncome(ctx, inc); err != nil {
				return nil, err
			}
			return &CreateIncomeOutput{
				ID:      inc.ID,
				Summary: fmt.Sprintf("Recorded %.2f %s from %s", inc.Amount, inc.Currency, inc.Source),
			}, nil
		},
	)
}

type GetBalanceInput struct{}

type GetBalanceOutput struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

func getBalanceTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        "get_balance",
			Desc:        "Show the current balance: total recorded income minus total recorded expenses.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		func(ctx context.Context, in *GetBalanceInput) (*GetBalanceOutput, error) {
			balance, err := ledger.Balance(ctx)
			if err != nil {
				return nil, err
			}
			return &GetBalanceOutput{Balance: balance, Currency: defaultCurrency}, nil
		},
	)
}

func ledgerTools(ledger *persistence.Ledger) []tool.BaseTool {
	return []tool.BaseTool{
		createExpenseTool(ledger),
		listExpensesTool(ledger),
		spendingByCategoryTool(ledger),
		createIncomeTool(ledger),
		getBalanceTool(ledger),
	}
}
