package registry

import "github.com/Finmate-core-poc/server/internal/agent/model"

// Agent groups for specialized handoff.
const (
	AgentLedger   = "ledger"
	AgentPlanning = "planning"
	AgentMarket   = "market"
	AgentUtility  = "utility"
)

// intentTable binds canonical intent names to tools. Order matters: it is
// the final tie-break between competing candidates at equal confidence.
var intentTable = []model.IntentSpec{
	{
		Name:          "create_expense",
		Description:   "Record a new expense",
		Tool:          "create_expense",
		RequiredSlots: []string{"amount", "category"},
		OptionalSlots: []string{"merchant", "currency", "note"},
		Agent:         AgentLedger,
	},
	{
		Name:          "list_expenses",
		Description:   "List recorded expenses",
		Tool:          "list_expenses",
		OptionalSlots: []string{"category", "days", "limit"},
		Agent:         AgentLedger,
	},
	{
		Name:          "spending_by_category",
		Description:   "Break down spending by category",
		Tool:          "get_spending_by_category",
		OptionalSlots: []string{"days"},
		Agent:         AgentLedger,
	},
	{
		Name:          "create_income",
		Description:   "Record incoming money",
		Tool:          "create_income",
		RequiredSlots: []string{"amount"},
		OptionalSlots: []string{"source", "currency", "note"},
		Agent:         AgentLedger,
	},
	{
		Name:        "get_balance",
		Description: "Show current balance",
		Tool:        "get_balance",
		Agent:       AgentLedger,
	},
	{
		Name:          "create_subscription",
		Description:   "Track a recurring subscription",
		Tool:          "create_subscription",
		RequiredSlots: []string{"name", "amount"},
		OptionalSlots: []string{"cadence", "currency"},
		Agent:         AgentPlanning,
	},
	{
		Name:        "list_subscriptions",
		Description: "List tracked subscriptions",
		Tool:        "list_subscriptions",
		Agent:       AgentPlanning,
	},
	{
		Name:          "cancel_subscription",
		Description:   "Stop tracking a subscription",
		Tool:          "cancel_subscription",
		RequiredSlots: []string{"name"},
		Agent:         AgentPlanning,
	},
	{
		Name:          "create_bill",
		Description:   "Create a bill reminder",
		Tool:          "create_bill",
		RequiredSlots: []string{"name", "amount", "due_date"},
		OptionalSlots: []string{"currency"},
		Agent:         AgentPlanning,
	},
	{
		Name:          "list_bills",
		Description:   "List upcoming unpaid bills",
		Tool:          "list_upcoming_bills",
		OptionalSlots: []string{"days"},
		Agent:         AgentPlanning,
	},
	{
		Name:          "pay_bill",
		Description:   "Mark a bill as paid",
		Tool:          "pay_bill",
		RequiredSlots: []string{"name"},
		Agent:         AgentPlanning,
	},
	{
		Name:          "create_goal",
		Description:   "Create a savings goal",
		Tool:          "create_goal",
		RequiredSlots: []string{"name", "target_amount"},
		OptionalSlots: []string{"deadline", "currency"},
		Agent:         AgentPlanning,
	},
	{
		Name:        "list_goals",
		Description: "List savings goals with progress",
		Tool:        "list_goals",
		Agent:       AgentPlanning,
	},
	{
		Name:          "add_to_goal",
		Description:   "Add savings toward a goal",
		Tool:          "add_to_goal",
		RequiredSlots: []string{"name", "amount"},
		Agent:         AgentPlanning,
	},
	{
		Name:          "currency_conversion",
		Description:   "Convert an amount between currencies",
		Tool:          "convert_currency",
		RequiredSlots: []string{"amount", "from_currency", "to_currency"},
		Agent:         AgentMarket,
	},
	{
		Name:          "exchange_rate",
		Description:   "Get the exchange rate between currencies",
		Tool:          "get_exchange_rate",
		RequiredSlots: []string{"from_currency", "to_currency"},
		Agent:         AgentMarket,
	},
	{
		Name:          "stock_price",
		Description:   "Get the current price of a stock",
		Tool:          "get_stock_price",
		RequiredSlots: []string{"symbol"},
		Agent:         AgentMarket,
	},
	{
		Name:          "stock_quote",
		Description:   "Get a detailed stock quote",
		Tool:          "get_stock_quote",
		RequiredSlots: []string{"symbol"},
		Agent:         AgentMarket,
	},
	{
		Name:        "get_today",
		Description: "Get today's date",
		Tool:        "get_today",
		Agent:       AgentUtility,
	},
	{
		Name:          "generate_chart",
		Description:   "Render a chart from data points",
		Tool:          "generate_chart",
		RequiredSlots: []string{"chart_type", "title", "data"},
		OptionalSlots: []string{"colors"},
		Agent:         AgentUtility,
	},
	{
		Name:          "run_calculation",
		Description:   "Run an isolated calculation",
		Tool:          "run_calculation",
		RequiredSlots: []string{"code"},
		Agent:         AgentUtility,
	},
}
