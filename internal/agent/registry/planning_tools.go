package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/collab/persistence"
)

// ===================================
// Planning Tools (subscriptions, bills, goals)
// ===================================

type CreateSubscriptionInput struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Cadence  string  `json:"cadence,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

type CreateSubscriptionOutput struct {
	ID      uint64 `json:"id"`
	Summary string `json:"summary"`
}

func createSubscriptionTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "create_subscription",
			Desc: "Track a recurring subscription like Netflix or Spotify.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {
					Type:     "string",
					Desc:     "Subscription name, e.g. Netflix",
					Required: true,
				},
				"amount": {
					Type:     "number",
					Desc:     "Charge per billing period, positive number",
					Required: true,
				},
				"cadence": {
					Type: "string",
					Desc: "Billing interval: monthly or yearly (default: monthly)",
					Enum: []string{"monthly", "yearly"},
				},
				"currency": {
					Type: "string",
					Desc: "3-letter currency code, defaults to the account currency",
				},
			}),
		},
		func(ctx context.Context, in *CreateSubscriptionInput) (*CreateSubscriptionOutput, error) {
			if in.Amount <= 0 {
				return nil, &model.SlotError{Slot: "amount", Reason: "must be a positive number"}
			}
			if in.Cadence == "" {
				in.Cadence = "monthly"
			}
			if in.Cadence != "monthly" && in.Cadence != "yearly" {
				return nil, &model.SlotError{Slot: "cadence", Reason: "must be monthly or yearly"}
			}
			if in.Currency == "" {
				in.Currency = defaultCurrency
			}

			next := time.Now().UTC().AddDate(0, 1, 0)
			if in.Cadence == "yearly" {
				next = time.Now().UTC().AddDate(1, 0, 0)
			}

			s := &persistence.Subscription{
				Name:         in.Name,
				Amount:       in.Amount,
				Cadence:      in.Cadence,
				Currency:     in.Currency,
				NextChargeAt: next,
				Active:       true,
			}
			if err := ledger.CreateSubscription(ctx, s); err != nil {
				return nil, err
			}
			return &CreateSubscriptionOutput{
				ID:      s.ID,
				Summary: fmt.Sprintf("Tracking %s at %.2f %s %s", s.Name, s.Amount, s.Currency, s.Cadence),
			}, nil
		},
	)
}

type ListSubscriptionsInput struct{}

type SubscriptionRow struct {
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Cadence      string  `json:"cadence"`
	NextChargeAt string  `json:"next_charge_at"`
}

type ListSubscriptionsOutput struct {
	Subscriptions []SubscriptionRow `json:"subscriptions"`
	MonthlyTotal  float64           `json:"monthly_total"`
	Table         *model.Table      `json:"table,omitempty"`
}

func listSubscriptionsTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        "list_subscriptions",
			Desc:        "List active subscriptions with their monthly cost total.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		func(ctx context.Context, in *ListSubscriptionsInput) (*ListSubscriptionsOutput, error) {
			subs, err := ledger.ListSubscriptions(ctx, true)
			if err != nil {
				return nil, err
			}

			out := &ListSubscriptionsOutput{}
			table := &model.Table{
				Title:   "Active subscriptions",
				Columns: []string{"Name", "Amount", "Cadence", "Next charge"},
			}
			for _, s := range subs {
				monthly := s.Amount
				if s.Cadence == "yearly" {
					monthly = s.Amount / 12
				}
				out.MonthlyTotal += monthly
				out.Subscriptions = append(out.Subscriptions, SubscriptionRow{
					Name:         s.Name,
					Amount:       s.Amount,
					Currency:     s.Currency,
					Cadence:      s.Cadence,
					NextChargeAt: s.NextChargeAt.Format("2006-01-02"),
				})
				table.Rows = append(table.Rows, []string{
					s.Name,
					fmt.Sprintf("%.2f %s", s.Amount, s.Currency),
					s.Cadence,
					s.NextChargeAt.Format("2006-01-02"),
				})
			}
			if len(table.Rows) > 0 {
				out.Table = table
			}
			return out, nil
		},
	)
}

type CancelSubscriptionInput struct {
	Name string `json:"name"`
}

type CancelSubscriptionOutput struct {
	Cancelled bool   `json:"cancelled"`
	Summary   string `json:"summary"`
}

func cancelSubscriptionTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "cancel_subscription",
			Desc: "Stop tracking a subscription by name.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {
					Type:     "string",
					Desc:     "Name of the subscription to cancel",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *CancelSubscriptionInput) (*CancelSubscriptionOutput, error) {
			affected, err := ledger.CancelSubscription(ctx, in.Name)
			if err != nil {
				return nil, err
			}
			if affected == 0 {
				return nil, &model.SlotError{Slot: "name", Reason: fmt.Sprintf("no active subscription named %q", in.Name)}
			}
			return &CancelSubscriptionOutput{
				Cancelled: true,
				Summary:   fmt.Sprintf("Stopped tracking %s", in.Name),
			}, nil
		},
	)
}

type CreateBillInput struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	DueDate  string  `json:"due_date"`
	Currency string  `json:"currency,omitempty"`
}

type CreateBillOutput struct {
	ID      uint64 `json:"id"`
	Summary string `json:"summary"`
}

func createBillTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "create_bill",
			Desc: "Create a bill reminder with a due date.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {
					Type:     "string",
					Desc:     "Bill name, e.g. electricity",
					Required: true,
				},
				"amount": {
					Type:     "number",
					Desc:     "Amount due, positive number",
					Required: true,
				},
				"due_date": {
					Type:     "string",
					Desc:     "Due date in YYYY-MM-DD format",
					Required: true,
				},
				"currency": {
					Type: "string",
					Desc: "3-letter currency code, defaults to the account currency",
				},
			}),
		},
		func(ctx context.Context, in *CreateBillInput) (*CreateBillOutput, error) {
			if in.Amount <= 0 {
				return nil, &model.SlotError{Slot: "amount", Reason: "must be a positive number"}
			}
			due, err := time.Parse("2006-01-02", strings.TrimSpace(in.DueDate))
			if err != nil {
				return nil, &model.SlotError{Slot: "due_date", Reason: "must be a date in YYYY-MM-DD format"}
			}
			if in.Currency == "" {
				in.Currency = defaultCurrency
			}

			b := &persistence.Bill{
				Name:     in.Name,
				Amount:   in.Amount,
				Currency: in.Currency,
				DueAt:    due,
			}
			if err := ledger.CreateBill(ctx, b); err != nil {
				return nil, err
			}
			return &CreateBillOutput{
				ID:      b.ID,
				Summary: fmt.Sprintf("Bill %s for %.2f %s due %s", b.Name, b.Amount, b.Currency, due.Format("2006-01-02")),
			}, nil
		},
	)
}

type ListBillsInput struct {
	Days int `json:"days,omitempty"`
}

type BillRow struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	DueAt    string  `json:"due_at"`
}

type ListBillsOutput struct {
	Bills []BillRow    `json:"bills"`
	Total float64      `json:"total"`
	Table *model.Table `json:"table,omitempty"`
}

func listUpcomingBillsTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "list_upcoming_bills",
			Desc: "List unpaid bills due within a window, soonest first.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"days": {
					Type: "number",
					Desc: "Look-ahead window in days (default: 30)",
				},
			}),
		},
		func(ctx context.Context, in *ListBillsInput) (*ListBillsOutput, error) {
			if in.Days <= 0 {
				in.Days = 30
			}
			horizon := time.Now().UTC().AddDate(0, 0, in.Days)

			bills, err := ledger.ListUpcomingBills(ctx, horizon)
			if err != nil {
				return nil, err
			}

			out := &ListBillsOutput{}
			table := &model.Table{
				Title:   "Upcoming bills",
				Columns: []string{"Name", "Amount", "Due"},
			}
			for _, b := range bills {
				out.Total += b.Amount
				out.Bills = append(out.Bills, BillRow{
					Name:     b.Name,
					Amount:   b.Amount,
					Currency: b.Currency,
					DueAt:    b.DueAt.Format("2006-01-02"),
				})
				table.Rows = append(table.Rows, []string{
					b.Name,
					fmt.Sprintf("%.2f %s", b.Amount, b.Currency),
					b.DueAt.Format("2006-01-02"),
				})
			}
			if len(table.Rows) > 0 {
				out.Table = table
			}
			return out, nil
		},
	)
}

type PayBillInput struct {
	Name string `json:"name"`
}

type PayBillOutput struct {
	Paid    bool   `json:"paid"`
	Summary string `json:"summary"`
}

func payBillTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "pay_bill",
			Desc: "Mark the earliest unpaid bill with the given name as paid.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {
					Type:     "string",
					Desc:     "Name of the bill to mark paid",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *PayBillInput) (*PayBillOutput, error) {
			affected, err := ledger.MarkBillPaid(ctx, in.Name)
			if err != nil {
				return nil, err
			}
			if affected == 0 {
				return nil, &model.SlotError{Slot: "name", Reason: fmt.Sprintf("no unpaid bill named %q", in.Name)}
			}
			return &PayBillOutput{
				Paid:    true,
				Summary: fmt.Sprintf("Marked %s as paid", in.Name),
			}, nil
		},
	)
}

type CreateGoalInput struct {
	Name         string  `json:"name"`
	TargetAmount float64 `json:"target_amount"`
	Deadline     string  `json:"deadline,omitempty"`
	Currency     string  `json:"currency,omitempty"`
}

type CreateGoalOutput struct {
	ID      uint64 `json:"id"`
	Summary string `json:"summary"`
}

func createGoalTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "create_goal",
			Desc: "Create a savings goal with a target amount and optional deadline.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {
					Type:     "string",
					Desc:     "Goal name, e.g. vacation",
					Required: true,
				},
				"target_amount": {
					Type:     "number",
					Desc:     "Target amount to save, positive number",
					Required: true,
				},
				"deadline": {
					Type: "string",
					Desc: "Optional deadline in YYYY-MM-DD format",
				},
				"currency": {
					Type: "string",
					Desc: "3-letter currency code, defaults to the account currency",
				},
			}),
		},
		func(ctx context.Context, in *CreateGoalInput) (*CreateGoalOutput, error) {
			if in.TargetAmount <= 0 {
				return nil, &model.SlotError{Slot: "target_amount", Reason: "must be a positive number"}
			}
			if in.Currency == "" {
				in.Currency = defaultCurrency
			}

			g := &persistence.Goal{
				Name:         in.Name,
				TargetAmount: in.TargetAmount,
				Currency:     in.Currency,
			}
			if in.Deadline != "" {
				d, err := time.Parse("2006-01-02", strings.TrimSpace(in.Deadline))
				if err != nil {
					return nil, &model.SlotError{Slot: "deadline", Reason: "must be a date in YYYY-MM-DD format"}
				}
				g.Deadline = &d
			}

			if err := ledger.CreateGoal(ctx, g); err != nil {
				return nil, err
			}
			return &CreateGoalOutput{
				ID:      g.ID,
				Summary: fmt.Sprintf("Goal %s: save %.2f %s", g.Name, g.TargetAmount, g.Currency),
			}, nil
		},
	)
}

type ListGoalsInput struct{}

type GoalRow struct {
	Name         string  `json:"name"`
	TargetAmount float64 `json:"target_amount"`
	SavedAmount  float64 `json:"saved_amount"`
	Currency     string  `json:"currency"`
	Progress     float64 `json:"progress"`
	Deadline     string  `json:"deadline,omitempty"`
}

type ListGoalsOutput struct {
	Goals []GoalRow              `json:"goals"`
	Chart *model.ChartDescriptor `json:"chart,omitempty"`
}

func listGoalsTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        "list_goals",
			Desc:        "List savings goals with progress toward each target.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		func(ctx context.Context, in *ListGoalsInput) (*ListGoalsOutput, error) {
			goals, err := ledger.ListGoals(ctx)
			if err != nil {
				return nil, err
			}

			out := &ListGoalsOutput{}
			var points []model.ChartPoint
			for _, g := range goals {
				progress := 0.0
				if g.TargetAmount > 0 {
					progress = g.SavedAmount / g.TargetAmount * 100
				}
				row := GoalRow{
					Name:         g.Name,
					TargetAmount: g.TargetAmount,
					SavedAmount:  g.SavedAmount,
					Currency:     g.Currency,
					Progress:     progress,
				}
				if g.Deadline != nil {
					row.Deadline = g.Deadline.Format("2006-01-02")
				}
				out.Goals = append(out.Goals, row)
				points = append(points, model.ChartPoint{Name: g.Name, Value: progress})
			}
			if len(points) > 0 {
				out.Chart = &model.ChartDescriptor{
					Kind:   "bar",
					Title:  "Goal progress (%)",
					Data:   points,
					Colors: defaultChartColors[:min(len(points), len(defaultChartColors))],
				}
			}
			return out, nil
		},
	)
}

type AddToGoalInput struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type AddToGoalOutput struct {
	Summary string `json:"summary"`
}

func addToGoalTool(ledger *persistence.Ledger) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "add_to_goal",
			Desc: "Add a saved amount toward an existing goal.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {
					Type:     "string",
					Desc:     "Name of the goal",
					Required: true,
				},
				"amount": {
					Type:     "number",
					Desc:     "Amount to add, positive number",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *AddToGoalInput) (*AddToGoalOutput, error) {
			if in.Amount <= 0 {
				return nil, &model.SlotError{Slot: "amount", Reason: "must be a positive number"}
			}
			affected, err := ledger.AddToGoal(ctx, in.Name, in.Amount)
			if err != nil {
				return nil, err
			}
			if affected == 0 {
				return nil, &model.SlotError{Slot: "name", Reason: fmt.Sprintf("no goal named %q", in.Name)}
			}
			return &AddToGoalOutput{
				Summary: fmt.Sprintf("Added %.2f toward %s", in.Amount, in.Name),
			}, nil
		},
	)
}

func planningTools(ledger *persistence.Ledger) []tool.BaseTool {
	return []tool.BaseTool{
		createSubscriptionTool(ledger),
		listSubscriptionsTool(ledger),
		cancelSubscriptionTool(ledger),
		createBillTool(ledger),
		listUpcomingBillsTool(ledger),
		payBillTool(ledger),
		createGoalTool(ledger),
		listGoalsTool(ledger),
		addToGoalTool(ledger),
	}
}
