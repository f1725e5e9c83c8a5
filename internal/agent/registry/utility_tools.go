package registry

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/collab/sandbox"
)

// ===================================
// Utility Tools (date, chart, calculation)
// ===================================

var defaultChartColors = []string{
	"#0088FE",
	"#00C49F",
	"#FFBB28",
	"#FF8042",
	"#8884d8",
	"#82ca9d",
	"#ffc658",
	"#ff7c43",
}

type GetTodayInput struct{}

type GetTodayOutput struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

func getTodayTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        "get_today",
			Desc:        "Get today's date. Use when the user mentions relative dates like today, tomorrow, or next week.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		func(ctx context.Context, in *GetTodayInput) (*GetTodayOutput, error) {
			now := time.Now().UTC()
			return &GetTodayOutput{
				Date:    now.Format("2006-01-02"),
				Weekday: now.Weekday().String(),
			}, nil
		},
	)
}

type ChartPointInput struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type GenerateChartInput struct {
	ChartType string            `json:"chart_type"`
	Title     string            `json:"title"`
	Data      []ChartPointInput `json:"data"`
	Colors    []string          `json:"colors,omitempty"`
}

type GenerateChartOutput struct {
	Chart *model.ChartDescriptor `json:"chart"`
}

func generateChartTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "generate_chart",
			Desc: "Build a chart descriptor from labeled data points for the client to render.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"chart_type": {
					Type:     "string",
					Desc:     "Chart type",
					Enum:     []string{"pie", "bar", "line"},
					Required: true,
				},
				"title": {
					Type:     "string",
					Desc:     "Chart title",
					Required: true,
				},
				"data": {
					Type: "array",
					Desc: "Data points, each with a name and a numeric value",
					ElemInfo: &schema.ParameterInfo{
						Type: "object",
						SubParams: map[string]*schema.ParameterInfo{
							"name":  {Type: "string", Desc: "Point label", Required: true},
							"value": {Type: "number", Desc: "Point value", Required: true},
						},
					},
					Required: true,
				},
				"colors": {
					Type:     "array",
					Desc:     "Optional hex colors, one per point",
					ElemInfo: &schema.ParameterInfo{Type: "string"},
				},
			}),
		},
		func(ctx context.Context, in *GenerateChartInput) (*GenerateChartOutput, error) {
			kind := strings.ToLower(strings.TrimSpace(in.ChartType))
			switch kind {
			case "pie", "bar", "line":
			default:
				return nil, &model.SlotError{Slot: "chart_type", Reason: "must be pie, bar, or line"}
			}
			if len(in.Data) == 0 {
				return nil, &model.SlotError{Slot: "data", Reason: "needs at least one data point"}
			}

			points := make([]model.ChartPoint, 0, len(in.Data))
			for _, p := range in.Data {
				points = append(points, model.ChartPoint{Name: p.Name, Value: p.Value})
			}
			colors := in.Colors
			if len(colors) == 0 {
				colors = defaultChartColors[:min(len(points), len(defaultChartColors))]
			}

			return &GenerateChartOutput{
				Chart: &model.ChartDescriptor{
					Kind:   kind,
					Title:  in.Title,
					Data:   points,
					Colors: colors,
				},
			}, nil
		},
	)
}

type RunCalculationInput struct {
	Code string `json:"code"`
}

type RunCalculationOutput struct {
	Output string `json:"output"`
}

func runCalculationTool(sb *sandbox.Client) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "run_calculation",
			Desc: "Run a small script in an isolated sandbox for math the other tools cannot do. The script must print its result.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"code": {
					Type:     "string",
					Desc:     "Script to execute, e.g. print(sum([100, 200, 300]))",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *RunCalculationInput) (*RunCalculationOutput, error) {
			out, err := sb.Run(ctx, in.Code)
			if err != nil {
				return nil, err
			}
			return &RunCalculationOutput{Output: strings.TrimSpace(out)}, nil
		},
	)
}

func utilityTools(sb *sandbox.Client) []tool.BaseTool {
	return []tool.BaseTool{
		getTodayTool(),
		generateChartTool(),
		runCalculationTool(sb),
	}
}
