package composer

import (
	"encoding/json"
	"strings"

	"github.com/Finmate-core-poc/server/internal/agent/model"
)

const (
	chartFenceOpen = "```chart"
	fenceClose     = "```"
)

// payloadProbe picks out the structured fields a tool payload may carry.
type payloadProbe struct {
	Chart *model.ChartDescriptor `json:"chart"`
	Table *model.Table           `json:"table"`
}

// ExtractBlocks pulls structured blocks out of one tool payload. JSON
// payloads are probed for chart/table fields; plain text payloads may carry
// a fenced chart the way legacy tools emitted them.
func ExtractBlocks(payload string) []model.Block {
	var blocks []model.Block

	var probe payloadProbe
	if err := json.Unmarshal([]byte(payload), &probe); err == nil {
		if probe.Chart != nil {
			blocks = append(blocks, model.Block{Kind: model.BlockChart, Chart: probe.Chart})
		}
		if probe.Table != nil {
			blocks = append(blocks, model.Block{Kind: model.BlockTable, Table: probe.Table})
		}
		return blocks
	}

	for _, fenced := range extractChartFences(payload) {
		var desc model.ChartDescriptor
		if err := json.Unmarshal([]byte(fenced), &desc); err == nil && desc.Kind != "" {
			blocks = append(blocks, model.Block{Kind: model.BlockChart, Chart: &desc})
		}
	}
	return blocks
}

func extractChartFences(text string) []string {
	var out []string
	for {
		start := strings.Index(text, chartFenceOpen)
		if start < 0 {
			return out
		}
		rest := text[start+len(chartFenceOpen):]
		end := strings.Index(rest, fenceClose)
		if end < 0 {
			return out
		}
		out = append(out, strings.TrimSpace(rest[:end]))
		text = rest[end+len(fenceClose):]
	}
}
