package model

// Block kinds emitted by tools alongside their textual payload.
const (
	BlockChart = "chart"
	BlockTable = "table"
)

// Block is a structured artifact carried verbatim from a tool to the client.
// The composer never rewrites block contents; it only decides placement
// relative to the narrative.
type Block struct {
	Kind  string           `json:"kind"`
	Chart *ChartDescriptor `json:"chart,omitempty"`
	Table *Table           `json:"table,omitempty"`
}

// ChartDescriptor describes a renderable chart. Clients map Kind onto their
// own chart widgets; the agent never rasterizes anything.
type ChartDescriptor struct {
	Kind   string       `json:"type"` // pie, bar, line
	Title  string       `json:"title"`
	Data   []ChartPoint `json:"data"`
	Colors []string     `json:"colors,omitempty"`
}

// ChartPoint is one labeled value in a chart series.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Table is a row-oriented tabular block.
type Table struct {
	Title   string     `json:"title,omitempty"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// OutboundMessage is the composer's final product for one decision cycle:
// exactly one narrative plus the blocks gathered from tool results.
type OutboundMessage struct {
	Narrative string  `json:"narrative"`
	Blocks    []Block `json:"blocks,omitempty"`
}

// Event kinds streamed to the client while a turn is in flight.
const (
	EventStatus   = "status"
	EventContent  = "content"
	EventComplete = "complete"
	EventError    = "error"
	EventSystem   = "system"
)

// Event is one frame of the streaming transport.
type Event struct {
	Kind      string  `json:"type"`
	Content   string  `json:"content,omitempty"`
	Blocks    []Block `json:"blocks,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
}

// Emitter receives events as the router produces them. Implementations must
// tolerate being called from the goroutine handling the turn.
type Emitter func(Event)
