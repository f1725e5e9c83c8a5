package model

// IntentNone is the sentinel intent returned for input that did not match
// anything with usable confidence. It is a normal outcome, not an error.
const IntentNone = "none"

// SlotValues maps a slot name to its extracted value. Numbers decode as
// float64, everything else as string.
type SlotValues map[string]any

// IntentSpec describes one routable intent: what the user wants, which tool
// serves it, and which slots must be filled before that tool can run.
// The binding to a tool is a router-level lookup, not part of the tool itself.
type IntentSpec struct {
	Name          string
	Description   string
	Tool          string
	RequiredSlots []string
	OptionalSlots []string
	// Agent names the specialized grouping this intent belongs to
	// (ledger, market, analyst). Handoff between agents is a dispatch to
	// a different intent subset, not a separate process.
	Agent string
}

// MissingSlots returns the required slots not present (or empty) in the
// given values, in declaration order.
func (s *IntentSpec) MissingSlots(values SlotValues) []string {
	var missing []string
	for _, name := range s.RequiredSlots {
		v, ok := values[name]
		if !ok || v == nil {
			missing = append(missing, name)
			continue
		}
		if str, isStr := v.(string); isStr && str == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// CandidateIntent is one scored classification candidate. Seq orders the
// intents of a multi-step utterance; candidates sharing a Seq are competing
// readings of the same step.
type CandidateIntent struct {
	Name       string
	Confidence float64
	Seq        int
	Slots      SlotValues
}

// Classification is the classifier's verdict for one user message.
// An empty Intents list means the sentinel "none" intent.
type Classification struct {
	Intents []CandidateIntent
}

// None reports whether nothing usable was classified.
func (c *Classification) None() bool {
	return c == nil || len(c.Intents) == 0
}
