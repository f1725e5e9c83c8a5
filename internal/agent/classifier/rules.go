package classifier

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/Finmate-core-poc/server/internal/agent/model"
)

// RuleClassifier is the deterministic fallback used when no model API key is
// configured, and in tests. Keyword scoring plus regex slot extraction.
type RuleClassifier struct {
	intents []*model.IntentSpec
}

func NewRuleClassifier(intents []*model.IntentSpec) *RuleClassifier {
	return &RuleClassifier{intents: intents}
}

// intentKeywords score a segment toward an intent. More hits, higher
// confidence.
var intentKeywords = map[string][]string{
	"currency_conversion": {
		"convert", "exchange", "to usd", "to eur", "to thb",
		"in dollars", "in euros", "how much is",
	},
	"exchange_rate": {
		"exchange rate", "rate for", "rate between",
	},
	"stock_price": {
		"stock", "share price", "market price", "price of",
	},
	"stock_quote": {
		"stock quote", "quote for", "detailed quote",
	},
	"create_expense": {
		"spent", "bought", "paid", "add expense", "track expense",
		"expense of", "cost me",
	},
	"list_expenses": {
		"list expense", "show expense", "my expense", "view expense", "recent expense",
	},
	"spending_by_category": {
		"spending by", "category", "breakdown", "analyze spending",
	},
	"create_income": {
		"received", "got paid", "salary", "income of", "earned",
	},
	"get_balance": {
		"balance", "how much do i have", "net total",
	},
	"create_subscription": {
		"subscribe", "subscription for", "recurring",
	},
	"list_subscriptions": {
		"my subscription", "list subscription", "show subscription",
	},
	"cancel_subscription": {
		"cancel", "unsubscribe", "stop tracking",
	},
	"create_bill": {
		"bill", "payment due", "remind me to pay",
	},
	"list_bills": {
		"upcoming bill", "list bill", "what bills", "due soon",
	},
	"pay_bill": {
		"paid the", "mark paid", "pay bill", "settled",
	},
	"create_goal": {
		"save for", "saving goal", "want to save",
	},
	"list_goals": {
		"my goal", "progress", "show goal", "list goal",
	},
	"add_to_goal": {
		"add to", "toward my", "put aside",
	},
	"get_today": {
		"today", "what day", "what date",
	},
	"generate_chart": {
		"chart", "graph", "visualize", "pie chart", "bar chart",
	},
	"run_calculation": {
		"calculate", "compute", "what is", "math",
	},
}

var (
	conversionRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*([A-Za-z]{3})\s+(?:to|in|into)\s+([A-Za-z]{3})`)
	amountRe     = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)
	currencyRe   = regexp.MustCompile(`\b([A-Za-z]{3})\b`)
	merchantRe   = regexp.MustCompile(`(?i)\bat\s+([A-Za-z][\w']*)`)
	categoryRe   = regexp.MustCompile(`(?i)\bon\s+([a-z]+)`)
	symbolRe     = regexp.MustCompile(`\b([A-Z]{1,5})\b`)
	dateRe       = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	segmentRe    = regexp.MustCompile(`(?i)\s+(?:and then|then|and also|and)\s+`)
)

func (c *RuleClassifier) Classify(ctx context.Context, conversationContext string) (*model.Classification, error) {
	text := currentMessage(conversationContext)
	cls := &model.Classification{}

	for i, segment := range splitSegments(text) {
		name, score := c.bestIntent(segment)
		if name == "" {
			continue
		}
		spec, _ := c.spec(name)
		confidence := 0.6 + 0.1*float64(score-1)
		if confidence > 0.9 {
			confidence = 0.9
		}
		cls.Intents = append(cls.Intents, model.CandidateIntent{
			Name:       name,
			Confidence: confidence,
			Seq:        i + 1,
			Slots:      extractSlots(segment, spec),
		})
	}
	return cls, nil
}

func (c *RuleClassifier) ExtractSlots(ctx context.Context, text string, spec *model.IntentSpec, asked string) (model.SlotValues, error) {
	return ExtractSlotValues(text, spec, asked), nil
}

func (c *RuleClassifier) bestIntent(segment string) (string, int) {
	lower := strings.ToLower(segment)
	best := ""
	bestScore := 0
	bestRank := len(c.intents)
	for rank, spec := range c.intents {
		score := 0
		for _, kw := range intentKeywords[spec.Name] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && rank < bestRank) {
			best = spec.Name
			bestScore = score
			bestRank = rank
		}
	}
	return best, bestScore
}

func (c *RuleClassifier) spec(name string) (*model.IntentSpec, bool) {
	for _, s := range c.intents {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// currentMessage strips the conversation wrapper and returns the message
// under analysis. A bare string passes through unchanged.
func currentMessage(input string) string {
	const marker = "<current_message_to_analyze>"
	idx := strings.Index(input, marker)
	if idx < 0 {
		return input
	}
	rest := input[idx+len(marker):]
	start := strings.Index(rest, "UserMessage(")
	if start < 0 {
		return rest
	}
	rest = rest[start+len("UserMessage("):]
	if end := strings.LastIndex(rest, ")"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func splitSegments(text string) []string {
	parts := segmentRe.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

func extractSlots(segment string, spec *model.IntentSpec) model.SlotValues {
	slots := model.SlotValues{}
	if spec == nil {
		return slots
	}

	wants := func(name string) bool {
		for _, s := range spec.RequiredSlots {
			if s == name {
				return true
			}
		}
		for _, s := range spec.OptionalSlots {
			if s == name {
				return true
			}
		}
		return false
	}

	if m := conversionRe.FindStringSubmatch(segment); m != nil && wants("from_currency") {
		if v, err := parseAmount(m[1]); err == nil {
			slots["amount"] = v
		}
		slots["from_currency"] = strings.ToUpper(m[2])
		slots["to_currency"] = strings.ToUpper(m[3])
		return slots
	}

	if wants("amount") || wants("target_amount") {
		if m := amountRe.FindStringSubmatch(segment); m != nil {
			if v, err := parseAmount(m[1]); err == nil {
				if wants("target_amount") {
					slots["target_amount"] = v
				} else {
					slots["amount"] = v
				}
			}
		}
	}
	if wants("merchant") {
		if m := merchantRe.FindStringSubmatch(segment); m != nil {
			slots["merchant"] = m[1]
		}
	}
	if wants("category") {
		if m := categoryRe.FindStringSubmatch(segment); m != nil {
			slots["category"] = strings.ToLower(m[1])
		}
	}
	if wants("symbol") {
		if m := symbolRe.FindStringSubmatch(segment); m != nil {
			slots["symbol"] = m[1]
		}
	}
	if wants("due_date") {
		if m := dateRe.FindStringSubmatch(segment); m != nil {
			slots["due_date"] = m[1]
		}
	}
	if wants("deadline") {
		if m := dateRe.FindStringSubmatch(segment); m != nil {
			slots["deadline"] = m[1]
		}
	}
	return slots
}

// ExtractSlotValues fills slots from a short follow-up reply. The asked slot
// gets first claim on the text; other missing typed slots are filled
// opportunistically.
func ExtractSlotValues(text string, spec *model.IntentSpec, asked string) model.SlotValues {
	slots := model.SlotValues{}
	if spec == nil {
		return slots
	}
	trimmed := strings.TrimSpace(text)

	fill := func(name string) {
		switch name {
		case "amount", "target_amount":
			if m := amountRe.FindStringSubmatch(trimmed); m != nil {
				if v, err := parseAmount(m[1]); err == nil {
					slots[name] = v
				}
			}
		case "from_currency", "to_currency", "currency":
			if m := currencyRe.FindStringSubmatch(trimmed); m != nil {
				slots[name] = strings.ToUpper(m[1])
			}
		case "due_date", "deadline":
			if m := dateRe.FindStringSubmatch(trimmed); m != nil {
				slots[name] = m[1]
			}
		case "symbol":
			if m := symbolRe.FindStringSubmatch(strings.ToUpper(trimmed)); m != nil {
				slots[name] = m[1]
			}
		default:
			// free-form slot: a direct reply is the value
			if name == asked && trimmed != "" {
				slots[name] = trimmed
			}
		}
	}

	if asked != "" {
		fill(asked)
	}
	for _, name := range spec.RequiredSlots {
		if _, ok := slots[name]; !ok && name != asked {
			fill(name)
		}
	}
	return slots
}

func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
