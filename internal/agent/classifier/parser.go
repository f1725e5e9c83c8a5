package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	errx "github.com/Finmate-core-poc/server/internal/core/error"
	logx "github.com/Finmate-core-poc/server/pkg/logger"
)

const (
	recDelim = "##"
	tupDelim = "<||>"
	endDelim = "<|COMPLETE|>"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024 // 128KB
	maxRecords    = 500        // maximum number of records to process
	maxTupleLen   = 8 * 1024   // 8KB per tuple
	maxSlotsLen   = 4 * 1024   // 4KB slots JSON
	maxErrSnippet = 200        // limit error snippet size
)

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	// enforce a sane upper bound per record
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}

	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	// remove the outermost parens only
	inner := s[1 : len(s)-1]
	// limit splitting to at most 5 segments so the slots JSON can contain delimiters
	parts := strings.SplitN(inner, tupDelim, 5)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	return &rawTuple{Type: strings.TrimSpace(parts[0]), Parts: parts}, nil
}

func mustValidUTF8(s string, name string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s invalid utf8", name)
	}
	return nil
}

func parseFloatInRange(s, name string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s invalid number", name)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return v, nil
}

func parseSlots(s string) (model.SlotValues, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.SlotValues{}, nil
	}
	if len(s) > maxSlotsLen {
		return nil, fmt.Errorf("slots too large")
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("slots not json object")
	}
	var m model.SlotValues
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseClassification parses the model's delimited-tuple output into a
// Classification. Malformed records are skipped, never fatal; a fully
// unusable payload yields the "none" sentinel rather than an error.
func ParseClassification(content string) (cls *model.Classification, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("intent parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			cls = nil
		}
	}()

	// content length guard
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "intent_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	// honor completion delimiter if present
	if idx := strings.Index(content, endDelim); idx >= 0 {
		content = content[:idx]
	}

	cls = &model.Classification{}

	records := strings.Split(content, recDelim)
	processed := 0
	for _, rec := range records {
		if processed >= maxRecords {
			logx.Warn().
				Str("component", "intent_parser").
				Int("max_records", maxRecords).
				Msg("record processing capped")
			break
		}
		rec = strings.TrimSpace(rec)
		if rec == "" || rec == endDelim {
			continue
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			logx.Debug().
				Str("component", "intent_parser").
				Str("record", safeSnippet(rec)).
				Msg("bad record skipped")
			continue
		}

		if rt.Type != "intent" {
			// unknown tuple type, skip
			continue
		}
		if len(rt.Parts) < 4 {
			continue
		}

		name := strings.TrimSpace(rt.Parts[1])
		if err := mustValidUTF8(name, "intent.name"); err != nil || name == "" {
			continue
		}
		conf, err := parseFloatInRange(rt.Parts[2], "intent.confidence", 0, 1)
		if err != nil {
			continue
		}
		seqF, err := parseFloatInRange(rt.Parts[3], "intent.seq", 0, float64(maxRecords))
		if err != nil || seqF != math.Trunc(seqF) {
			continue
		}

		slots := model.SlotValues{}
		if len(rt.Parts) >= 5 {
			if m, err := parseSlots(rt.Parts[4]); err == nil {
				slots = m
			}
		}

		cls.Intents = append(cls.Intents, model.CandidateIntent{
			Name:       name,
			Confidence: conf,
			Seq:        int(seqF),
			Slots:      slots,
		})
	}

	return cls, nil
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
