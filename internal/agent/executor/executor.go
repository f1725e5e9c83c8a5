package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/agent/registry"
	errx "github.com/Finmate-core-poc/server/internal/core/error"
	logx "github.com/Finmate-core-poc/server/pkg/logger"
)

// Executor runs one tool call: validate arguments, invoke with a deadline,
// classify whatever comes back. It never returns a raw error to the router;
// every failure is normalized into the closed taxonomy on the result.
type Executor struct {
	registry *registry.Registry
	timeout  time.Duration
}

func New(reg *registry.Registry, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Executor{registry: reg, timeout: timeout}
}

// Execute performs a single attempt. The call's Attempt number is recorded
// on the result for audit; retries are the router's decision.
func (e *Executor) Execute(ctx context.Context, call model.ToolCall) *model.ToolResult {
	result := &model.ToolResult{Call: call}

	entry, ok := e.registry.Tool(call.Tool)
	if !ok {
		result.Failure = &model.Failure{
			Kind:    model.FailurePermanent,
			Message: fmt.Sprintf("unknown tool %q", call.Tool),
		}
		return result
	}

	argsJSON, err := json.Marshal(call.Arguments)
	if err != nil {
		result.Failure = &model.Failure{
			Kind:    model.FailurePermanent,
			Message: fmt.Sprintf("encode arguments: %v", err),
		}
		return result
	}

	if failure := e.validate(entry, argsJSON); failure != nil {
		result.Failure = failure
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	payload, err := entry.Tool.InvokableRun(callCtx, string(argsJSON))
	elapsed := time.Since(started)

	logx.Debug().
		Str("component", "executor").
		Str("tool", call.Tool).
		Str("call_id", call.ID).
		Int("attempt", call.Attempt).
		Dur("elapsed", elapsed).
		Bool("ok", err == nil).
		Msg("tool call finished")

	if err != nil {
		result.Failure = classify(err)
		return result
	}

	result.Payload = payload
	return result
}

// validate checks arguments against the tool's compiled schema. Validation
// problems are always recoverable: the user can supply what's missing.
func (e *Executor) validate(entry *registry.ToolEntry, argsJSON []byte) *model.Failure {
	vres, err := entry.Schema.Validate(gojsonschema.NewBytesLoader(argsJSON))
	if err != nil {
		return &model.Failure{
			Kind:    model.FailureInvalidParameter,
			Message: fmt.Sprintf("arguments are not a valid object: %v", err),
		}
	}
	if vres.Valid() {
		return nil
	}

	for _, verr := range vres.Errors() {
		if verr.Type() == "required" {
			slot, _ := verr.Details()["property"].(string)
			return &model.Failure{
				Kind:    model.FailureMissingParameter,
				Slot:    slot,
				Message: fmt.Sprintf("missing required parameter %q", slot),
			}
		}
	}

	first := vres.Errors()[0]
	return &model.Failure{
		Kind:    model.FailureInvalidParameter,
		Slot:    first.Field(),
		Message: first.Description(),
	}
}

// classify maps an invocation error onto the failure taxonomy. Unknown
// errors default to transient so a flaky dependency gets its retries.
func classify(err error) *model.Failure {
	var slotErr *model.SlotError
	if errors.As(err, &slotErr) {
		return &model.Failure{
			Kind:    model.FailureInvalidParameter,
			Slot:    slotErr.Slot,
			Message: slotErr.Reason,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &model.Failure{
			Kind:    model.FailureTransient,
			Message: "the operation timed out",
		}
	}

	var appErr *errx.Error
	if errors.As(err, &appErr) {
		switch {
		case appErr.Status == http.StatusRequestTimeout,
			appErr.Status == http.StatusTooManyRequests,
			appErr.Status == http.StatusGatewayTimeout,
			appErr.Status >= http.StatusInternalServerError:
			return &model.Failure{Kind: model.FailureTransient, Message: appErr.Message}
		case appErr.Status == http.StatusNotFound,
			appErr.Status == http.StatusUnauthorized,
			appErr.Status == http.StatusForbidden,
			appErr.Status == http.StatusBadRequest,
			appErr.Status == http.StatusUnprocessableEntity:
			return &model.Failure{Kind: model.FailurePermanent, Message: appErr.Message}
		}
	}

	return &model.Failure{Kind: model.FailureTransient, Message: err.Error()}
}
