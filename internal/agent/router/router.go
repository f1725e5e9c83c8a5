package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Finmate-core-poc/server/internal/agent/classifier"
	"github.com/Finmate-core-poc/server/internal/agent/composer"
	"github.com/Finmate-core-poc/server/internal/agent/conversations"
	"github.com/Finmate-core-poc/server/internal/agent/executor"
	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/agent/registry"
	logx "github.com/Finmate-core-poc/server/pkg/logger"
)

// State is one node of the per-cycle decision machine.
type State string

const (
	StateIdle               State = "idle"
	StateClassifying        State = "classifying"
	StateAwaitingParameters State = "awaiting_parameters"
	StateExecutingTool      State = "executing_tool"
	StateEvaluatingResult   State = "evaluating_result"
	StateResponding         State = "responding"
)

// Router advances one explicit state machine per user message: classify,
// fill parameters, execute, evaluate, respond. Session state (pending
// intent, queued steps) survives across cycles; retry counters do not.
type Router struct {
	classifier classifier.Classifier
	executor   *executor.Executor
	composer   *composer.Composer
	manager    *conversations.MessagesManager
	registry   *registry.Registry
	config     model.RouterConfig
}

func New(
	cls classifier.Classifier,
	exec *executor.Executor,
	comp *composer.Composer,
	manager *conversations.MessagesManager,
	reg *registry.Registry,
	config model.RouterConfig,
) *Router {
	return &Router{
		classifier: cls,
		executor:   exec,
		composer:   comp,
		manager:    manager,
		registry:   reg,
		config:     config,
	}
}

// pendingIntent is an intent blocked on user-supplied parameters.
type pendingIntent struct {
	spec  *model.IntentSpec
	slots model.SlotValues
	asked string
}

// sessionState is what a session carries between decision cycles.
type sessionState struct {
	pending *pendingIntent
	queue   []queuedIntent
}

type queuedIntent struct {
	spec  *model.IntentSpec
	slots model.SlotValues
}

// cycle is one decision cycle through the state machine.
type cycle struct {
	router    *Router
	sessionID string
	state     State
	emit      model.Emitter
	results   []*model.ToolResult
}

func (c *cycle) advance(to State) {
	logx.Debug().
		Str("component", "router").
		Str("session_id", c.sessionID).
		Str("from", string(c.state)).
		Str("to", string(to)).
		Msg("state transition")
	c.state = to
}

func (c *cycle) status(text string) {
	if c.emit != nil {
		c.emit(model.Event{Kind: model.EventStatus, Content: text})
	}
}

// handleMessage runs one full decision cycle. The caller (SessionManager)
// has already serialized access to st.
func (r *Router) handleMessage(ctx context.Context, sessionID string, st *sessionState, text string, emit model.Emitter) error {
	c := &cycle{router: r, sessionID: sessionID, state: StateIdle, emit: emit}

	if st.pending != nil {
		return r.resumePending(ctx, c, st, text)
	}

	c.advance(StateClassifying)
	c.status("Understanding your request...")

	convContext, err := r.manager.ProcessUserMessage(ctx, sessionID, text)
	if err != nil {
		return err
	}

	cls, err := r.classifier.Classify(ctx, convContext)
	if err != nil {
		return err
	}

	queue := r.pickIntents(cls)
	if len(queue) == 0 {
		return r.respondConversational(ctx, c)
	}

	st.queue = queue
	return r.drainQueue(ctx, c, st)
}

// resumePending merges a slot-fill reply into the blocked intent. The reply
// is a normal user turn, so it is persisted like any other.
func (r *Router) resumePending(ctx context.Context, c *cycle, st *sessionState, text string) error {
	c.advance(StateAwaitingParameters)

	pending := st.pending
	if _, err := r.manager.ProcessUserMessage(ctx, c.sessionID, text); err != nil {
		return err
	}

	extracted, err := r.classifier.ExtractSlots(ctx, text, pending.spec, pending.asked)
	if err != nil {
		return err
	}
	for k, v := range extracted {
		pending.slots[k] = v
	}

	if missing := pending.spec.MissingSlots(pending.slots); len(missing) > 0 {
		pending.asked = missing[0]
		return r.askForSlot(ctx, c, pending.spec, missing[0])
	}

	st.queue = append([]queuedIntent{{spec: pending.spec, slots: pending.slots}}, st.queue...)
	st.pending = nil
	return r.drainQueue(ctx, c, st)
}

// pickIntents resolves the classification into an ordered execution queue.
// Candidates sharing a Seq compete; distinct Seqs are sequential steps.
func (r *Router) pickIntents(cls *model.Classification) []queuedIntent {
	if cls.None() {
		return nil
	}

	bySeq := map[int][]model.CandidateIntent{}
	var seqs []int
	for _, cand := range cls.Intents {
		if cand.Name == model.IntentNone {
			continue
		}
		if cand.Confidence < r.config.ConfidenceThreshold {
			continue
		}
		if _, ok := r.registry.Intent(cand.Name); !ok {
			logx.Warn().
				Str("component", "router").
				Str("intent", cand.Name).
				Msg("classifier produced unknown intent")
			continue
		}
		if _, seen := bySeq[cand.Seq]; !seen {
			seqs = append(seqs, cand.Seq)
		}
		bySeq[cand.Seq] = append(bySeq[cand.Seq], cand)
	}
	sort.Ints(seqs)

	var queue []queuedIntent
	for _, seq := range seqs {
		winner := r.pickWinner(bySeq[seq])
		spec, _ := r.registry.Intent(winner.Name)
		slots := winner.Slots
		if slots == nil {
			slots = model.SlotValues{}
		}
		queue = append(queue, queuedIntent{spec: spec, slots: slots})
	}
	return queue
}

// pickWinner resolves competing candidates for one step: confidence first,
// then fewer missing required slots, then intent declaration order.
func (r *Router) pickWinner(cands []model.CandidateIntent) model.CandidateIntent {
	best := cands[0]
	for _, cand := range cands[1:] {
		if cand.Confidence > best.Confidence {
			best = cand
			continue
		}
		if cand.Confidence < best.Confidence {
			continue
		}
		bestSpec, _ := r.registry.Intent(best.Name)
		candSpec, _ := r.registry.Intent(cand.Name)
		bestMissing := len(bestSpec.MissingSlots(best.Slots))
		candMissing := len(candSpec.MissingSlots(cand.Slots))
		if candMissing < bestMissing {
			best = cand
			continue
		}
		if candMissing == bestMissing && r.registry.IntentRank(cand.Name) < r.registry.IntentRank(best.Name) {
			best = cand
		}
	}
	return best
}

// drainQueue executes queued intents in order. A missing parameter suspends
// the queue until the user replies; everything executed so far still gets
// composed into the reply for this cycle.
func (r *Router) drainQueue(ctx context.Context, c *cycle, st *sessionState) error {
	for len(st.queue) > 0 {
		next := st.queue[0]
		st.queue = st.queue[1:]

		if missing := next.spec.MissingSlots(next.slots); len(missing) > 0 {
			st.pending = &pendingIntent{spec: next.spec, slots: next.slots, asked: missing[0]}
			return r.askForSlot(ctx, c, next.spec, missing[0])
		}

		done, err := r.executeIntent(ctx, c, st, next)
		if err != nil {
			return err
		}
		if !done {
			// suspended on a parameter failure mid-execution
			return nil
		}
	}
	return r.respond(ctx, c)
}

// executeIntent runs one intent with the transient-retry loop. Returns
// done=false when the cycle suspended waiting for user input.
func (r *Router) executeIntent(ctx context.Context, c *cycle, st *sessionState, item queuedIntent) (bool, error) {
	c.advance(StateExecutingTool)
	c.status(fmt.Sprintf("Working on %s...", strings.ReplaceAll(item.spec.Name, "_", " ")))

	retries := 0
	for {
		call := model.ToolCall{
			ID:        uuid.NewString(),
			Tool:      item.spec.Tool,
			Arguments: item.slots,
			Attempt:   retries + 1,
		}
		result := r.executor.Execute(ctx, call)

		c.advance(StateEvaluatingResult)
		if result.OK() {
			c.results = append(c.results, result)
			return true, nil
		}

		failure := result.Failure
		switch failure.Kind {
		case model.FailureMissingParameter, model.FailureInvalidParameter:
			// parameter failures go back to the user, not into a retry loop
			st.pending = &pendingIntent{spec: item.spec, slots: item.slots, asked: failure.Slot}
			return false, r.askForSlotProblem(ctx, c, item.spec, failure)
		case model.FailureTransient:
			retries++
			if retries >= r.config.MaxRetries {
				logx.Warn().
					Str("component", "router").
					Str("session_id", c.sessionID).
					Str("tool", item.spec.Tool).
					Int("retries", retries).
					Msg("retry budget exhausted")
				result.Failure = &model.Failure{
					Kind:    model.FailureLoopLimit,
					Message: fmt.Sprintf("kept failing after %d attempts (%s)", retries, failure.Message),
				}
				c.results = append(c.results, result)
				return true, nil
			}
			logx.Debug().
				Str("component", "router").
				Str("tool", item.spec.Tool).
				Int("retry", retries).
				Str("reason", failure.Message).
				Msg("transient failure, retrying")
			c.advance(StateExecutingTool)
		default:
			// permanent: surface as-is, no retry
			c.results = append(c.results, result)
			return true, nil
		}
	}
}

// askForSlot emits a clarifying question for a missing parameter.
func (r *Router) askForSlot(ctx context.Context, c *cycle, spec *model.IntentSpec, slot string) error {
	c.advance(StateAwaitingParameters)
	question := fmt.Sprintf("To %s I still need the %s. What should it be?",
		strings.ToLower(spec.Description), strings.ReplaceAll(slot, "_", " "))
	return r.respondWith(ctx, c, question)
}

// askForSlotProblem re-prompts after a parameter was rejected downstream.
func (r *Router) askForSlotProblem(ctx context.Context, c *cycle, spec *model.IntentSpec, failure *model.Failure) error {
	c.advance(StateAwaitingParameters)
	slot := strings.ReplaceAll(failure.Slot, "_", " ")
	if failure.Slot == "" {
		slot = "value"
	}
	question := fmt.Sprintf("That %s didn't work: %s. Could you give me another?", slot, failure.Message)
	return r.respondWith(ctx, c, question)
}

// respond composes the cycle's tool results into the final reply.
func (r *Router) respond(ctx context.Context, c *cycle) error {
	c.advance(StateResponding)
	out, err := r.composer.Compose(ctx, c.sessionID, c.results)
	if err != nil {
		return err
	}
	c.emitOutbound(out)
	c.advance(StateIdle)
	return nil
}

// respondConversational handles the "none" path: no tool, just a reply.
func (r *Router) respondConversational(ctx context.Context, c *cycle) error {
	c.advance(StateResponding)
	out, err := r.composer.Compose(ctx, c.sessionID, nil)
	if err != nil {
		return err
	}
	c.emitOutbound(out)
	c.advance(StateIdle)
	return nil
}

// respondWith sends a fixed narrative (clarifying question) and ends the cycle.
func (r *Router) respondWith(ctx context.Context, c *cycle, text string) error {
	c.advance(StateResponding)
	out, err := r.composer.ComposeDirect(ctx, c.sessionID, text)
	if err != nil {
		return err
	}
	c.emitOutbound(out)
	c.advance(StateIdle)
	return nil
}

func (c *cycle) emitOutbound(out *model.OutboundMessage) {
	if c.emit == nil {
		return
	}
	c.emit(model.Event{
		Kind:    model.EventContent,
		Content: out.Narrative,
		Blocks:  out.Blocks,
	})
	c.emit(model.Event{Kind: model.EventComplete})
}
