package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/checkpoint"
	"github.com/deepnoodle-ai/gantry/gate"
	"github.com/deepnoodle-ai/gantry/graph"
	"github.com/deepnoodle-ai/gantry/handler"
	"github.com/deepnoodle-ai/gantry/slogger"
)

// Run executes the graph under the given run id, resuming from the
// checkpoint log if the run already has history. An empty run id starts a
// fresh run under a generated id. Cancelling the context interrupts the
// run: in-flight nodes finish and are checkpointed, but nothing new is
// dispatched.
//
// A nil error means the run reached a terminal status, which may still be
// Failed or Escalated; errors are reserved for conditions that prevent the
// run from proceeding at all, such as validation or checkpoint failures.
func (e *Engine) Run(ctx context.Context, runID string) (*RunResult, error) {
	if runID == "" {
		runID = NewRunID()
	}
	logger := e.logger.With("run_id", runID)
	logger.Info("run initializing", "nodes", len(e.graph.Nodes()))

	if err := e.graph.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}
	state, err := e.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(state.Outcomes) > 0 {
		logger.Info("resuming run from checkpoints",
			"completed_nodes", len(state.Outcomes))
	}

	run := &activeRun{
		engine: e,
		runID:  runID,
		state:  state,
		logger: logger,
		// Buffered by the concurrency bound so handler goroutines can
		// always deliver their outcome, even when the run aborts early
		// and stops receiving.
		results:  make(chan *gantry.NodeOutcome, e.concurrency),
		inflight: make(map[string]bool),
	}
	result, err := run.execute(ctx)
	if err != nil {
		logger.Error("run aborted", "error", err)
		return nil, err
	}
	logger.Info("run finished",
		"status", string(result.Status),
		"cycles", result.Cycles)
	return result, nil
}

// activeRun is the per-run mutable execution state. All fields are owned
// by the run's main loop goroutine; handler goroutines communicate only
// through the results channel.
type activeRun struct {
	engine      *Engine
	runID       string
	state       *checkpoint.State
	logger      slogger.Logger
	results     chan *gantry.NodeOutcome
	inflight    map[string]bool
	interrupted bool
	cycles      int
}

func (r *activeRun) execute(ctx context.Context) (*RunResult, error) {
	r.logger.Info("run started")

	// In-flight work survives an interrupt, so handlers and checkpoint
	// writes get a context that does not inherit the run's cancellation.
	// Outcomes collected during a drain must still reach the log.
	workCtx := context.WithoutCancel(ctx)

	for {
		r.cycles++
		if r.engine.maxCycles > 0 && r.cycles > r.engine.maxCycles {
			return nil, fmt.Errorf("run exceeded %d dispatch cycles", r.engine.maxCycles)
		}
		if ctx.Err() != nil && !r.interrupted {
			r.interrupted = true
			r.logger.Warn("run interrupted, draining in-flight nodes",
				"inflight", len(r.inflight))
		}

		progress := false
		if !r.interrupted {
			skipped, err := r.markSkipped(workCtx)
			if err != nil {
				return nil, err
			}
			dispatched, err := r.dispatchReady(workCtx)
			if err != nil {
				return nil, err
			}
			progress = skipped || dispatched
		}

		if len(r.inflight) == 0 {
			if !progress {
				break
			}
			continue
		}

		if r.interrupted {
			outcome := <-r.results
			if err := r.collect(workCtx, outcome); err != nil {
				return nil, err
			}
			continue
		}
		select {
		case outcome := <-r.results:
			if err := r.collect(workCtx, outcome); err != nil {
				return nil, err
			}
		case <-ctx.Done():
			// Handled at the top of the loop
		}
	}
	return r.finalResult(), nil
}

func (r *activeRun) collect(ctx context.Context, outcome *gantry.NodeOutcome) error {
	delete(r.inflight, outcome.NodeID)
	r.logger.Info("node finished",
		"node_id", outcome.NodeID,
		"status", string(outcome.Status),
		"duration", outcome.Duration().String())
	return r.writeOutcome(ctx, outcome)
}

// markSkipped records a Skipped outcome for every node that can never
// become ready: some incoming edge has a terminal source outcome that does
// not satisfy the edge's condition. The recorded reason controls
// propagation: a blocked skip makes everything downstream skip too, while
// the untaken side of a conditional branch still satisfies unconditional
// edges past it.
func (r *activeRun) markSkipped(ctx context.Context) (bool, error) {
	progress := false
	for _, node := range r.engine.graph.Nodes() {
		if _, done := r.state.Outcome(node.ID); done {
			continue
		}
		if r.inflight[node.ID] {
			continue
		}
		var reason gantry.SkipReason
		for _, edge := range r.engine.graph.Incoming(node.ID) {
			source, ok := r.state.Outcome(edge.From)
			if !ok || edge.Satisfied(source) {
				continue
			}
			cause := r.skipCause(edge, source)
			if reason == "" || cause == gantry.SkipBlocked {
				reason = cause
			}
		}
		if reason == "" {
			continue
		}
		now := time.Now()
		r.logger.Debug("skipping unreachable node",
			"node_id", node.ID, "reason", string(reason))
		err := r.writeOutcome(ctx, &gantry.NodeOutcome{
			NodeID:      node.ID,
			Status:      gantry.OutcomeSkipped,
			SkipReason:  reason,
			StartedAt:   now,
			CompletedAt: now,
		})
		if err != nil {
			return false, err
		}
		progress = true
	}
	return progress, nil
}

// skipCause classifies why an unsatisfiable edge prevents its target from
// running. Only a conditional branch that resolved the other way, with the
// source's own result handled, counts as branch-not-taken; everything else
// is a blockage that must propagate.
func (r *activeRun) skipCause(edge graph.Edge, source *gantry.NodeOutcome) gantry.SkipReason {
	branchSkip := source.Status == gantry.OutcomeSkipped &&
		source.SkipReason != gantry.SkipBlocked
	switch edge.Condition {
	case graph.ConditionFailed:
		if source.Status == gantry.OutcomeSuccess || branchSkip {
			return gantry.SkipBranchNotTaken
		}
	case graph.ConditionPassed:
		if branchSkip {
			return gantry.SkipBranchNotTaken
		}
		if source.Status == gantry.OutcomeFailure && r.hasFallbackPath(edge.From) {
			return gantry.SkipBranchNotTaken
		}
	}
	return gantry.SkipBlocked
}

// dispatchReady evaluates ready gates synchronously and hands other ready
// nodes to their handlers, up to the concurrency bound. The context is the
// run's uncancellable work context.
func (r *activeRun) dispatchReady(ctx context.Context) (bool, error) {
	progress := false
	for _, node := range r.engine.graph.ReadyNodes(r.state.Outcomes) {
		if r.inflight[node.ID] {
			continue
		}
		if node.Type == graph.NodeTypeGate {
			if !r.gateReady(node) {
				continue
			}
			if err := r.evaluateGate(ctx, node); err != nil {
				return false, err
			}
			progress = true
			continue
		}
		if len(r.inflight) >= r.engine.concurrency {
			break
		}
		h, err := r.engine.handlers.For(node)
		if err != nil {
			return false, err
		}
		inputs := r.inputsFor(node)
		r.inflight[node.ID] = true
		r.logger.Info("node dispatched",
			"node_id", node.ID, "type", string(node.Type))
		go func(node *graph.Node, h handler.Handler, inputs *handler.Inputs) {
			startedAt := time.Now()
			outcome, err := h.Execute(ctx, node, inputs)
			if err != nil {
				outcome = &gantry.NodeOutcome{
					NodeID:      node.ID,
					Status:      gantry.OutcomeFailure,
					Error:       err.Error(),
					StartedAt:   startedAt,
					CompletedAt: time.Now(),
				}
			}
			r.results <- outcome
		}(node, h, inputs)
		progress = true
	}
	return progress, nil
}

// gateReady keeps a gate from re-evaluating stale outputs: after a retry
// reset, the gate waits until its retry target has a fresh outcome.
func (r *activeRun) gateReady(node *graph.Node) bool {
	target := node.Gate.RetryTarget
	if target == "" {
		return true
	}
	if r.inflight[target] {
		return false
	}
	_, done := r.state.Outcome(target)
	return done
}

// evaluateGate applies the gate's criteria to its predecessors' aggregated
// outputs. A failing gate with retry budget left resets its target and
// itself; an exhausted gate escalates.
func (r *activeRun) evaluateGate(ctx context.Context, node *graph.Node) error {
	outputs := gate.NewOutputs()
	for _, pred := range r.engine.graph.Predecessors(node.ID) {
		if outcome, ok := r.state.Outcome(pred.ID); ok {
			outputs.Add(pred.ID, outcome.Artifacts)
		}
	}
	result := gate.Evaluate(node.Gate.Criteria, outputs)
	now := time.Now()

	if result.Passed {
		r.logger.Info("gate passed", "node_id", node.ID)
		return r.writeOutcome(ctx, &gantry.NodeOutcome{
			NodeID:      node.ID,
			Status:      gantry.OutcomeSuccess,
			Criteria:    result.Criteria,
			StartedAt:   now,
			CompletedAt: now,
		})
	}

	// The failure counter, not the folded outcome, carries the retry
	// budget: it survives resets and resumes.
	priorFailures := r.state.FailureCount(node.ID)
	err := r.writeOutcome(ctx, &gantry.NodeOutcome{
		NodeID:      node.ID,
		Status:      gantry.OutcomeFailure,
		Criteria:    result.Criteria,
		Error:       describeFailures(result.Failed),
		StartedAt:   now,
		CompletedAt: now,
	})
	if err != nil {
		return err
	}

	if priorFailures < node.Gate.MaxRetries {
		r.logger.Info("gate failed, re-dispatching retry target",
			"node_id", node.ID,
			"retry_target", node.Gate.RetryTarget,
			"attempt", priorFailures+1,
			"max_retries", node.Gate.MaxRetries)
		if node.Gate.RetryTarget != "" {
			if err := r.writeReset(ctx, node.Gate.RetryTarget); err != nil {
				return err
			}
		}
		return r.writeReset(ctx, node.ID)
	}

	r.logger.Warn("gate escalated",
		"node_id", node.ID,
		"evaluations", priorFailures+1,
		"failed_criteria", len(result.Failed))
	return r.writeOutcome(ctx, &gantry.NodeOutcome{
		NodeID:      node.ID,
		Status:      gantry.OutcomeEscalated,
		Criteria:    result.Criteria,
		Error:       describeFailures(result.Failed),
		StartedAt:   now,
		CompletedAt: now,
	})
}

func (r *activeRun) inputsFor(node *graph.Node) *handler.Inputs {
	inputs := &handler.Inputs{}
	for _, pred := range r.engine.graph.Predecessors(node.ID) {
		if outcome, ok := r.state.Outcome(pred.ID); ok {
			inputs.Predecessors = append(inputs.Predecessors, outcome.Clone())
		}
	}
	for _, ancestor := range r.engine.graph.Ancestors(node.ID) {
		if outcome, ok := r.state.Outcome(ancestor.ID); ok {
			inputs.Upstream = append(inputs.Upstream, outcome.Clone())
		}
	}
	return inputs
}

// writeOutcome and writeReset are the run's single checkpoint-writer path:
// both run only on the main loop goroutine, so records never interleave.
func (r *activeRun) writeOutcome(ctx context.Context, outcome *gantry.NodeOutcome) error {
	return r.write(ctx, &checkpoint.Record{
		RunID:     r.runID,
		Sequence:  r.state.LastSeq + 1,
		NodeID:    outcome.NodeID,
		Kind:      checkpoint.KindOutcome,
		Outcome:   outcome,
		Timestamp: time.Now(),
	})
}

func (r *activeRun) writeReset(ctx context.Context, nodeID string) error {
	return r.write(ctx, &checkpoint.Record{
		RunID:     r.runID,
		Sequence:  r.state.LastSeq + 1,
		NodeID:    nodeID,
		Kind:      checkpoint.KindReset,
		Timestamp: time.Now(),
	})
}

func (r *activeRun) write(ctx context.Context, record *checkpoint.Record) error {
	if err := r.engine.store.Write(ctx, record); err != nil {
		// Continuing without durable checkpoints risks silent progress
		// loss on resume, so persistence failures abort the run.
		return fmt.Errorf("checkpoint write failed: %w", err)
	}
	r.state.Apply(record)
	return nil
}

func (r *activeRun) finalResult() *RunResult {
	result := &RunResult{
		RunID:    r.runID,
		Cycles:   r.cycles,
		Outcomes: make(map[string]*gantry.NodeOutcome, len(r.state.Outcomes)),
	}
	for nodeID, outcome := range r.state.Outcomes {
		result.Outcomes[nodeID] = outcome.Clone()
	}

	allDone := true
	anyEscalated := false
	anyUnhandledFailure := false
	for _, node := range r.engine.graph.Nodes() {
		outcome, ok := r.state.Outcome(node.ID)
		if !ok {
			allDone = false
			continue
		}
		switch outcome.Status {
		case gantry.OutcomeEscalated:
			anyEscalated = true
			// The counter already includes the final failed evaluation,
			// whose Failure record preceded the Escalated outcome.
			result.Escalations = append(result.Escalations, Escalation{
				NodeID:         node.ID,
				Evaluations:    r.state.FailureCount(node.ID),
				FailedCriteria: failedCriteria(outcome),
			})
		case gantry.OutcomeFailure:
			if !r.hasFallbackPath(node.ID) {
				anyUnhandledFailure = true
			}
		}
	}

	switch {
	case r.interrupted && !allDone:
		result.Status = StatusInterrupted
	case anyEscalated:
		result.Status = StatusEscalated
	case anyUnhandledFailure:
		result.Status = StatusFailed
	case allDone:
		result.Status = StatusCompleted
	default:
		// No ready nodes, nothing in flight, yet nodes remain: the run
		// stalled, which a valid graph should make impossible.
		result.Status = StatusFailed
	}
	return result
}

// hasFallbackPath reports whether a failed node has a downstream branch
// conditioned on its failure, making the failure handled rather than
// terminal.
func (r *activeRun) hasFallbackPath(nodeID string) bool {
	for _, edge := range r.engine.graph.Outgoing(nodeID) {
		if edge.Condition == graph.ConditionFailed {
			return true
		}
	}
	return false
}

func failedCriteria(outcome *gantry.NodeOutcome) []gantry.CriterionResult {
	var failed []gantry.CriterionResult
	for _, cr := range outcome.Criteria {
		if !cr.Passed {
			failed = append(failed, cr)
		}
	}
	return failed
}

func describeFailures(failed []gantry.CriterionResult) string {
	parts := make([]string, 0, len(failed))
	for _, cr := range failed {
		if !cr.Found {
			parts = append(parts, fmt.Sprintf("%s: field not found", cr.Criterion.Field))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: got %q, expected %s %q",
			cr.Criterion.Field, cr.Actual, cr.Criterion.Op, cr.Criterion.Expected))
	}
	return "criteria failed: " + strings.Join(parts, "; ")
}
