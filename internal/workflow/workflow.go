package workflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

type stepFunc func(ctx context.Context, rt *Runtime, s *InvoiceState) error

// Execute runs the graph from initial to completion. On a step error it
// returns the last recorded state, whose final log entry is the failed step,
// along with the error the step returned.
func Execute(ctx context.Context, rt *Runtime, initial InvoiceState) (InvoiceState, error) {
	last := initial
	var stepErr error

	graph, err := buildGraph(rt, func(s InvoiceState, err error) {
		last = s
		if err != nil {
			stepErr = err
		}
	})
	if err != nil {
		return last, fmt.Errorf("build graph: %w", err)
	}

	finalState, err := graph.Execute(ctx, state.New(nil).Set(KeyInvoiceState, initial))
	if err != nil {
		if stepErr != nil {
			return last, stepErr
		}
		return last, fmt.Errorf("execute graph: %w", err)
	}

	return extractInvoiceState(finalState)
}

// Process runs the workflow and always returns a terminal state. A step
// error rejects the invoice with a "System Error: " reasoning. The result is
// checkpointed, appended to the audit sink, and counted in metrics.
func Process(ctx context.Context, rt *Runtime, initial InvoiceState) InvoiceState {
	rt.Metrics.RunStarted()

	if initial.StartedAt == nil {
		now := time.Now().UTC()
		initial.StartedAt = &now
	}

	final, err := Execute(ctx, rt, initial)
	if err != nil {
		rt.Logger.ErrorContext(ctx, "workflow failed", "run_id", final.RunID, "error", err)
		final = Fail(final, err)
	}

	now := time.Now().UTC()
	final.CompletedAt = &now

	rt.checkpoint(ctx, final)

	if rt.Audit != nil {
		if err := rt.Audit.Append(NewAuditRecord(final)); err != nil {
			rt.Logger.ErrorContext(ctx, "audit append failed", "run_id", final.RunID, "error", err)
		}
	}

	outcome := final.FinalOutcome()
	rt.Metrics.RunFinished(outcome)

	rt.Logger.InfoContext(ctx, "workflow complete",
		"run_id", final.RunID,
		"outcome", outcome,
		"retry_count", final.RetryCount,
		"steps", len(final.Logs),
	)

	return final
}

// Fail marks s rejected because of a fatal error.
func Fail(s InvoiceState, err error) InvoiceState {
	s.ApprovalStatus = StatusRejected
	s.ApprovalReasoning = SystemErrorPrefix + err.Error()
	return s
}

// stepObserver receives the state after every step invocation, with the
// step's error when it failed.
type stepObserver func(InvoiceState, error)

func buildGraph(rt *Runtime, onStep stepObserver) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("invoice-workflow")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	steps := []struct {
		step  Step
		agent string
		fn    stepFunc
	}{
		{StepIngest, AgentIngestion, Ingest},
		{StepValidate, AgentValidation, Validate},
		{StepApprove, AgentApproval, Approve},
		{StepPay, AgentPayment, Pay},
	}

	for _, st := range steps {
		if err := graph.AddNode(string(st.step), stepNode(rt, st.step, st.agent, st.fn, onStep)); err != nil {
			return nil, err
		}
	}

	if err := graph.AddNode(string(StepComplete), completeNode()); err != nil {
		return nil, err
	}

	edges := []struct {
		from, to Step
		pred     func(state.State) bool
	}{
		// ingest → validate (unconditional)
		{StepIngest, StepValidate, nil},
		// validate → ingest | approve | complete
		{StepValidate, StepIngest, routesTo(AfterValidate, StepIngest)},
		{StepValidate, StepApprove, routesTo(AfterValidate, StepApprove)},
		{StepValidate, StepComplete, routesTo(AfterValidate, StepComplete)},
		// approve → pay | complete
		{StepApprove, StepPay, routesTo(AfterApprove, StepPay)},
		{StepApprove, StepComplete, routesTo(AfterApprove, StepComplete)},
		// pay → complete (unconditional)
		{StepPay, StepComplete, nil},
	}

	for _, e := range edges {
		if err := graph.AddEdge(string(e.from), string(e.to), e.pred); err != nil {
			return nil, err
		}
	}

	if err := graph.SetEntryPoint(string(StepIngest)); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint(string(StepComplete)); err != nil {
		return nil, err
	}

	return graph, nil
}

// stepNode wraps fn as a graph node. A failed invocation discards the step's
// partial changes and records a single failure entry for agent instead.
func stepNode(rt *Runtime, step Step, agent string, fn stepFunc, onStep stepObserver) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		before, err := extractInvoiceState(s)
		if err != nil {
			return s, fmt.Errorf("%s: %w", step, err)
		}

		is := before
		is.Logs = slices.Clone(before.Logs)

		start := time.Now()
		err = fn(ctx, rt, &is)
		rt.observe(step, start)
		if err != nil {
			failed := before
			failed.Logs = slices.Clone(before.Logs)
			failed.log(agent, before.InvoiceSource, nil, FailedPrefix+err.Error())

			onStep(failed, err)
			rt.checkpoint(ctx, failed)
			return s.Set(KeyInvoiceState, failed), fmt.Errorf("%s: %w", step, err)
		}

		onStep(is, nil)
		rt.checkpoint(ctx, is)

		rt.Logger.InfoContext(ctx, "step complete",
			"run_id", is.RunID,
			"step", step,
			"errors", len(is.ValidationErrors),
			"approval_status", is.ApprovalStatus,
		)

		return s.Set(KeyInvoiceState, is), nil
	})
}

func completeNode() state.StateNode {
	return state.NewFunctionNode(func(_ context.Context, s state.State) (state.State, error) {
		return s, nil
	})
}

func routesTo(route func(InvoiceState) Step, want Step) func(state.State) bool {
	return func(s state.State) bool {
		is, err := extractInvoiceState(s)
		if err != nil {
			return false
		}
		return route(is) == want
	}
}

func extractInvoiceState(s state.State) (InvoiceState, error) {
	val, ok := s.Get(KeyInvoiceState)
	if !ok {
		return InvoiceState{}, fmt.Errorf("%w: missing %s", ErrMissingState, KeyInvoiceState)
	}

	is, ok := val.(InvoiceState)
	if !ok {
		return InvoiceState{}, fmt.Errorf("%w: %s is %T", ErrMissingState, KeyInvoiceState, val)
	}

	return is, nil
}
