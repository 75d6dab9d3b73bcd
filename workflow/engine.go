package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/workflow-go/workflow/emit"
	"github.com/dshills/workflow-go/workflow/store"
)

// Engine executes workflows.
//
// An Engine is stateless between runs and safe for concurrent use: every call
// to ExecuteWorkflow allocates its own ExecutionContext and ExecutionSummary.
//
// Example:
//
//	engine, err := workflow.New(workflow.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	summary := engine.ExecuteWorkflow(ctx, wf, func(p workflow.Progress) {
//	    fmt.Printf("%3.0f%% %s\n", p.PercentComplete(), p.Message)
//	})
//	if summary.Status != workflow.RunCompleted {
//	    return fmt.Errorf("run %s: %s", summary.Status, summary.ErrorMessage)
//	}
type Engine struct {
	opts    Options
	emitter emit.Emitter
	logger  *slog.Logger
}

// New creates an Engine configured by options.
//
// Returns an error if any option rejects its value.
func New(options ...Option) (*Engine, error) {
	cfg := &engineConfig{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	e := &Engine{opts: cfg.opts, emitter: cfg.opts.Emitter, logger: cfg.opts.Logger}
	if e.emitter == nil {
		e.emitter = emit.NewNullEmitter()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e, nil
}

// ExecuteWorkflow runs wf to completion and reports the outcome.
//
// Nodes run one at a time in the order computed by ExecutionOrder. Before
// each node the engine checks ctx; once ctx is done the run resolves to
// Cancelled and no further node starts. Each node is validated, then
// executed; its result is recorded and, on success, its output is published
// to the run's variables as "{nodeID}.{key}". The first failing node stops
// the run (fail-fast) and remaining nodes, including independent ones, are
// not attempted.
//
// A cycle in the graph fails the run before any node executes.
//
// ExecuteWorkflow never returns an error and never panics because of a
// node: every failure that originates in the graph or its nodes is reported
// in the returned summary. progress may be nil.
func (e *Engine) ExecuteWorkflow(ctx context.Context, wf *Workflow, progress ProgressFunc) *ExecutionSummary {
	if ctx == nil {
		ctx = context.Background()
	}
	if wf == nil {
		now := time.Now()
		return &ExecutionSummary{
			RunID:        uuid.NewString(),
			StartTime:    now,
			EndTime:      now,
			Status:       RunFailed,
			ErrorMessage: "workflow is nil",
			Err:          &EngineError{Code: CodeInvalidOption, Message: "workflow is nil"},
			NodeResults:  map[string]ExecutionResult{},
			NodeStatuses: map[string]NodeStatus{},
		}
	}

	runCtx := ctx
	if e.opts.RunWallClockBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.opts.RunWallClockBudget)
		defer cancel()
	}

	r := e.newRun(ctx, wf, progress)
	r.begin()

	order, ok := ExecutionOrder(wf)
	if !ok {
		r.summary.Status = RunFailed
		r.summary.ErrorMessage = "Workflow contains circular dependencies"
		r.summary.Err = ErrCircularDependency
		r.logger.Error("workflow rejected", "error", r.summary.ErrorMessage, "ordered", len(order), "nodes", r.summary.TotalNodes)
		r.finish()
		return r.summary
	}
	for _, n := range order {
		r.summary.Order = append(r.summary.Order, n.ID())
	}

	for i, n := range order {
		if runCtx.Err() != nil {
			r.interrupted()
			break
		}
		if !r.step(runCtx, i+1, n) {
			break
		}
	}

	r.finish()
	return r.summary
}

// run is the engine's bookkeeping for one ExecuteWorkflow call.
type run struct {
	engine  *Engine
	wf      *Workflow
	summary *ExecutionSummary
	ec      *ExecutionContext
	logger  *slog.Logger

	// callerCtx distinguishes caller cancellation from budget expiry;
	// storeCtx outlives cancellation so the final records still land.
	callerCtx context.Context
	storeCtx  context.Context
}

func (e *Engine) newRun(ctx context.Context, wf *Workflow, progress ProgressFunc) *run {
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID, "workflow_id", wf.ID)

	summary := &ExecutionSummary{
		RunID:        runID,
		WorkflowID:   wf.ID,
		StartTime:    time.Now(),
		Status:       RunRunning,
		TotalNodes:   len(wf.nodes),
		Order:        []string{},
		NodeResults:  make(map[string]ExecutionResult, len(wf.nodes)),
		NodeStatuses: make(map[string]NodeStatus, len(wf.nodes)),
	}
	for _, n := range wf.nodes {
		summary.NodeStatuses[n.ID()] = StatusReady
	}

	return &run{
		engine:    e,
		wf:        wf,
		summary:   summary,
		ec:        NewExecutionContext(runID, wf, progress, e.logger, e.emitter),
		logger:    logger,
		callerCtx: ctx,
		storeCtx:  context.WithoutCancel(ctx),
	}
}

func (r *run) begin() {
	r.engine.opts.Metrics.runStarted()
	r.logger.Info("workflow started", "name", r.wf.Name, "nodes", r.summary.TotalNodes)
	r.emit(0, "", emit.MsgRunStart, map[string]interface{}{
		"workflow_name": r.wf.Name,
		"total_nodes":   r.summary.TotalNodes,
	})
	r.saveRun()
}

// step executes one node and reports whether the run should continue.
func (r *run) step(ctx context.Context, step int, n Node) bool {
	id := n.ID()
	r.ec.enter(step, n)
	r.ec.completed = r.summary.SuccessfulNodes
	r.ec.report("Executing: " + n.Title())

	r.summary.NodeStatuses[id] = StatusExecuting
	r.emit(step, id, emit.MsgNodeStart, map[string]interface{}{
		"title":     n.Title(),
		"node_type": n.Type(),
	})

	start := time.Now()
	result := invoke(ctx, n, r.ec, r.engine.opts.DefaultNodeTimeout)
	result.Duration = time.Since(start)

	switch {
	case result.Success:
		result.Status = StatusCompleted
	case r.callerCtx.Err() != nil:
		result.Status = StatusSkipped
	case ctx.Err() != nil:
		result.Status = StatusFailed
		result.Message = r.budgetMessage()
		result.Err = &NodeError{Message: r.budgetMessage(), Code: CodeRunTimeout, NodeID: id, Cause: result.Err}
	default:
		result.Status = StatusFailed
	}

	r.summary.NodeResults[id] = result
	r.summary.NodeStatuses[id] = result.Status
	r.engine.opts.Metrics.nodeFinished(n, result.Status, result.Duration)

	meta := map[string]interface{}{
		"title":       n.Title(),
		"node_type":   n.Type(),
		"status":      string(result.Status),
		"message":     result.Message,
		"duration_ms": result.Duration.Milliseconds(),
	}

	switch result.Status {
	case StatusCompleted:
		r.summary.SuccessfulNodes++
		r.ec.publish(id, result.Output)
		r.logger.Debug("node completed", "node_id", id, "title", n.Title(), "duration", result.Duration)
		r.emit(step, id, emit.MsgNodeEnd, meta)
		r.saveStep(step, n, result)
		return true

	case StatusSkipped:
		r.summary.Status = RunCancelled
		r.logger.Info("node skipped", "node_id", id, "title", n.Title(), "message", result.Message)
		r.emit(step, id, emit.MsgNodeSkipped, meta)
		r.saveStep(step, n, result)
		return false

	default:
		if result.Err == nil {
			result.Err = &NodeError{Message: result.Message, Code: CodeExecutionFailed, NodeID: id}
			r.summary.NodeResults[id] = result
		}
		r.summary.FailedNodes++
		r.summary.Status = RunFailed
		r.summary.ErrorMessage = result.Message
		r.summary.Err = result.Err
		meta["error"] = result.Err.Error()
		r.logger.Error("node failed", "node_id", id, "title", n.Title(), "message", result.Message, "error", result.Err)
		r.emit(step, id, emit.MsgNodeEnd, meta)
		r.saveStep(step, n, result)
		return false
	}
}

// interrupted resolves a run whose context ended between nodes.
func (r *run) interrupted() {
	if r.callerCtx.Err() != nil {
		r.summary.Status = RunCancelled
		r.logger.Info("workflow cancelled", "completed", r.summary.SuccessfulNodes)
		return
	}
	r.summary.Status = RunFailed
	r.summary.ErrorMessage = r.budgetMessage()
	r.summary.Err = &EngineError{Code: CodeRunTimeout, Message: r.budgetMessage()}
	r.logger.Error("workflow timed out", "budget", r.engine.opts.RunWallClockBudget)
}

func (r *run) budgetMessage() string {
	return fmt.Sprintf("Workflow exceeded its time budget of %v", r.engine.opts.RunWallClockBudget)
}

func (r *run) finish() {
	s := r.summary
	if s.Status == RunRunning {
		s.Status = RunCompleted
	}
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	r.ec.enter(0, nil)
	r.ec.completed = s.SuccessfulNodes
	switch s.Status {
	case RunFailed:
		r.ec.report("Workflow failed")
	case RunCancelled:
		r.ec.report("Workflow cancelled")
	default:
		r.ec.report("Workflow completed")
	}

	r.engine.opts.Metrics.runFinished(s.Status, s.Duration)

	meta := map[string]interface{}{
		"status":      string(s.Status),
		"duration_ms": s.Duration.Milliseconds(),
		"successful":  s.SuccessfulNodes,
		"failed":      s.FailedNodes,
	}
	if s.ErrorMessage != "" {
		meta["error"] = s.ErrorMessage
	}
	r.emit(0, "", emit.MsgRunEnd, meta)
	r.saveRun()

	r.logger.Info("workflow finished",
		"status", s.Status,
		"successful", s.SuccessfulNodes,
		"failed", s.FailedNodes,
		"duration", s.Duration,
	)
}

func (r *run) emit(step int, nodeID, msg string, meta map[string]interface{}) {
	r.engine.emitter.Emit(emit.Event{
		RunID:      r.summary.RunID,
		WorkflowID: r.summary.WorkflowID,
		Step:       step,
		NodeID:     nodeID,
		Msg:        msg,
		Meta:       meta,
	})
}

func (r *run) saveRun() {
	st := r.engine.opts.Store
	if st == nil {
		return
	}
	s := r.summary
	err := st.SaveRun(r.storeCtx, store.RunRecord{
		RunID:           s.RunID,
		WorkflowID:      s.WorkflowID,
		WorkflowName:    r.wf.Name,
		Status:          string(s.Status),
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		TotalNodes:      s.TotalNodes,
		SuccessfulNodes: s.SuccessfulNodes,
		FailedNodes:     s.FailedNodes,
		ErrorMessage:    s.ErrorMessage,
	})
	if err != nil {
		r.storeFailed(0, "", "save run", err)
	}
}

func (r *run) saveStep(step int, n Node, result ExecutionResult) {
	st := r.engine.opts.Store
	if st == nil {
		return
	}
	rec := store.StepRecord{
		RunID:      r.summary.RunID,
		Step:       step,
		NodeID:     n.ID(),
		NodeType:   n.Type(),
		Title:      n.Title(),
		Status:     string(result.Status),
		Success:    result.Success,
		Message:    result.Message,
		Output:     result.Output,
		Duration:   result.Duration,
		RecordedAt: time.Now(),
	}
	if result.Err != nil {
		rec.Error = result.Err.Error()
	}
	if err := st.SaveStep(r.storeCtx, rec); err != nil {
		r.storeFailed(step, n.ID(), "save step", err)
	}
}

// storeFailed reports a persistence failure. The run's outcome is unaffected.
func (r *run) storeFailed(step int, nodeID, op string, err error) {
	r.logger.Warn("run history write failed", "op", op, "node_id", nodeID, "error", err)
	r.emit(step, nodeID, emit.MsgStoreError, map[string]interface{}{
		"op":    op,
		"error": err.Error(),
	})
}
