package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dshills/workflow-go/workflow"
	"github.com/dshills/workflow-go/workflow/emit"
)

type runFlags struct {
	nodeTimeout  time.Duration
	budget       time.Duration
	metricsAddr  string
	trace        bool
	quiet        bool
	skipValidate bool
}

func newRunCmd(gf *globalFlags) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Execute a workflow document",
		Long: `Execute the nodes of a workflow one at a time in dependency order.

The run stops at the first failing node. Ctrl-C cancels the run; the node
that was executing is reported as skipped.

AskAI nodes use the providers whose keys are set in ANTHROPIC_API_KEY,
OPENAI_API_KEY and GOOGLE_API_KEY.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, gf, rf, args[0])
		},
	}
	fs := cmd.Flags()
	fs.DurationVar(&rf.nodeTimeout, "node-timeout", 0, "Fail any node running longer than this (0 disables)")
	fs.DurationVar(&rf.budget, "budget", 0, "Fail the run when it exceeds this wall-clock time (0 disables)")
	fs.StringVar(&rf.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	fs.BoolVar(&rf.trace, "trace", false, "Record OpenTelemetry spans and print a timing breakdown")
	fs.BoolVarP(&rf.quiet, "quiet", "q", false, "Do not print progress")
	fs.BoolVar(&rf.skipValidate, "skip-validate", false, "Run even when validation reports errors")
	return cmd
}

func runWorkflow(cmd *cobra.Command, gf *globalFlags, rf *runFlags, path string) error {
	ctx := cmd.Context()
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	reg, closeModels, err := gf.registry(ctx, cmd.InOrStdin(), out, errOut)
	defer func() { _ = closeModels() }()
	if err != nil {
		return err
	}
	wf, err := reg.LoadFromFile(path)
	if err != nil {
		return err
	}

	if !printValidation(errOut, wf.Validate()) && !rf.skipValidate {
		return &exitError{code: ExitError, err: errInvalidWorkflow}
	}

	opts := []workflow.Option{
		workflow.WithLogger(gf.logger),
		workflow.WithDefaultNodeTimeout(rf.nodeTimeout),
		workflow.WithRunWallClockBudget(rf.budget),
	}

	st, err := gf.openStore()
	if err != nil {
		return err
	}
	if st != nil {
		defer func() { _ = st.Close() }()
		opts = append(opts, workflow.WithStore(st))
	}

	if rf.metricsAddr != "" {
		promReg := prometheus.NewRegistry()
		opts = append(opts, workflow.WithMetrics(workflow.NewMetrics(promReg)))
		shutdown, err := serveMetrics(rf.metricsAddr, promReg, gf.logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	var recorder *tracetest.SpanRecorder
	emitters := []emit.Emitter{gf.eventEmitter(errOut)}
	if rf.trace {
		recorder = tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		emitters = append(emitters, emit.NewOTelEmitter(tp.Tracer("workflow")))
	}
	opts = append(opts, workflow.WithEmitter(emit.Multi(emitters...)))

	engine, err := workflow.New(opts...)
	if err != nil {
		return err
	}

	var progress workflow.ProgressFunc
	if !rf.quiet {
		progress = progressPrinter(errOut)
	}
	summary := engine.ExecuteWorkflow(ctx, wf, progress)

	printSummary(out, wf, summary)
	if recorder != nil {
		printTrace(out, recorder.Ended())
	}

	switch summary.Status {
	case workflow.RunFailed:
		return &exitError{code: ExitFailed, err: fmt.Errorf("run %s failed: %s", summary.RunID, summary.ErrorMessage)}
	case workflow.RunCancelled:
		return &exitError{code: ExitCancelled, err: fmt.Errorf("run %s cancelled", summary.RunID)}
	}
	return nil
}

// serveMetrics exposes reg on addr until the returned shutdown is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// printTrace lists node spans in start order with their recorded durations.
func printTrace(w io.Writer, spans []sdktrace.ReadOnlySpan) {
	var nodeSpans []sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == emit.MsgNodeEnd || s.Name() == emit.MsgNodeSkipped {
			nodeSpans = append(nodeSpans, s)
		}
	}
	sort.Slice(nodeSpans, func(i, j int) bool {
		return nodeSpans[i].StartTime().Before(nodeSpans[j].StartTime())
	})

	fmt.Fprintf(w, "\n%s (%d spans)\n", headerStyle.Render("Trace"), len(spans))
	for _, s := range nodeSpans {
		attrs := spanAttrs(s.Attributes())
		fmt.Fprintf(w, "  %-3s %-24s %-10s %sms\n",
			attrs["workflow.step"],
			attrs["title"],
			attrs["status"],
			attrs["workflow.node.duration_ms"],
		)
	}
}

func spanAttrs(kvs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
