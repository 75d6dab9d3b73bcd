package workflow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/workflow-go/workflow/emit"
	"github.com/dshills/workflow-go/workflow/store"
)

// Options configures an Engine. Every field is optional.
type Options struct {
	// Emitter receives run and node lifecycle events. Defaults to a
	// NullEmitter.
	Emitter emit.Emitter

	// Store persists run history. When nil, nothing is persisted.
	Store store.Store

	// Metrics records Prometheus metrics. When nil, metrics are disabled.
	Metrics *Metrics

	// Logger is the structured logger used by the engine and by every
	// ExecutionContext's log sink. Defaults to a discarding logger.
	Logger *slog.Logger

	// DefaultNodeTimeout bounds each node's Execute call. Zero means no
	// limit. A node that exceeds it fails with NODE_TIMEOUT.
	//
	// The timeout is delivered through the node's context; nodes that
	// ignore their context run to completion before the engine notices.
	DefaultNodeTimeout time.Duration

	// RunWallClockBudget bounds a whole run. Zero means no limit. A run
	// that exceeds it resolves to Failed with RUN_TIMEOUT.
	RunWallClockBudget time.Duration
}

// Option is a functional option for configuring an Engine.
//
// Options are applied in order by New; later options override earlier ones.
// An option returns an error for an invalid value, which New reports.
//
// Example:
//
//	engine, err := workflow.New(
//	    workflow.WithLogger(slog.Default()),
//	    workflow.WithDefaultNodeTimeout(30*time.Second),
//	    workflow.WithStore(history),
//	)
type Option func(*engineConfig) error

type engineConfig struct {
	opts Options
}

// WithEmitter sets the event emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Emitter = e
		return nil
	}
}

// WithStore enables run-history persistence.
func WithStore(s store.Store) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Store = s
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
//
//	registry := prometheus.NewRegistry()
//	engine, _ := workflow.New(workflow.WithMetrics(workflow.NewMetrics(registry)))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func WithMetrics(m *Metrics) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Metrics = m
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Logger = l
		return nil
	}
}

// WithDefaultNodeTimeout bounds every node's execution.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return &EngineError{Code: CodeInvalidOption, Message: fmt.Sprintf("node timeout must not be negative, got %v", d)}
		}
		cfg.opts.DefaultNodeTimeout = d
		return nil
	}
}

// WithRunWallClockBudget bounds every run's total duration.
func WithRunWallClockBudget(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return &EngineError{Code: CodeInvalidOption, Message: fmt.Sprintf("run budget must not be negative, got %v", d)}
		}
		cfg.opts.RunWallClockBudget = d
		return nil
	}
}
