package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/executor"
	"github.com/itsneelabh/orchestron/pkg/logging"
	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/metrics"
	"github.com/itsneelabh/orchestron/pkg/monitors"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/perception"
	"github.com/itsneelabh/orchestron/pkg/planning"
	"github.com/itsneelabh/orchestron/pkg/planvalidate"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/refinement"
	"github.com/itsneelabh/orchestron/pkg/tools"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
	"github.com/itsneelabh/orchestron/pkg/tracing"
)

// otelOnce guards the process-wide tracer/meter providers: RunScenarios
// fans out many concurrent RunOrchestration calls, and otel's
// SetTracerProvider is a global, so these are built exactly once and
// shared across every run rather than recreated per call.
var (
	otelOnce   sync.Once
	otelTracer *tracing.TracerProvider
	otelMeter  *metrics.MeterProvider
)

func otelProviders(logger logging.Logger) (*tracing.TracerProvider, *metrics.MeterProvider) {
	otelOnce.Do(func() {
		tp, err := tracing.NewTracerProvider("orchestron")
		if err != nil {
			logger.Warn("otel_tracer_unavailable", "OTel tracer provider disabled", map[string]any{"error": err.Error()})
		} else {
			otelTracer = tp
		}
		mp, err := metrics.NewMeterProvider("orchestron")
		if err != nil {
			logger.Warn("otel_meter_unavailable", "OTel meter provider disabled", map[string]any{"error": err.Error()})
		} else {
			otelMeter = mp
		}
	})
	return otelTracer, otelMeter
}

// finalizeObservability exports a run's final metrics snapshot and flushes
// the run span, called once per run regardless of which exit path it took.
func finalizeObservability(ctx context.Context, trace *orchtypes.RunTrace, logger logging.Logger) {
	tracerProv, meterProv := otelProviders(logger)
	if meterProv != nil {
		meterProv.ExportSnapshot(ctx, trace.MetricsSnapshot)
		if err := meterProv.ForceFlush(ctx); err != nil {
			logger.Warn("otel_metrics_flush_failed", "Failed to flush OTel metrics", map[string]any{"error": err.Error()})
		}
	}
	if tracerProv != nil {
		if err := tracerProv.ForceFlush(ctx); err != nil {
			logger.Warn("otel_trace_flush_failed", "Failed to flush OTel trace", map[string]any{"error": err.Error()})
		}
	}
}

// RunOrchestration runs one goal through perception, planning, plan
// validation and execution, persists the resulting trace, and optionally
// exports it to cfg.TracesDir — the Go shape of
// original_source/main.py's run_orchestration, reused by both the
// `run`/`demo` CLI commands and RunScenarios below.
func RunOrchestration(
	ctx context.Context,
	cfg *config.Config,
	longTerm memory.Store,
	logger logging.Logger,
	rawGoal string,
	goalContext map[string]any,
	exportTrace bool,
	tracePrefix string,
) (*orchtypes.RunTrace, error) {
	met := metrics.New()
	traceID := tracing.NewTraceID()
	runID := tracing.NewRunID()
	runLogger := logger.Bind("orchestration", map[string]any{"trace_id": traceID, "run_id": runID})
	runLogger.Info("run_start", "Starting orchestration run", map[string]any{"raw_goal": rawGoal})

	perceptionAgent := perception.New(longTerm)
	planner := planning.New(cfg, longTerm)
	pol := policy.New(cfg)
	registry := toolregistry.New()
	tools.RegisterDefaults(registry, cfg, pol)
	mon := monitors.New()
	ref := refinement.New()
	exec := executor.New()
	replayCache, err := executor.NewReplayCacheFromConfig(cfg)
	if err != nil {
		runLogger.Warn("replay_cache_unavailable", "Replay cache disabled", map[string]any{"error": err.Error()})
	}

	trace := &orchtypes.RunTrace{
		TraceID:   traceID,
		RunID:     runID,
		Request:   map[string]any{"raw_goal": rawGoal, "context": goalContext},
		Status:    orchtypes.RunReceived,
		StartedAt: time.Now().UTC(),
	}

	tracerProv, _ := otelProviders(runLogger)
	if tracerProv != nil {
		var span oteltrace.Span
		ctx, span = tracerProv.StartRunSpan(ctx, traceID, runID)
		defer span.End()
	}

	trace.Status = orchtypes.RunPerceived
	perceptionResult, err := perceptionAgent.Run(ctx, rawGoal, goalContext)
	if err != nil {
		return finishFailed(ctx, trace, longTerm, runLogger, met, orchtypes.StopFailed, err.Error())
	}
	trace.Perception = &perceptionResult
	runLogger.Info("perception_done", "Perception completed", map[string]any{"task_type": string(perceptionResult.TaskType)})

	trace.Status = orchtypes.RunPlanned
	plan, err := planner.BuildPlan(ctx, perceptionResult, registry.Catalog(), map[string]any{})
	if err != nil {
		return finishFailed(ctx, trace, longTerm, runLogger, met, orchtypes.StopFailed, err.Error())
	}
	trace.Plan = &plan
	runLogger.Info("planning_done", "Planning completed", map[string]any{"plan_steps": len(plan.Steps)})

	trace.Status = orchtypes.RunValidated
	validated, err := planvalidate.ValidatePlan(plan, registry, pol)
	if err != nil {
		return finishFailed(ctx, trace, longTerm, runLogger, met, orchtypes.StopValidationFailed, err.Error())
	}
	trace.Plan = &validated.Plan
	if len(validated.Warnings) > 0 {
		runLogger.Warn("plan_warnings", "Plan validation warnings", map[string]any{"warnings": validated.Warnings})
	}

	shortTerm := memory.NewShortTermMemory(perceptionResult.InitialState)
	rc := &executor.RunContext{
		Config:          cfg,
		Logger:          runLogger,
		Metrics:         met,
		Registry:        registry,
		Monitors:        mon,
		Refinement:      ref,
		ShortTermMemory: shortTerm,
		LongTermMemory:  longTerm,
		Planner:         planner,
		Trace:           trace,
		ReplayCache:     replayCache,
	}
	exec.Run(ctx, validated.Plan, perceptionResult, rc)

	switch trace.Status {
	case orchtypes.RunCompleted, orchtypes.RunStopped, orchtypes.RunFailed:
		runLogger.Info("run_done", "Run completed", map[string]any{
			"status": string(trace.Status), "stop_reason": string(trace.StopReason.Type),
		})
	default:
		trace.Status = orchtypes.RunFailed
		trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopFailed, Message: "Unexpected terminal state"}
	}

	trace.MetricsSnapshot = met.Snapshot()
	if trace.FinishedAt == nil {
		finishedAt := time.Now().UTC()
		trace.FinishedAt = &finishedAt
	}

	finalizeObservability(ctx, trace, runLogger)
	persistTrace(ctx, trace, longTerm, runLogger)

	if exportTrace {
		path, expErr := tracing.Export(cfg.TracesDir, tracePrefix, trace)
		if expErr != nil {
			runLogger.Error("trace_export_failed", "Failed to export trace", map[string]any{"error": expErr.Error()})
		} else {
			if trace.FinalOutput == nil {
				trace.FinalOutput = map[string]any{}
			}
			trace.FinalOutput["meta"] = map[string]any{"trace_path": path}
		}
	}

	return trace, nil
}

// finishFailed fills in the terminal bookkeeping (status, stop reason,
// metrics snapshot, finished_at, persistence) for a run that errored out
// before the executor ever started, mirroring run_orchestration's
// except-blocks.
func finishFailed(ctx context.Context, trace *orchtypes.RunTrace, longTerm memory.Store, logger logging.Logger, met *metrics.Registry, stopType orchtypes.StopReasonType, message string) (*orchtypes.RunTrace, error) {
	trace.Status = orchtypes.RunFailed
	trace.StopReason = orchtypes.StopReason{Type: stopType, Message: message}
	trace.MetricsSnapshot = met.Snapshot()
	finishedAt := time.Now().UTC()
	trace.FinishedAt = &finishedAt
	logger.Error("run_exception", "Orchestration run failed before execution", map[string]any{"error": message})
	finalizeObservability(ctx, trace, logger)
	persistTrace(ctx, trace, longTerm, logger)
	return trace, nil
}

// persistTrace saves the full trace plus a compact recall-friendly memory
// entry, matching run_orchestration's trailing try/except block — a
// persistence failure here is logged, never allowed to mask the run's
// primary result.
func persistTrace(ctx context.Context, trace *orchtypes.RunTrace, longTerm memory.Store, logger logging.Logger) {
	if longTerm == nil {
		return
	}
	if err := longTerm.SaveTrace(ctx, trace); err != nil {
		logger.Error("persist_error", "Failed to persist trace", map[string]any{"error": err.Error()})
		return
	}
	summaryMessage := ""
	if trace.FinalOutput != nil {
		if msg, ok := trace.FinalOutput["message"].(string); ok {
			summaryMessage = msg
		}
	}
	valueText, err := json.Marshal(map[string]any{
		"request":     trace.Request["raw_goal"],
		"status":      string(trace.Status),
		"stop_reason": string(trace.StopReason.Type),
		"summary":     summaryMessage,
	})
	if err != nil {
		logger.Error("persist_error", "Failed to marshal memory entry", map[string]any{"error": err.Error()})
		return
	}
	key := fmt.Sprintf("run:%s", trace.RunID)
	if err := longTerm.AddMemoryEntry(ctx, "facts", key, string(valueText), map[string]any{"trace_id": trace.TraceID}); err != nil {
		logger.Error("persist_error", "Failed to persist memory entry", map[string]any{"error": err.Error()})
	}
}
