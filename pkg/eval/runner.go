package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/logging"
	"github.com/itsneelabh/orchestron/pkg/memory"
)

// loadScenarios reads a scenario file from path, the Go port of
// runner.py's _load_scenarios. YAML (".yaml"/".yml") is the pack's
// uniform fixture format and is tried first by extension; any other
// extension, including ".json", is parsed as JSON.
func loadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("eval: read scenarios file: %w", err)
	}
	var scenarios []Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &scenarios); err != nil {
			return nil, fmt.Errorf("eval: parse scenarios file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &scenarios); err != nil {
			return nil, fmt.Errorf("eval: parse scenarios file: %w", err)
		}
	}
	return scenarios, nil
}

// applyConfigOverrides clones cfg and patches the small set of fields a
// scenario's config_overrides may name, tolerating JSON's float64 for
// whole numbers the way the original's Pydantic model_copy(update=...)
// tolerates loose input types.
func applyConfigOverrides(cfg *config.Config, overrides map[string]any) *config.Config {
	clone := *cfg
	for key, value := range overrides {
		switch key {
		case "default_max_steps":
			clone.DefaultMaxSteps = asInt(value, clone.DefaultMaxSteps)
		case "default_max_retries_per_step":
			clone.DefaultMaxRetriesPerStep = asInt(value, clone.DefaultMaxRetriesPerStep)
		case "default_budget_units":
			clone.DefaultBudgetUnits = asInt(value, clone.DefaultBudgetUnits)
		case "non_progress_threshold":
			clone.NonProgressThreshold = asInt(value, clone.NonProgressThreshold)
		case "default_http_timeout_s":
			clone.DefaultHTTPTimeoutS = asFloat(value, clone.DefaultHTTPTimeoutS)
		case "mock_api_base_url":
			if s, ok := value.(string); ok {
				clone.MockAPIBaseURL = s
			}
		case "enable_real_http":
			if b, ok := value.(bool); ok {
				clone.EnableRealHTTP = b
			}
		}
	}
	return &clone
}

func asInt(v any, def int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	}
	return def
}

func asFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	}
	return def
}

// RunScenarios loads scenarios from scenariosPath, runs each through
// RunOrchestration with bounded concurrency (the Go port of the
// teacher's orchestration.PlanExecutor.executeParallel semaphore
// pattern, grounded on pkg/orchestration/executor.go in the teacher),
// scores and persists every result, exports each trace plus the
// aggregate summary under exportDir, and returns the summary — the Go
// port of runner.py's run_scenarios.
func RunScenarios(ctx context.Context, cfg *config.Config, longTerm memory.Store, logger logging.Logger, scenariosPath, exportDir string) (Summary, error) {
	scenarios, err := loadScenarios(scenariosPath)
	if err != nil {
		return Summary{}, err
	}

	results := make([]ScenarioResult, len(scenarios))
	concurrency := cfg.EvalConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, scenario := range scenarios {
		wg.Add(1)
		go func(i int, scenario Scenario) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			scenarioCfg := applyConfigOverrides(cfg, scenario.ConfigOverrides)
			trace, runErr := RunOrchestration(ctx, scenarioCfg, longTerm, logger, scenario.Request, scenario.Context, false, fmt.Sprintf("eval_%s", scenario.ID))
			if runErr != nil {
				results[i] = fail(scenario.ID, fmt.Sprintf("Orchestration run errored: %v", runErr), "")
				return
			}

			tracePath, exportErr := ExportTrace(trace, exportDir, fmt.Sprintf("%s.trace.json", scenario.ID))
			if exportErr != nil {
				logger.Error("trace_export_failed", "Failed to export scenario trace", map[string]any{
					"scenario_id": scenario.ID, "error": exportErr.Error(),
				})
			}

			scored := ScoreTrace(scenario, trace, tracePath)
			results[i] = scored

			if longTerm != nil {
				if saveErr := longTerm.SaveEvalResult(ctx, scored.ScenarioID, scored.Passed, scored.Reason, scored.Score, scored.TracePath); saveErr != nil {
					logger.Error("eval_persist_failed", "Failed to persist eval result", map[string]any{
						"scenario_id": scenario.ID, "error": saveErr.Error(),
					})
				}
			}
		}(i, scenario)
	}
	wg.Wait()

	summary := Summary{Total: len(results), Results: results}
	for _, r := range results {
		if r.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if _, err := ExportSummary(summary, exportDir, ""); err != nil {
		logger.Error("eval_summary_export_failed", "Failed to export eval summary", map[string]any{"error": err.Error()})
	}

	return summary, nil
}
