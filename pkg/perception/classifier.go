package perception

import (
	"strings"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// classifyTask mirrors original_source/perception/task_classifier.py's
// classify_task: flag each domain the goal touches, and if more than one
// fires, call it composite before falling through to the single-domain
// cases in priority order.
func classifyTask(rawGoal string) orchtypes.TaskType {
	lower := strings.ToLower(rawGoal)
	hasSumWord := strings.Contains(" "+lower+" ", " sum ")

	flags := map[string]bool{
		"http": anyOf(lower, "fetch", "get", "post", "submit", "flaky", "slow", "malformed", "http"),
		"db":   anyOf(lower, "db", "database", "sql"),
		"file": anyOf(lower, "write", "save", "file"),
		"calc": anyOf(lower, "calc", "calculate", "multiply") || hasSumWord,
		"summary": anyOf(lower, "summary", "summarize"),
	}

	active := 0
	for _, v := range flags {
		if v {
			active++
		}
	}
	if active > 1 {
		return orchtypes.TaskComposite
	}

	switch {
	case flags["http"] && anyOf(lower, "post", "submit"):
		return orchtypes.TaskDataSubmission
	case flags["http"]:
		return orchtypes.TaskDataRetrieval
	case flags["db"]:
		return orchtypes.TaskDatabase
	case flags["file"]:
		return orchtypes.TaskFileOps
	case flags["calc"]:
		return orchtypes.TaskCalculation
	case flags["summary"]:
		return orchtypes.TaskSummarization
	default:
		return orchtypes.TaskUnknown
	}
}
