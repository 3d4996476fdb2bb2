package perception

import (
	"context"

	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// Agent turns a raw goal into a orchtypes.PerceptionResult, grounded on
// original_source/perception/agent.py's PerceptionAgent. It carries an
// optional long-term memory so past "facts" relevant to this goal can be
// folded into initial_state before planning ever starts.
type Agent struct {
	LongTermMemory memory.Store
}

// New returns a perception Agent, optionally backed by long-term memory.
func New(longTermMemory memory.Store) *Agent {
	return &Agent{LongTermMemory: longTermMemory}
}

// Run builds the PerceptionResult for a raw goal and optional caller
// context, mirroring PerceptionAgent.run.
func (a *Agent) Run(ctx context.Context, rawGoal string, goalContext map[string]any) (orchtypes.PerceptionResult, error) {
	intent, entities := extractIntentAndEntities(rawGoal, goalContext)
	taskType := classifyTask(rawGoal)
	constraints, successCriteria, initialState := buildState(rawGoal, taskType, entities, goalContext)

	if a.LongTermMemory != nil {
		recalled, err := memory.Retrieve(ctx, a.LongTermMemory, "facts", rawGoal, 3)
		if err != nil {
			return orchtypes.PerceptionResult{}, err
		}
		if len(recalled) > 0 {
			entries := make([]map[string]any, 0, len(recalled))
			for _, row := range recalled {
				entries = append(entries, map[string]any{"key": row["key"], "value_text": row["value_text"]})
			}
			initialState["retrieved_memory"] = entries
		}
	}

	return orchtypes.PerceptionResult{
		Intent:          intent,
		TaskType:        taskType,
		Entities:        entities,
		Constraints:     constraints,
		SuccessCriteria: successCriteria,
		InitialState:    initialState,
	}, nil
}
