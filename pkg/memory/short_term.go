// Package memory implements the run-local scratchpad (ShortTermMemory) and
// the durable long-term store the db_query tool and trace/outcome
// persistence write through. Grounded on original_source/memory/short_term.py
// and memory/long_term.py, kept as a plain mutable record owned by the
// executor per spec §9 ("Short-term memory as run-local state").
package memory

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
)

// ShortTermMemory is the per-run scratchpad. It is never shared across runs
// and carries no locking — a single executor goroutine owns it exclusively
// (spec §5: "no sharing, no locking, no global").
type ShortTermMemory struct {
	State            map[string]any
	StepOutputs      map[string]map[string]any
	Observations     []map[string]any
	Retries          map[string]int
	Refinements      []map[string]any
	CriteriaProgress map[string]bool
	Signatures       map[string]int
	PlanGeneration   int
}

// NewShortTermMemory seeds State from perception's initial_state.
func NewShortTermMemory(initialState map[string]any) *ShortTermMemory {
	state := make(map[string]any, len(initialState))
	for k, v := range initialState {
		state[k] = v
	}
	return &ShortTermMemory{
		State:            state,
		StepOutputs:      map[string]map[string]any{},
		Observations:     []map[string]any{},
		Retries:          map[string]int{},
		Refinements:      []map[string]any{},
		CriteriaProgress: map[string]bool{},
		Signatures:       map[string]int{},
	}
}

// RecordObservation appends an observation, updates the latest step output
// and the state["last_observation"/"last_step_id"] pointers. Observations
// is append-only; StepOutputs holds only the latest per step id (spec §3).
func (m *ShortTermMemory) RecordObservation(stepID string, observation map[string]any) {
	withStep := make(map[string]any, len(observation)+1)
	withStep["step_id"] = stepID
	for k, v := range observation {
		withStep[k] = v
	}
	m.Observations = append(m.Observations, withStep)
	m.StepOutputs[stepID] = observation
	m.State["last_observation"] = observation
	m.State["last_step_id"] = stepID
}

// retryKey scopes retry counting to (planGeneration, stepID) so a replanned
// step reusing an id from a new plan generation starts fresh — the
// redesigned retry-accounting behavior from SPEC_FULL.md §13.1/§14.
func (m *ShortTermMemory) retryKey(stepID string) string {
	return stepIDKey(m.PlanGeneration, stepID)
}

func stepIDKey(generation int, stepID string) string {
	return strconv.Itoa(generation) + ":" + stepID
}

// MarkRetry bumps the retry counter for the current plan generation's step
// id and returns the new count.
func (m *ShortTermMemory) MarkRetry(stepID string) int {
	key := m.retryKey(stepID)
	m.Retries[key]++
	return m.Retries[key]
}

// RetryCount returns the retry counter for stepID under the current plan
// generation (monotonically non-decreasing within a generation, spec §3).
func (m *ShortTermMemory) RetryCount(stepID string) int {
	return m.Retries[m.retryKey(stepID)]
}

// BumpPlanGeneration is called whenever a replan installs new steps,
// resetting retry accounting for reused step ids (REDESIGN FLAGS §14).
func (m *ShortTermMemory) BumpPlanGeneration() {
	m.PlanGeneration++
}

// RecordRefinement appends a refinement log entry and exposes it at
// state["last_refinement"], mirroring the original's ShortTermMemory.
func (m *ShortTermMemory) RecordRefinement(entry map[string]any) {
	m.Refinements = append(m.Refinements, entry)
	m.State["last_refinement"] = entry
}

// StepSignature computes sha1(canonical_json({tool_name, tool_args})),
// bumps its occurrence counter, and returns the hex digest (spec §3/§9).
func (m *ShortTermMemory) StepSignature(toolName string, toolArgs map[string]any) string {
	canon := canonicalJSON(map[string]any{"tool_name": toolName, "tool_args": toolArgs})
	sum := sha1.Sum([]byte(canon))
	sig := hex.EncodeToString(sum[:])
	m.Signatures[sig]++
	return sig
}

// SignatureCount returns how many times a signature has been computed.
func (m *ShortTermMemory) SignatureCount(signature string) int {
	return m.Signatures[signature]
}

// canonicalJSON recursively sorts map keys before marshaling so the hash
// is stable regardless of map iteration order (spec §9: "canonicalize by
// sorting keys recursively before hashing").
func canonicalJSON(v any) string {
	data, _ := json.Marshal(canonicalize(v))
	return string(data)
}

func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]orderedPair, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, orderedPair{Key: k, Value: canonicalize(t[k])})
		}
		return ordered
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = canonicalize(item)
		}
		return out
	default:
		return v
	}
}

// orderedPair renders as a 2-element JSON array so a Go struct's own
// recursive MarshalJSON does not reorder keys again.
type orderedPair struct {
	Key   string
	Value any
}

func (p orderedPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Key, p.Value})
}
