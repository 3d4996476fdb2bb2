// Package toolregistry holds the set of tools the executor may dispatch
// to, each carrying a compiled JSON Schema for its arguments so validation
// can run both at plan-validation time and immediately before handler
// invocation (spec §4.1). Grounded on
// original_source/execution/tool_registry.py's ToolSpec/ToolRegistry, with
// schema validation via github.com/santhosh-tekuri/jsonschema/v6 the way
// goadesign-goa-ai's registry/service.go validates tool call payloads.
package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/logging"
	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/metrics"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// ToolExecutionContext carries everything a handler needs besides its
// validated args: identifiers for the current attempt plus the ambient
// collaborators (config, logger, memory, metrics). Grounded on
// original_source/execution/executor.py's ToolExecutionContext dataclass.
type ToolExecutionContext struct {
	TraceID         string
	RunID           string
	StepID          string
	Attempt         int
	Config          *config.Config
	Logger          logging.Logger
	ShortTermMemory *memory.ShortTermMemory
	LongTermMemory  memory.Store
	Metrics         *metrics.Registry
}

// Handler executes a tool call against validated args and the current
// execution context, returning a result map matching the tool's result
// schema, or a *orchtypes.ToolError on failure.
type Handler func(ctx context.Context, args map[string]any, tctx *ToolExecutionContext) (map[string]any, error)

// Descriptor is the registered shape of one tool: name, description,
// compiled arg/result schemas, handler, and catalog metadata. Equivalent
// to the original's ToolSpec dataclass.
type Descriptor struct {
	Name           string
	Description    string
	ArgsSchema     *jsonschema.Schema
	ResultSchema   *jsonschema.Schema
	Handler        Handler
	SafeByDefault  bool
	Tags           []string
}

// Registry is the name -> Descriptor map the executor and plan validator
// consult. Safe for concurrent use; registration normally happens once at
// startup but lookups may run concurrently with an eval fleet.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Descriptor
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{tools: map[string]*Descriptor{}}
}

// Register adds or replaces a tool descriptor.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[d.Name] = d
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Get returns the descriptor for name, or orchtypes.ErrUnknownTool.
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("toolregistry: %q: %w", name, orchtypes.ErrUnknownTool)
	}
	return d, nil
}

// ValidateArgs validates args against the named tool's compiled arg
// schema, returning a *orchtypes.ToolError with FailureType
// FailureSchemaError on mismatch (spec §4.1).
func (r *Registry) ValidateArgs(name string, args map[string]any) error {
	d, err := r.Get(name)
	if err != nil {
		return err
	}
	if d.ArgsSchema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	doc, err := toValidationDoc(args)
	if err != nil {
		return orchtypes.WrapToolError(orchtypes.FailureSchemaError, "encode tool args for validation", err)
	}
	if err := d.ArgsSchema.Validate(doc); err != nil {
		return orchtypes.WrapToolError(orchtypes.FailureSchemaError, fmt.Sprintf("tool %q: args failed schema validation", name), err)
	}
	return nil
}

// Execute validates args, then dispatches to the handler with tctx. Called
// by the executor for every tool step (spec §4.1: "validation runs both at
// plan-validation time and immediately before handler invocation").
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, tctx *ToolExecutionContext) (map[string]any, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if err := r.ValidateArgs(name, args); err != nil {
		return nil, err
	}
	return d.Handler(ctx, args, tctx)
}

// Catalog returns every registered tool as a orchtypes.ToolCatalogEntry,
// sorted by name for deterministic planner/perception consumption (spec
// §4.1's ToolCatalogEntry list).
func (r *Registry) Catalog() []orchtypes.ToolCatalogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]orchtypes.ToolCatalogEntry, 0, len(names))
	for _, name := range names {
		d := r.tools[name]
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, orchtypes.ToolCatalogEntry{
			Name:          d.Name,
			Description:   d.Description,
			SafeByDefault: d.SafeByDefault,
			Tags:          tags,
		})
	}
	return out
}

// CompileSchema compiles a raw JSON Schema document (as produced by
// MustSchema's literal JSON strings) into a *jsonschema.Schema, mirroring
// goadesign-goa-ai's registry/service.go validatePayloadJSONAgainstSchema.
func CompileSchema(name string, schemaJSON string) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return nil, fmt.Errorf("toolregistry: unmarshal schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	resourceName := name + ".json"
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, fmt.Errorf("toolregistry: add schema resource %s: %w", name, err)
	}
	schema, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("toolregistry: compile schema %s: %w", name, err)
	}
	return schema, nil
}

// MustCompileSchema panics on a malformed schema; used only at package
// init time for the hand-written schemas shipped with this binary.
func MustCompileSchema(name string, schemaJSON string) *jsonschema.Schema {
	schema, err := CompileSchema(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return schema
}

// toValidationDoc round-trips args through JSON so map[string]any values
// (e.g. int vs float64) match what jsonschema.Validate expects from a
// decoded JSON document.
func toValidationDoc(args map[string]any) (any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
