package tools

import (
	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

// RegisterDefaults registers the six stock tools, grounded on
// original_source/execution/tool_registry.py's register_defaults: same
// six names, same tag groupings. Everything but http_post, db_query and
// file_write is marked safe by default.
func RegisterDefaults(registry *toolregistry.Registry, cfg *config.Config, pol *policy.Engine) {
	registry.Register(&toolregistry.Descriptor{
		Name:          "http_get",
		Description:   "Issue an HTTP GET against an allowlisted host.",
		ArgsSchema:    toolregistry.MustCompileSchema("http_get_args", httpGetArgsSchema),
		Handler:       NewHTTPGetHandler(cfg, pol),
		SafeByDefault: true,
		Tags:          []string{"http", "read"},
	})
	registry.Register(&toolregistry.Descriptor{
		Name:          "http_post",
		Description:   "Issue an HTTP POST against an allowlisted host.",
		ArgsSchema:    toolregistry.MustCompileSchema("http_post_args", httpPostArgsSchema),
		Handler:       NewHTTPPostHandler(cfg, pol),
		SafeByDefault: false,
		Tags:          []string{"http", "write"},
	})
	registry.Register(&toolregistry.Descriptor{
		Name:          "db_query",
		Description:   "Run a readonly-gated SQL query against long-term storage.",
		ArgsSchema:    toolregistry.MustCompileSchema("db_query_args", dbQueryArgsSchema),
		Handler:       NewDBQueryHandler(pol),
		SafeByDefault: false,
		Tags:          []string{"db", "read"},
	})
	registry.Register(&toolregistry.Descriptor{
		Name:          "file_write",
		Description:   "Write a file under the sandboxed workspace root.",
		ArgsSchema:    toolregistry.MustCompileSchema("file_write_args", fileWriteArgsSchema),
		Handler:       NewFileWriteHandler(cfg, pol),
		SafeByDefault: false,
		Tags:          []string{"file"},
	})
	registry.Register(&toolregistry.Descriptor{
		Name:          "calc",
		Description:   "Evaluate a whitelisted arithmetic expression.",
		ArgsSchema:    toolregistry.MustCompileSchema("calc_args", calcArgsSchema),
		Handler:       NewCalcHandler(pol),
		SafeByDefault: true,
		Tags:          []string{"math"},
	})
	registry.Register(&toolregistry.Descriptor{
		Name:          "summarize",
		Description:   "Produce a short digest of text or of run scratchpad state.",
		ArgsSchema:    toolregistry.MustCompileSchema("summarize_args", summarizeArgsSchema),
		Handler:       NewSummarizeHandler(),
		SafeByDefault: true,
		Tags:          []string{"llm", "text"},
	})
}
