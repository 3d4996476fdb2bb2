// Package policy is the static safety gate applied to every tool step
// before it may run: HTTP host/scheme allowlisting, file_write path
// traversal checks, db_query read-only SQL prefix checks, and a calc
// expression whitelist. Grounded on
// original_source/planning/policy.py's PolicyEngine.
package policy

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// Engine holds the config knobs policy decisions depend on
// (AllowedHTTPHosts, EnableRealHTTP, EnableDBWrites).
type Engine struct {
	cfg *config.Config
}

// New builds a policy Engine bound to cfg.
func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// ValidateStep dispatches to the tool-specific check. Tools with no
// policy concern (summarize) pass through untouched, mirroring the
// original's validate_step, which only branches on the four tools that
// touch the outside world.
func (e *Engine) ValidateStep(step orchtypes.PlanStep) error {
	switch step.ToolName {
	case "http_get", "http_post":
		return e.validateHTTP(step.ToolArgs)
	case "file_write":
		relPath, _ := step.ToolArgs["relative_path"].(string)
		return e.validateFilePath(relPath)
	case "db_query":
		sql, _ := step.ToolArgs["sql"].(string)
		readonly := true
		if v, ok := step.ToolArgs["readonly"].(bool); ok {
			readonly = v
		}
		return e.validateSQL(sql, readonly)
	case "calc":
		expr, _ := step.ToolArgs["expression"].(string)
		return e.validateCalcExpression(expr)
	default:
		return nil
	}
}

func (e *Engine) validateHTTP(args map[string]any) error {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return orchtypes.PolicyViolationError("HTTP tool requires URL", nil)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return orchtypes.WrapToolError(orchtypes.FailurePolicyViolation, "HTTP tool requires a parseable URL", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return orchtypes.PolicyViolationError(
			fmt.Sprintf("disallowed URL scheme: %s", parsed.Scheme),
			map[string]any{"url": rawURL},
		)
	}
	host := parsed.Hostname()
	if !e.cfg.EnableRealHTTP && !contains(e.cfg.AllowedHTTPHosts, host) {
		return orchtypes.PolicyViolationError(
			"host is not on allowlist",
			map[string]any{"host": host, "url": rawURL},
		)
	}
	return nil
}

func (e *Engine) validateFilePath(relativePath string) error {
	if relativePath == "" {
		return orchtypes.PolicyViolationError("file_write requires relative_path", nil)
	}
	if path.IsAbs(relativePath) || strings.HasPrefix(relativePath, "/") {
		return orchtypes.PolicyViolationError("absolute paths are not allowed", map[string]any{"path": relativePath})
	}
	for _, part := range strings.Split(filepathToSlash(relativePath), "/") {
		if part == ".." {
			return orchtypes.PolicyViolationError("path traversal is not allowed", map[string]any{"path": relativePath})
		}
	}
	return nil
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

var sqlCommentRe = regexp.MustCompile(`(?m)--.*?$`)
var sqlWhitespaceRe = regexp.MustCompile(`\s+`)

func normalizeSQL(sql string) string {
	noComments := sqlCommentRe.ReplaceAllString(sql, "")
	collapsed := sqlWhitespaceRe.ReplaceAllString(noComments, " ")
	return strings.ToLower(strings.TrimSpace(collapsed))
}

func (e *Engine) validateSQL(sql string, readonly bool) error {
	normalized := normalizeSQL(sql)
	if readonly && !(strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "pragma")) {
		return orchtypes.PolicyViolationError("read-only db_query only permits SELECT/PRAGMA", map[string]any{"sql": sql})
	}
	if !readonly && !e.cfg.EnableDBWrites {
		return orchtypes.PolicyViolationError("DB writes are disabled", map[string]any{"sql": sql})
	}
	return nil
}

func (e *Engine) validateCalcExpression(expression string) error {
	if expression == "" {
		return orchtypes.PolicyViolationError("calc expression required", nil)
	}
	if err := validateArithmeticGrammar(expression); err != nil {
		return orchtypes.PolicyViolationError(
			fmt.Sprintf("unsafe calc expression: %s", err.Error()),
			map[string]any{"expression": expression},
		)
	}
	return nil
}

// ValidateHTTPArgs re-runs the HTTP allowlist check outside plan
// validation — handlers call this themselves (mirroring the original's
// per-handler defense-in-depth) since a patched or replanned step never
// goes back through the plan validator.
func (e *Engine) ValidateHTTPArgs(args map[string]any) error {
	return e.validateHTTP(args)
}

// ValidateFilePath re-runs the file_write traversal check at handler time.
func (e *Engine) ValidateFilePath(relativePath string) error {
	return e.validateFilePath(relativePath)
}

// ValidateSQL re-runs the db_query readonly check at handler time.
func (e *Engine) ValidateSQL(sql string, readonly bool) error {
	return e.validateSQL(sql, readonly)
}

// ValidateCalcExpression re-runs the calc grammar whitelist at handler
// time, so calc_tool never evaluates an expression the gate hasn't seen.
func (e *Engine) ValidateCalcExpression(expression string) error {
	return e.validateCalcExpression(expression)
}

func contains(hosts []string, host string) bool {
	for _, h := range hosts {
		if h == host {
			return true
		}
	}
	return false
}
