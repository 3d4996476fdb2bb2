// Package tools implements the six stock tool handlers RegisterDefaults
// wires into a *toolregistry.Registry, grounded on
// original_source/execution/tools/*.py and execution/tool_schemas.py.
// JSON Schema strings here describe the same shapes as the original's
// pydantic Args models; Schema-level defaults are documentation only —
// jsonschema/v6 never injects them, so every handler applies its own
// defaults exactly where the original's pydantic Field(default=...) did.
package tools

const httpGetArgsSchema = `{
	"type": "object",
	"properties": {
		"url": {"type": "string", "minLength": 1},
		"params": {"type": "object"},
		"headers": {"type": "object"},
		"timeout_s": {"type": "number", "exclusiveMinimum": 0},
		"expect_json": {"type": "boolean"},
		"allow_malformed": {"type": "boolean"}
	},
	"required": ["url"],
	"additionalProperties": false
}`

const httpPostArgsSchema = `{
	"type": "object",
	"properties": {
		"url": {"type": "string", "minLength": 1},
		"json_body": {"type": "object"},
		"headers": {"type": "object"},
		"timeout_s": {"type": "number", "exclusiveMinimum": 0},
		"expect_json": {"type": "boolean"},
		"idempotency_key": {"type": ["string", "null"]}
	},
	"required": ["url"],
	"additionalProperties": false
}`

const dbQueryArgsSchema = `{
	"type": "object",
	"properties": {
		"sql": {"type": "string", "minLength": 1},
		"params": {"type": "array"},
		"readonly": {"type": "boolean"},
		"limit": {"type": ["integer", "null"], "minimum": 0}
	},
	"required": ["sql"],
	"additionalProperties": false
}`

const fileWriteArgsSchema = `{
	"type": "object",
	"properties": {
		"relative_path": {"type": "string", "minLength": 1},
		"content": {"type": "string"},
		"overwrite": {"type": "boolean"},
		"create_dirs": {"type": "boolean"}
	},
	"required": ["relative_path", "content"],
	"additionalProperties": false
}`

const calcArgsSchema = `{
	"type": "object",
	"properties": {
		"expression": {"type": "string", "minLength": 1}
	},
	"required": ["expression"],
	"additionalProperties": false
}`

const summarizeArgsSchema = `{
	"type": "object",
	"properties": {
		"text": {"type": "string"},
		"max_sentences": {"type": "integer", "minimum": 1},
		"style": {"type": "string", "enum": ["brief", "bullet"]}
	},
	"required": ["text"],
	"additionalProperties": false
}`
