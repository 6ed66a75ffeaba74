// Package ast defines the typed workflow graph FlowScript compiles source
// text into: WorkflowMetadata (frontmatter), the NodeAST tagged-variant
// hierarchy (body), and the WorkflowAST that ties them together with a
// source map. Shaped after engine/domain/workflow/config.go's Config
// struct (exported fields, json/yaml tags, a Validate-friendly layout),
// generalized from the teacher's single-purpose config to the spec's
// larger tagged-variant node model.
package ast

import "github.com/flowscript/flowscript/engine/sourcemap"

// TriggerType enumerates how a workflow run can be initiated.
type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerWebhook  TriggerType = "webhook"
	TriggerSchedule TriggerType = "schedule"
)

// Trigger describes how a workflow is invoked.
type Trigger struct {
	Type   TriggerType    `json:"type"             yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// ConfigFieldType enumerates the scalar/compound types a config field can
// declare.
type ConfigFieldType string

const (
	ConfigTypeString  ConfigFieldType = "string"
	ConfigTypeNumber  ConfigFieldType = "number"
	ConfigTypeBoolean ConfigFieldType = "boolean"
	ConfigTypeObject  ConfigFieldType = "object"
	ConfigTypeArray   ConfigFieldType = "array"
)

// ConfigField describes one entry of metadata.config.
type ConfigField struct {
	Type        ConfigFieldType `json:"type"                  yaml:"type"`
	Default     any             `json:"default,omitempty"     yaml:"default,omitempty"`
	Required    bool            `json:"required,omitempty"    yaml:"required,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// Evolution captures the optional evolution/feedback metadata of a
// workflow. Only recognized (non-nil) when Generation was explicitly set
// in the source frontmatter.
type Evolution struct {
	Generation int      `json:"generation"           yaml:"generation"`
	Parent     string   `json:"parent,omitempty"     yaml:"parent,omitempty"`
	Fitness    *float64 `json:"fitness,omitempty"    yaml:"fitness,omitempty"`
	Learnings  []string `json:"learnings,omitempty"  yaml:"learnings,omitempty"`
}

// Metadata is the decoded, validated frontmatter of a workflow document.
type Metadata struct {
	Name        string                 `json:"name"                  yaml:"name"`
	Version     string                 `json:"version"               yaml:"version"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Trigger     *Trigger               `json:"trigger,omitempty"     yaml:"trigger,omitempty"`
	Config      map[string]ConfigField `json:"config,omitempty"      yaml:"config,omitempty"`
	Secrets     []string               `json:"secrets,omitempty"     yaml:"secrets,omitempty"`
	Schemas     map[string]any         `json:"schemas,omitempty"     yaml:"schemas,omitempty"`
	Evolution   *Evolution             `json:"evolution,omitempty"   yaml:"evolution,omitempty"`
}

// Workflow is the full compiled AST: metadata, top-level nodes, and the
// source map the parser produced it from.
type Workflow struct {
	Metadata  Metadata
	Nodes     []Node
	SourceMap *sourcemap.Map
}
