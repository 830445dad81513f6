// Package bkn parses BKN knowledge-network documents: Markdown files with YAML
// front matter whose bodies describe entities, relations and actions through
// headed sections and pipe tables.
//
// The package is pure. Nothing here performs I/O, holds shared state or
// returns an error for malformed input: structure that cannot be recovered is
// left empty and, where a record has to be dropped, reported as a Diagnostic.
package bkn

// DocType is the front-matter type tag of a document.
type DocType string

const (
	TypeNetwork  DocType = "network"
	TypeEntity   DocType = "entity"
	TypeRelation DocType = "relation"
	TypeAction   DocType = "action"
	TypeFragment DocType = "fragment"
	TypeDelete   DocType = "delete"
)

// ParseDocType maps a raw type value to a DocType. Absent or unknown values
// resolve to TypeFragment.
func ParseDocType(s string) DocType {
	switch t := DocType(s); t {
	case TypeNetwork, TypeEntity, TypeRelation, TypeAction, TypeFragment, TypeDelete:
		return t
	default:
		return TypeFragment
	}
}

// SingleDefinition reports whether documents of this type hold exactly one record.
func (t DocType) SingleDefinition() bool {
	return t == TypeEntity || t == TypeRelation || t == TypeAction
}

// Kind identifies a record kind.
type Kind string

const (
	KindEntity   Kind = "Entity"
	KindRelation Kind = "Relation"
	KindAction   Kind = "Action"
)

// Kinds lists record kinds in scan order.
var Kinds = []Kind{KindEntity, KindRelation, KindAction}

// Target references a record removed by a delete document.
type Target struct {
	Entity   string `json:"entity,omitempty" yaml:"entity,omitempty"`
	Relation string `json:"relation,omitempty" yaml:"relation,omitempty"`
	Action   string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Frontmatter is the typed metadata block of a document.
type Frontmatter struct {
	Type             DocType  `json:"type"`
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Version          string   `json:"version,omitempty"`
	Network          string   `json:"network,omitempty"`
	Namespace        string   `json:"namespace,omitempty"`
	Owner            string   `json:"owner,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Description      string   `json:"description,omitempty"`
	Includes         []string `json:"includes,omitempty"`
	ActionType       string   `json:"action_type,omitempty"`
	Enabled          *bool    `json:"enabled,omitempty"`
	RiskLevel        string   `json:"risk_level,omitempty"`
	RequiresApproval *bool    `json:"requires_approval,omitempty"`
	Targets          []Target `json:"targets,omitempty"`
}

// Document is one parsed source file. It is never mutated after ReadDocument.
type Document struct {
	Path        string      `json:"path"`
	Frontmatter Frontmatter `json:"frontmatter"`
	Content     string      `json:"content"`
	RawContent  string      `json:"rawContent"`
	// Warnings holds non-fatal problems found while splitting the document.
	Warnings []string `json:"warnings,omitempty"`
}

// DataSource is the backing data view of an entity.
type DataSource struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// DataProperty is a column supplied directly by the entity's data source.
type DataProperty struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName,omitempty"`
	Type         string `json:"type,omitempty"`
	Description  string `json:"description,omitempty"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
	IsIndexed    bool   `json:"isIndexed"`
}

// Property is a display or index override on top of a data or logic property.
type Property struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Type        string `json:"type,omitempty"`
	IndexConfig string `json:"indexConfig,omitempty"`
	Description string `json:"description,omitempty"`
}

// Parameter sources.
const (
	SourceProperty = "property"
	SourceInput    = "input"
	SourceConst    = "const"
)

// Parameter binds one input of a logic property or action.
type Parameter struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	Binding     string `json:"binding,omitempty"`
	Description string `json:"description,omitempty"`
}

// Logic property types.
const (
	LogicMetric   = "metric"
	LogicOperator = "operator"
)

// LogicProperty is a derived attribute computed by an external model.
type LogicProperty struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Source      string      `json:"source"`
	SourceType  string      `json:"sourceType,omitempty"`
	Description string      `json:"description,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty"`
}

// Entity is a typed node definition.
type Entity struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	FilePath        string          `json:"filePath"`
	Network         string          `json:"network,omitempty"`
	Namespace       string          `json:"namespace,omitempty"`
	Owner           string          `json:"owner,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	Description     string          `json:"description,omitempty"`
	DataSource      *DataSource     `json:"dataSource,omitempty"`
	PrimaryKey      string          `json:"primaryKey,omitempty"`
	DisplayKey      string          `json:"displayKey,omitempty"`
	DataProperties  []DataProperty  `json:"dataProperties,omitempty"`
	Properties      []Property      `json:"properties,omitempty"`
	LogicProperties []LogicProperty `json:"logicProperties,omitempty"`
}

// Relation types.
const (
	RelationDirect   = "direct"
	RelationDataView = "data_view"
)

// MappingRule maps a property of the source entity to one of the target.
type MappingRule struct {
	SourceProperty string `json:"sourceProperty,omitempty"`
	TargetProperty string `json:"targetProperty,omitempty"`
	ViewProperty   string `json:"viewProperty,omitempty"`
}

// DataView references the view that backs a data_view relation.
type DataView struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Relation is a directed edge between two entities. Source and Target are
// references and may name entities that are not part of the network.
type Relation struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	FilePath     string        `json:"filePath"`
	Network      string        `json:"network,omitempty"`
	Namespace    string        `json:"namespace,omitempty"`
	Owner        string        `json:"owner,omitempty"`
	Description  string        `json:"description,omitempty"`
	Source       string        `json:"source"`
	Target       string        `json:"target"`
	Type         string        `json:"type"`
	MappingRules []MappingRule `json:"mappingRules,omitempty"`
	DataView     *DataView     `json:"dataView,omitempty"`
}

// Action types.
const (
	ActionAdd    = "add"
	ActionModify = "modify"
	ActionDelete = "delete"
)

// Condition gates an action.
type Condition struct {
	Field        string `json:"field"`
	Operation    string `json:"operation"`
	Value        any    `json:"value,omitempty"`
	ObjectTypeID string `json:"object_type_id,omitempty"`
}

// ToolConfig binds an action to a local tool box.
type ToolConfig struct {
	Type   string `json:"type"`
	BoxID  string `json:"boxId,omitempty"`
	ToolID string `json:"toolId"`
}

// MCPConfig binds an action to a remote MCP tool.
type MCPConfig struct {
	Type     string `json:"type"`
	MCPID    string `json:"mcpId"`
	ToolName string `json:"toolName"`
}

// Schedule types.
const (
	ScheduleFixRate = "FIX_RATE"
	ScheduleCron    = "CRON"
)

// Schedule describes when an action runs.
type Schedule struct {
	Type        string `json:"type"`
	Expression  string `json:"expression"`
	Description string `json:"description,omitempty"`
}

// Affect names an object changed by an action.
type Affect struct {
	Object      string `json:"object"`
	Description string `json:"description"`
}

// Action is an executable operation bound to one entity. At most one of
// ToolConfig and MCPConfig is set.
type Action struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	FilePath         string      `json:"filePath"`
	Network          string      `json:"network,omitempty"`
	Namespace        string      `json:"namespace,omitempty"`
	Owner            string      `json:"owner,omitempty"`
	Description      string      `json:"description,omitempty"`
	EntityID         string      `json:"entityId"`
	ActionType       string      `json:"actionType"`
	Enabled          *bool       `json:"enabled,omitempty"`
	RiskLevel        string      `json:"risk_level,omitempty"`
	RequiresApproval *bool       `json:"requires_approval,omitempty"`
	Condition        *Condition  `json:"condition,omitempty"`
	ToolConfig       *ToolConfig `json:"toolConfig,omitempty"`
	MCPConfig        *MCPConfig  `json:"mcpConfig,omitempty"`
	Parameters       []Parameter `json:"parameters,omitempty"`
	Schedule         *Schedule   `json:"schedule,omitempty"`
	Affect           []Affect    `json:"affect,omitempty"`
	ExecutionSteps   []string    `json:"executionSteps,omitempty"`
	RollbackPlan     string      `json:"rollbackPlan,omitempty"`
}

// Diagnostic is a non-fatal warning about a document or record.
type Diagnostic struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Network is the aggregate assembled from one project's documents.
type Network struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Entities    []Entity     `json:"entities"`
	Relations   []Relation   `json:"relations"`
	Actions     []Action     `json:"actions"`
	Files       []Document   `json:"files"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Export is the serializable form of a network without file contents.
type Export struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
	Actions   []Action   `json:"actions"`
}

// Export returns the network without its source documents.
func (n Network) Export() Export {
	return Export{
		ID:        n.ID,
		Name:      n.Name,
		Entities:  n.Entities,
		Relations: n.Relations,
		Actions:   n.Actions,
	}
}
