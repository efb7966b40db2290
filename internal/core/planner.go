package core

import "context"

// Role tags a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "model"
	RoleTool      Role = "tool"
)

// Error kinds carried by failed observations.
const (
	ErrKindUnknownTool = "unknown_tool"
	ErrKindValidation  = "validation_error"
	ErrKindStore       = "store_error"
)

// Param types a tool schema may declare.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeDate    = "date" // YYYY-MM-DD calendar date
	TypeObject  = "object"
)

// Param declares one tool parameter. FromContext params are filled by the
// dispatcher from the authenticated turn context; they are hidden from the
// planner and any planner-supplied value for them is discarded.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	FromContext bool
}

// ToolSpec is a catalog entry describing one callable tool.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// ToolCall is one tool invocation requested by the planner. The ID is
// assigned by the loop so observations can be attributed to their call.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Observation is the structured result of one tool invocation, surfaced
// back to the planner through the transcript.
type Observation struct {
	CallID    string         `json:"call_id"`
	ToolName  string         `json:"tool_name"`
	OK        bool           `json:"ok"`
	ErrorKind string         `json:"error_kind,omitempty"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Message is one transcript entry. Exactly one of the role-specific field
// sets is populated: Content for user text and assistant answers, ToolCalls
// for assistant tool requests, Observation for tool results.
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	Observation *Observation
}

// Decision is the planner's verdict for one planning step: either a final
// answer or one or more tool calls, never both.
type Decision struct {
	FinalAnswer string
	ToolCalls   []ToolCall
}

// IsFinal reports whether the decision terminates the turn.
func (d *Decision) IsFinal() bool {
	return len(d.ToolCalls) == 0
}

// Planner is the opaque decision oracle behind the agent loop. Given the
// transcript so far and the tool catalog it returns the next Decision.
// Implementations may be arbitrarily non-deterministic; the loop only
// relies on the Decision shape, and calls Decide at most once per
// planning step.
type Planner interface {
	Decide(ctx context.Context, transcript []Message, catalog []ToolSpec) (*Decision, error)
}
