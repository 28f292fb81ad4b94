package models

// SemanticRole classifies what an interactive element is for.
type SemanticRole string

const (
	RoleAction     SemanticRole = "action"
	RoleNavigation SemanticRole = "navigation"
	RoleInput      SemanticRole = "input"
	RoleLayout     SemanticRole = "layout"
	RoleContent    SemanticRole = "content"
	RoleUnknown    SemanticRole = "unknown"
)

// ActionHint sub-classifies action elements by intent, derived from keyword
// matches on the element's text.
type ActionHint string

const (
	ActionSubmit      ActionHint = "submit"
	ActionCancel      ActionHint = "cancel"
	ActionDestructive ActionHint = "destructive"
	ActionEdit        ActionHint = "edit"
	ActionCreate      ActionHint = "create"
)

// InspectionElement describes one clickable element found in a rendered
// page. Created fresh on every inspection pass and discarded after the
// response is sent; never persisted.
type InspectionElement struct {
	ID                 string            `json:"id"`
	Selector           string            `json:"selector"`
	TagName            string            `json:"tag_name"`
	ComponentNameGuess string            `json:"component_name_guess,omitempty"`
	TextSnippet        string            `json:"text_snippet,omitempty"`
	Attributes         map[string]string `json:"attributes,omitempty"`
	SemanticRole       SemanticRole      `json:"semantic_role"`
	ActionHint         ActionHint        `json:"action_hint,omitempty"`
	ParentContext      string            `json:"parent_context,omitempty"`
}
