package models

import (
	"time"
)

// ==================== Selector Types ====================

// Reserved path delimiters. A SelectorPath is an XPath-like string whose
// segments are separated by "/" or "//"; the crossing tokens below mark a
// traversal across a shadow root or into an iframe document.
const (
	ShadowCrossToken = ">>"
	IframeCrossToken = ":>>"
)

// SelectorObj binds a selector to the attribute that should be read from the
// matched element when the selector is replayed.
type SelectorObj struct {
	Selector  string `json:"selector"`
	Tag       string `json:"tag"`
	Attribute string `json:"attribute"`
	IsShadow  bool   `json:"isShadow,omitempty"`
}

// Attribute bindings a FieldCandidate may carry.
const (
	AttrInnerText = "innerText"
	AttrHref      = "href"
	AttrSrc       = "src"
	AttrAlt       = "alt"
)

// ==================== List Capture Types ====================

// ListDescriptor identifies the repeating container confirmed by the user.
// It is created on confirmation, replaced by re-confirmation and destroyed
// when list-capture mode is exited.
type ListDescriptor struct {
	ListSelector string `json:"listSelector"`
	IsShadow     bool   `json:"isShadow,omitempty"`
	SampleSize   int    `json:"sampleSize"`
}

// Position is a point in page coordinates used for spatial ordering.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FieldCandidate is a proposed (selector, attribute, value) extraction unit
// produced by the extractor, before deduplication.
type FieldCandidate struct {
	ID            string      `json:"id"`
	SelectorObj   SelectorObj `json:"selectorObj"`
	Data          string      `json:"data"`
	Position      Position    `json:"position"`
	IsLeaf        bool        `json:"isLeaf"`
	Depth         int         `json:"depth"`
	SuggestedName string      `json:"suggested_name,omitempty"`
}

// FieldSet is the finalized, labeled output of a list capture. Labels are
// sequential ("Label 1".."Label N") with no gaps.
type FieldSet map[string]FieldCandidate

// ==================== Pagination Types ====================

// PaginationType enumerates how a list advances to further items.
type PaginationType string

const (
	PaginationNone          PaginationType = "none"
	PaginationScrollDown    PaginationType = "scrollDown"
	PaginationScrollUp      PaginationType = "scrollUp"
	PaginationClickNext     PaginationType = "clickNext"
	PaginationClickLoadMore PaginationType = "clickLoadMore"
)

// PaginationDescriptor records the capture of a pagination control. For the
// click types the selector is pinned, never generalized; for the scroll types
// no selector is recorded at all.
type PaginationDescriptor struct {
	Type     PaginationType `json:"type"`
	Selector string         `json:"selector,omitempty"`
	IsShadow bool           `json:"isShadow,omitempty"`
}

// ==================== Robot & Step Types ====================

// Robot is a stored recording: the capture output plus enough context to
// replay the extraction unattended.
type Robot struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	TargetURL string    `json:"target_url" db:"target_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Computed fields (not stored directly)
	Steps []RobotStep `json:"steps,omitempty"`
}

// StepType distinguishes the kinds of recorded steps.
type StepType string

const (
	StepCaptureList       StepType = "capture_list"
	StepCapturePagination StepType = "capture_pagination"
	StepCaptureLimit      StepType = "capture_limit"
)

// RobotStep is the serialized hand-off from the capture engine: plain data,
// no DOM references.
type RobotStep struct {
	ID         string                `json:"id" db:"id"`
	RobotID    string                `json:"robot_id" db:"robot_id"`
	SequenceID int                   `json:"sequence_id" db:"sequence_id"`
	Type       StepType              `json:"type" db:"type"`
	List       *ListDescriptor       `json:"list,omitempty"`
	Fields     FieldSet              `json:"fields,omitempty"`
	Pagination *PaginationDescriptor `json:"pagination,omitempty"`
	Limit      int                   `json:"limit,omitempty"`
	CreatedAt  time.Time             `json:"created_at" db:"created_at"`
}

// ==================== Extraction Run Types ====================

// RunStatus represents the status of an extraction run.
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusRunning  RunStatus = "running"
	StatusSuccess  RunStatus = "success"
	StatusFailed   RunStatus = "failed"
	StatusCanceled RunStatus = "canceled"
)

// ExtractionRun represents a single unattended replay of a robot.
type ExtractionRun struct {
	ID                 string     `json:"id" db:"id"`
	RobotID            string     `json:"robot_id" db:"robot_id"`
	TemporalRunID      string     `json:"temporal_run_id" db:"temporal_run_id"`
	TemporalWorkflowID string     `json:"temporal_workflow_id" db:"temporal_workflow_id"`
	Status             RunStatus  `json:"status" db:"status"`
	RowCount           int        `json:"row_count" db:"row_count"`
	PagesVisited       int        `json:"pages_visited" db:"pages_visited"`
	StartedAt          *time.Time `json:"started_at" db:"started_at"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"`
	ErrorMessage       string     `json:"error_message,omitempty" db:"error_message"`

	// Computed fields
	Rows []ExtractedRow `json:"rows,omitempty"`
}

// ExtractedRow is one list instance's values keyed by field label.
type ExtractedRow struct {
	ID        string            `json:"id" db:"id"`
	RunID     string            `json:"run_id" db:"run_id"`
	Ordinal   int               `json:"ordinal" db:"ordinal"`
	PageURL   string            `json:"page_url" db:"page_url"`
	Values    map[string]string `json:"values"`
	ScrapedAt time.Time         `json:"scraped_at" db:"scraped_at"`
}

// ==================== Workflow I/O Types ====================

// ExtractionInput is the input to the Temporal extraction workflow.
type ExtractionInput struct {
	RobotID   string      `json:"robot_id"`
	RunID     string      `json:"run_id"`
	TargetURL string      `json:"target_url"`
	Steps     []RobotStep `json:"steps"`
	Headless  bool        `json:"headless"`
	MaxPages  int         `json:"max_pages"`
	Timeout   int         `json:"timeout_seconds"`
}

// ExtractionResult is the output of the Temporal extraction workflow.
type ExtractionResult struct {
	RunID         string         `json:"run_id"`
	Status        RunStatus      `json:"status"`
	Rows          []ExtractedRow `json:"rows"`
	PagesVisited  int            `json:"pages_visited"`
	TotalDuration int64          `json:"total_duration_ms"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// ExecuteRequest is a request to start an extraction run for a robot.
type ExecuteRequest struct {
	RobotID  string `json:"robot_id"`
	Headless bool   `json:"headless"`
	MaxPages int    `json:"max_pages"`
}

// ==================== Capture Transport Types ====================

// CapturePayload is what the recording front-end sends when the user confirms
// a selection: the flattened page snapshot plus the concrete element path the
// interaction targeted.
type CapturePayload struct {
	HTML       string `json:"html"`
	BaseURL    string `json:"base_url"`
	AnchorPath string `json:"anchor_path"`
	IsShadow   bool   `json:"is_shadow,omitempty"`
	RobotName  string `json:"robot_name,omitempty"`
}

// WSMessage is a message on the capture-session websocket.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Capture websocket message types.
const (
	WSSnapshot          = "snapshot"
	WSHover             = "hover"
	WSConfirmList       = "confirm_list"
	WSCapturePagination = "capture_pagination"
	WSExitCapture       = "exit_capture"
	WSHighlight         = "highlight"
	WSFieldSet          = "field_set"
	WSError             = "error"
)

// HoverPayload carries a pointer event target into the capture session.
type HoverPayload struct {
	Path     string `json:"path"`
	IsShadow bool   `json:"is_shadow,omitempty"`
}

// HighlightResponse tells the front-end how the hovered element classified.
type HighlightResponse struct {
	IsGroup      bool   `json:"is_group"`
	MemberCount  int    `json:"member_count"`
	ListSelector string `json:"list_selector,omitempty"`
}
