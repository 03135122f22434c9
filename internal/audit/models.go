package audit

import "time"

// Event is emitted from domain logic to capture registry changes. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Source         string    `json:"source,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	Detail         string    `json:"detail,omitempty"`
}

type EventType string

const (
	EventOrganizationCreated   EventType = "organization_created"
	EventOrganizationUpdated   EventType = "organization_updated"
	EventOrganizationDissolved EventType = "organization_dissolved"
	EventImportCompleted       EventType = "import_completed"
	EventSyncCompleted         EventType = "sync_completed"
)
