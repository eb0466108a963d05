package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultSubject = "secops.cameras.status"

// CameraStatusChanged is published after a camera status write succeeds.
type CameraStatusChanged struct {
	EventID     uuid.UUID  `json:"event_id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	CameraID    uuid.UUID  `json:"camera_id"`
	Status      string     `json:"status"`
	Previous    string     `json:"previous_status,omitempty"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
	DedupKey    string     `json:"dedup_key"`
}

// NewCameraStatusChanged fills the event id and dedup key.
func NewCameraStatusChanged(tenantID, projectID, cameraID uuid.UUID, status, previous string, at time.Time) *CameraStatusChanged {
	return &CameraStatusChanged{
		EventID:    uuid.New(),
		TenantID:   tenantID,
		ProjectID:  projectID,
		CameraID:   cameraID,
		Status:     status,
		Previous:   previous,
		OccurredAt: at.UTC(),
		DedupKey:   BuildDedupKey(tenantID, cameraID, status, at),
	}
}

// BuildDedupKey buckets to the second so a double click does not publish twice.
func BuildDedupKey(tenantID, cameraID uuid.UUID, status string, at time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%d", tenantID, cameraID, status, at.Truncate(time.Second).Unix())
}
