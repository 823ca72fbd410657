package domain

import (
	"time"
)

// AuditEntry records the outcome of one user-initiated action.
type AuditEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Outcome returns "ok" or "failed" for display.
func (e *AuditEntry) Outcome() string {
	if e.Success {
		return "ok"
	}
	return "failed"
}
