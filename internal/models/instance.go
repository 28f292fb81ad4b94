package models

import (
	"fmt"
	"time"
)

// InstanceStatus represents the lifecycle state of a preview instance.
type InstanceStatus string

const (
	InstanceStatusStarting InstanceStatus = "starting"
	InstanceStatusRunning  InstanceStatus = "running"
	InstanceStatusError    InstanceStatus = "error"
	InstanceStatusStopped  InstanceStatus = "stopped"
)

// Terminal reports whether the status permits no further transitions.
// A new instance must be created to get a fresh preview; there is no
// restart-in-place.
func (s InstanceStatus) Terminal() bool {
	return s == InstanceStatusError || s == InstanceStatusStopped
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step: starting -> running | error | stopped, running -> stopped. A stop
// requested while the launch is still in flight wins over the launch result.
func (s InstanceStatus) CanTransition(next InstanceStatus) bool {
	switch s {
	case InstanceStatusStarting:
		return next == InstanceStatusRunning || next == InstanceStatusError || next == InstanceStatusStopped
	case InstanceStatusRunning:
		return next == InstanceStatusStopped || next == InstanceStatusError
	default:
		return false
	}
}

// PreviewInstance represents one running copy of a previewed application.
type PreviewInstance struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	OwnerID   string `json:"owner_id"`

	Status InstanceStatus `json:"status"`

	// BackingAddress is the host:port of the launched preview process. Set
	// when the instance becomes running and never reused across instances.
	BackingAddress string `json:"backing_address,omitempty"`

	// PublicBasePath is the stable external path prefix clients use to reach
	// this instance. Computed once at creation and immutable afterwards.
	PublicBasePath string `json:"public_base_path"`

	// WorkspacePath is the local filesystem root of the synced project,
	// used only by the static-fallback path.
	WorkspacePath string `json:"workspace_path,omitempty"`

	StartedAt      time.Time `json:"started_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// PublicBasePath builds the stable proxy prefix for an instance.
func PublicBasePath(projectID, instanceID string) string {
	return fmt.Sprintf("/projects/%s/preview/%s/proxy", projectID, instanceID)
}

// Clone returns a copy of the instance safe to hand to callers.
func (i *PreviewInstance) Clone() *PreviewInstance {
	c := *i
	return &c
}
