// Package registry owns the lifecycle and lookup of preview instances.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/preview-gateway/internal/models"
)

// Common errors returned by the registry.
var (
	ErrNotFound       = errors.New("instance not found")
	ErrNotInitialized = errors.New("registry not initialized")
)

// LaunchFunc starts the backing preview process for a project and returns
// its host:port address. The registry treats it as opaque.
type LaunchFunc func(ctx context.Context, projectID string) (string, error)

// Stopper signals a backing preview process to terminate.
type Stopper interface {
	StopInstance(ctx context.Context, inst *models.PreviewInstance) error
}

// NopStopper is a Stopper that does nothing. Used when process termination
// is handled out-of-band.
type NopStopper struct{}

func (NopStopper) StopInstance(ctx context.Context, inst *models.PreviewInstance) error {
	return nil
}

// Config holds registry configuration.
type Config struct {
	// LaunchTimeout bounds how long a single instance launch may take
	// before the instance is marked errored.
	LaunchTimeout time.Duration
	// WorkspaceRoot is the directory holding per-project workspaces; an
	// instance's WorkspacePath is derived from it.
	WorkspaceRoot string
}

// Registry is the authoritative owner of PreviewInstance records. All state
// is process-lifetime only; instances do not survive a restart.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*models.PreviewInstance

	launchTimeout time.Duration
	workspaceRoot string
	stopper       Stopper
	logger        *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a registry. Call Init before use and Shutdown on process exit.
func New(cfg Config, stopper Stopper, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if stopper == nil {
		stopper = NopStopper{}
	}
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = 2 * time.Minute
	}
	return &Registry{
		launchTimeout: cfg.LaunchTimeout,
		workspaceRoot: cfg.WorkspaceRoot,
		stopper:       stopper,
		logger:        logger.With("component", "registry"),
	}
}

// Init makes the registry ready to accept instances.
func (r *Registry) Init() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instances != nil {
		return
	}
	r.instances = make(map[string]*models.PreviewInstance)
	r.baseCtx, r.cancel = context.WithCancel(context.Background())
}

// Shutdown stops all running instances and releases registry state. Pending
// launches are cancelled; their instances end up in the error state.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if r.instances == nil {
		r.mu.Unlock()
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	running := make([]*models.PreviewInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		if inst.Status == models.InstanceStatusRunning {
			running = append(running, inst.Clone())
		}
	}
	r.mu.Unlock()

	for _, inst := range running {
		if err := r.stopper.StopInstance(ctx, inst); err != nil {
			r.logger.Warn("failed to stop instance during shutdown",
				"instance_id", inst.ID, "error", err)
		}
		r.transition(inst.ID, models.InstanceStatusStopped, "")
	}

	r.mu.Lock()
	r.instances = nil
	r.mu.Unlock()
}

// Create allocates a new instance in the starting state and launches its
// backing process asynchronously. Callers poll Get for the status change;
// launcher failures surface as status=error, never as a Create error.
func (r *Registry) Create(projectID, ownerID string, launch LaunchFunc) (*models.PreviewInstance, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if launch == nil {
		return nil, fmt.Errorf("launch function is required")
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	inst := &models.PreviewInstance{
		ID:             id,
		ProjectID:      projectID,
		OwnerID:        ownerID,
		Status:         models.InstanceStatusStarting,
		PublicBasePath: models.PublicBasePath(projectID, id),
		WorkspacePath:  filepath.Join(r.workspaceRoot, projectID),
		StartedAt:      now,
		LastAccessedAt: now,
	}

	r.mu.Lock()
	if r.instances == nil {
		r.mu.Unlock()
		return nil, ErrNotInitialized
	}
	r.instances[id] = inst
	baseCtx := r.baseCtx
	r.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(baseCtx, r.launchTimeout)
		defer cancel()

		addr, err := launch(ctx, projectID)
		if err != nil {
			r.logger.Error("instance launch failed",
				"instance_id", id, "project_id", projectID, "error", err)
			r.transitionWithAddress(id, models.InstanceStatusError, err.Error(), "")
			return
		}
		r.transitionWithAddress(id, models.InstanceStatusRunning, "", addr)
		r.logger.Info("instance running",
			"instance_id", id, "project_id", projectID, "address", addr)
	}()

	return inst.Clone(), nil
}

// Get retrieves an instance by id.
func (r *Registry) Get(id string) (*models.PreviewInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.instances == nil {
		return nil, ErrNotInitialized
	}
	inst, ok := r.instances[id]
	if !ok {
		return nil, ErrNotFound
	}
	return inst.Clone(), nil
}

// ListByProject returns all instances for a project, in no particular order.
func (r *Registry) ListByProject(projectID string) []*models.PreviewInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.PreviewInstance
	for _, inst := range r.instances {
		if inst.ProjectID == projectID {
			out = append(out, inst.Clone())
		}
	}
	return out
}

// Stop signals the backing process to terminate and marks the instance
// stopped. Stopping an already-stopped instance is a no-op.
func (r *Registry) Stop(ctx context.Context, id string) error {
	r.mu.RLock()
	inst, ok := r.instances[id]
	if ok {
		inst = inst.Clone()
	}
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	if inst.Status == models.InstanceStatusStopped {
		return nil
	}

	if inst.Status == models.InstanceStatusRunning {
		if err := r.stopper.StopInstance(ctx, inst); err != nil {
			// The record still moves to stopped: the caller asked for the
			// instance to go away, and a half-dead process must not keep it
			// listed as running.
			r.logger.Warn("stop signal failed", "instance_id", id, "error", err)
		}
	}

	r.transition(id, models.InstanceStatusStopped, "")
	return nil
}

// Touch updates an instance's last access time. Called on every
// successfully proxied request.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[id]; ok {
		inst.LastAccessedAt = time.Now().UTC()
	}
}

// Ping implements the health checker's Pinger interface.
func (r *Registry) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.instances == nil {
		return ErrNotInitialized
	}
	return nil
}

// Count returns the number of tracked instances.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

func (r *Registry) transition(id string, next models.InstanceStatus, msg string) {
	r.transitionWithAddress(id, next, msg, "")
}

func (r *Registry) transitionWithAddress(id string, next models.InstanceStatus, msg, addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok {
		return
	}
	if !inst.Status.CanTransition(next) {
		// Late launch results racing a Stop land here; the terminal state
		// wins.
		return
	}
	inst.Status = next
	if msg != "" {
		inst.ErrorMessage = msg
	}
	if addr != "" {
		inst.BackingAddress = addr
	}
}
