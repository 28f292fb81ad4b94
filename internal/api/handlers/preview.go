// Package handlers contains the HTTP handlers for the preview lifecycle API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/narvanalabs/preview-gateway/internal/api/errors"
	"github.com/narvanalabs/preview-gateway/internal/api/middleware"
	"github.com/narvanalabs/preview-gateway/internal/launcher"
	"github.com/narvanalabs/preview-gateway/internal/models"
	"github.com/narvanalabs/preview-gateway/internal/navigation"
	"github.com/narvanalabs/preview-gateway/internal/registry"
)

// PreviewHandler handles preview instance lifecycle requests.
type PreviewHandler struct {
	registry *registry.Registry
	nav      *navigation.Tracker
	launcher launcher.Launcher
	logger   *slog.Logger
}

// NewPreviewHandler creates a new preview lifecycle handler.
func NewPreviewHandler(reg *registry.Registry, nav *navigation.Tracker, l launcher.Launcher, logger *slog.Logger) *PreviewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreviewHandler{
		registry: reg,
		nav:      nav,
		launcher: l,
		logger:   logger,
	}
}

// Start handles POST /projects/{projectID}/preview/start.
// The instance is returned immediately in the starting state; callers poll
// the status endpoint for the outcome of the launch.
func (h *PreviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	userID := middleware.GetUserID(r.Context())

	inst, err := h.registry.Create(projectID, userID, h.launcher.Launch)
	if err != nil {
		if errors.Is(err, registry.ErrNotInitialized) {
			apierrors.WriteError(w, apierrors.NewInternalError("registry is not ready"))
			return
		}
		apierrors.WriteError(w, apierrors.NewValidationError(err.Error()))
		return
	}

	h.logger.Info("preview instance created",
		"instance_id", inst.ID,
		"project_id", projectID,
		"user_id", userID,
	)
	apierrors.WriteJSON(w, http.StatusCreated, inst)
}

// List handles GET /projects/{projectID}/preview/list.
func (h *PreviewHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	userID := middleware.GetUserID(r.Context())

	instances := h.registry.ListByProject(projectID)
	owned := make([]*models.PreviewInstance, 0, len(instances))
	for _, inst := range instances {
		if inst.OwnerID == userID {
			owned = append(owned, inst)
		}
	}

	apierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"instances": owned,
	})
}

// Status handles GET /projects/{projectID}/preview/{instanceID}/status.
func (h *PreviewHandler) Status(w http.ResponseWriter, r *http.Request) {
	inst, apiErr := h.ownedInstance(r)
	if apiErr != nil {
		apierrors.WriteError(w, apiErr)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, inst)
}

// Stop handles DELETE /projects/{projectID}/preview/{instanceID}.
// Stopping is idempotent: repeating the call on a stopped instance succeeds.
func (h *PreviewHandler) Stop(w http.ResponseWriter, r *http.Request) {
	inst, apiErr := h.ownedInstance(r)
	if apiErr != nil {
		apierrors.WriteError(w, apiErr)
		return
	}

	if err := h.registry.Stop(r.Context(), inst.ID); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			apierrors.WriteError(w, apierrors.NewNotFoundError("preview instance not found"))
			return
		}
		apierrors.WriteError(w, apierrors.NewInternalError("failed to stop instance"))
		return
	}

	h.logger.Info("preview instance stopped", "instance_id", inst.ID)
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// LastPath handles GET /projects/{projectID}/preview/{instanceID}/last-path.
func (h *PreviewHandler) LastPath(w http.ResponseWriter, r *http.Request) {
	inst, apiErr := h.ownedInstance(r)
	if apiErr != nil {
		apierrors.WriteError(w, apiErr)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"instance_id": inst.ID,
		"path":        h.nav.Get(inst.ID),
	})
}

type setPathRequest struct {
	Path string `json:"path"`
}

// SetPath handles POST /projects/{projectID}/preview/{instanceID}/set-path.
// Lets tooling steer which page inspection mode snapshots next.
func (h *PreviewHandler) SetPath(w http.ResponseWriter, r *http.Request) {
	inst, apiErr := h.ownedInstance(r)
	if apiErr != nil {
		apierrors.WriteError(w, apiErr)
		return
	}

	var req setPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, apierrors.NewValidationError("invalid request body"))
		return
	}
	if req.Path == "" {
		apierrors.WriteError(w, apierrors.NewValidationError("path is required"))
		return
	}

	h.nav.Record(inst.ID, req.Path)
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"instance_id": inst.ID,
		"path":        h.nav.Get(inst.ID),
	})
}

// ClearCache handles POST /projects/{projectID}/preview/{instanceID}/clear-cache,
// resetting the instance's recorded navigation.
func (h *PreviewHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	inst, apiErr := h.ownedInstance(r)
	if apiErr != nil {
		apierrors.WriteError(w, apiErr)
		return
	}

	h.nav.Clear(inst.ID)
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ownedInstance resolves the instance from the URL and verifies the
// authenticated caller owns it.
func (h *PreviewHandler) ownedInstance(r *http.Request) (*models.PreviewInstance, *apierrors.APIError) {
	instanceID := chi.URLParam(r, "instanceID")
	userID := middleware.GetUserID(r.Context())

	inst, err := h.registry.Get(instanceID)
	if err != nil {
		return nil, apierrors.NewNotFoundError("preview instance not found")
	}
	if inst.OwnerID != userID {
		return nil, apierrors.NewForbiddenError("preview belongs to a different user")
	}
	return inst, nil
}
