package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/narvanalabs/preview-gateway/internal/api/errors"
	"github.com/narvanalabs/preview-gateway/internal/auth"
	"github.com/narvanalabs/preview-gateway/internal/inspect"
	"github.com/narvanalabs/preview-gateway/internal/registry"
)

// InspectionHandler serves the annotated inspection document. It does its
// own token authentication because the document is loaded in an iframe,
// which cannot attach an Authorization header; the token rides in a query
// parameter instead.
type InspectionHandler struct {
	registry   *registry.Registry
	generator  *inspect.Generator
	verifier   auth.Verifier
	tokenParam string
	logger     *slog.Logger
}

// NewInspectionHandler creates the inspection handler.
func NewInspectionHandler(reg *registry.Registry, gen *inspect.Generator, verifier auth.Verifier, tokenParam string, logger *slog.Logger) *InspectionHandler {
	if tokenParam == "" {
		tokenParam = "token"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InspectionHandler{
		registry:   reg,
		generator:  gen,
		verifier:   verifier,
		tokenParam: tokenParam,
		logger:     logger,
	}
}

// Get handles GET /projects/{projectID}/preview/{instanceID}/inspection.
// Optional query parameters: path (page to snapshot, defaults to the last
// visited one) and format=json (element catalog instead of the document).
func (h *InspectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	token := r.URL.Query().Get(h.tokenParam)
	if token == "" {
		token = auth.ExtractBearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		apierrors.WriteError(w, apierrors.NewUnauthorizedError("missing access token"))
		return
	}
	principal, err := h.verifier.Verify(token)
	if err != nil {
		apierrors.WriteError(w, apierrors.NewUnauthorizedError("invalid access token"))
		return
	}

	inst, err := h.registry.Get(instanceID)
	if err != nil {
		apierrors.WriteError(w, apierrors.NewNotFoundError("preview instance not found"))
		return
	}
	if inst.OwnerID != principal.ID {
		apierrors.WriteError(w, apierrors.NewForbiddenError("preview belongs to a different user"))
		return
	}

	result := h.generator.Generate(r.Context(), instanceID, r.URL.Query().Get("path"))

	if strings.EqualFold(r.URL.Query().Get("format"), "json") {
		apierrors.WriteJSON(w, http.StatusOK, map[string]any{
			"instance_id": instanceID,
			"path":        result.Path,
			"degraded":    result.Degraded,
			"elements":    result.Elements,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, result.HTML)
}
