// Package gateway implements the externally facing reverse proxy that
// confines preview traffic under each instance's public base path.
package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/narvanalabs/preview-gateway/internal/api/errors"
	"github.com/narvanalabs/preview-gateway/internal/auth"
	"github.com/narvanalabs/preview-gateway/internal/filestore"
	"github.com/narvanalabs/preview-gateway/internal/models"
	"github.com/narvanalabs/preview-gateway/internal/navigation"
	"github.com/narvanalabs/preview-gateway/internal/registry"
	"github.com/narvanalabs/preview-gateway/internal/rewrite"
)

// maxRequestBody bounds buffered request bodies forwarded upstream.
const maxRequestBody = 10 << 20

// Config holds gateway configuration.
type Config struct {
	UpstreamTimeout time.Duration
	ExternalOrigin  string
	TokenParam      string
}

// Gateway resolves, authorizes, forwards, and rewrites preview traffic.
type Gateway struct {
	registry   *registry.Registry
	nav        *navigation.Tracker
	files      filestore.Store
	verifier   auth.Verifier
	classifier *Classifier

	contentChain []resolutionStrategy
	assetChain   []resolutionStrategy

	externalOrigin string
	tokenParam     string
	metrics        *Metrics
	logger         *slog.Logger
}

// New creates a gateway. The resolution chains are fixed at construction:
// content requests get the full fallback cascade, asset requests stop after
// the upstream (a broken image is acceptable, a blank page is not).
func New(cfg Config, reg *registry.Registry, nav *navigation.Tracker, files filestore.Store, verifier auth.Verifier, classifier *Classifier, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 15 * time.Second
	}
	if cfg.TokenParam == "" {
		cfg.TokenParam = "token"
	}
	if classifier == nil {
		classifier = NewClassifier(nil)
	}

	client := &http.Client{
		Timeout: cfg.UpstreamTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Redirects are passed back to the browser so the Location
			// header can be observed (and stays under the proxy path for
			// relative targets).
			return http.ErrUseLastResponse
		},
	}

	override := &overrideStrategy{files: files}
	upstream := &upstreamStrategy{client: client, timeout: cfg.UpstreamTimeout}

	return &Gateway{
		registry:       reg,
		nav:            nav,
		files:          files,
		verifier:       verifier,
		classifier:     classifier,
		contentChain:   []resolutionStrategy{override, upstream, &staticStrategy{}, &listingStrategy{files: files}},
		assetChain:     []resolutionStrategy{override, upstream},
		externalOrigin: cfg.ExternalOrigin,
		tokenParam:     cfg.TokenParam,
		metrics:        NewMetrics(),
		logger:         logger.With("component", "gateway"),
	}
}

// Handle proxies one request for /projects/{projectID}/preview/{instanceID}/proxy[/*].
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	inst, err := g.registry.Get(instanceID)
	if err != nil {
		apierrors.WriteError(w, apierrors.NewNotFoundError("preview instance not found"))
		return
	}

	// A mismatched project segment would defeat the base-path strip below
	// and leak the full URL upstream, so it is treated as an unknown
	// instance.
	if projectID := chi.URLParam(r, "projectID"); projectID != inst.ProjectID {
		apierrors.WriteError(w, apierrors.NewNotFoundError("preview instance not found"))
		return
	}

	if inst.Status != models.InstanceStatusRunning {
		g.writeNotReady(w, r, inst)
		return
	}

	targetPath := g.targetPath(r, inst)
	isAsset := g.classifier.IsAsset(targetPath)

	if !isAsset {
		principal, authErr := g.authorize(r)
		if authErr != nil {
			apierrors.WriteError(w, authErr)
			return
		}
		if principal.ID != inst.OwnerID {
			apierrors.WriteError(w, apierrors.NewForbiddenError("preview belongs to a different user"))
			return
		}
		g.nav.Record(inst.ID, targetPath)
	}

	if isWebSocketUpgrade(r) {
		g.handleWebSocket(w, r, inst, targetPath)
		return
	}

	req, err := g.buildProxyRequest(r, targetPath, isAsset)
	if err != nil {
		apierrors.WriteError(w, apierrors.NewInternalError("failed to read request body"))
		return
	}

	ic := newInstanceContext(inst)
	resp := g.resolve(r, ic, req)
	if resp == nil {
		// Only the short asset chain can be exhausted.
		apierrors.WriteError(w, apierrors.NewUpstreamUnavailableError("preview process is unreachable"))
		return
	}

	g.registry.Touch(inst.ID)
	g.writeResponse(w, inst, resp)
}

// resolve walks the appropriate strategy chain and returns the first
// response, or nil when every strategy failed.
func (g *Gateway) resolve(r *http.Request, ic *instanceContext, req *ProxyRequest) *ProxyResponse {
	chain := g.contentChain
	if req.IsAsset {
		chain = g.assetChain
	}
	for _, strategy := range chain {
		resp, err := strategy.resolve(r.Context(), ic, req)
		if err != nil {
			g.metrics.observe(strategy.name(), "miss")
			g.logger.Debug("resolution strategy failed",
				"strategy", strategy.name(),
				"instance_id", ic.inst.ID,
				"path", req.Path,
				"error", err,
			)
			continue
		}
		g.metrics.observe(strategy.name(), "hit")
		return resp
	}
	return nil
}

// authorize validates the caller's token from the query parameter or the
// Authorization header.
func (g *Gateway) authorize(r *http.Request) (*auth.Principal, *apierrors.APIError) {
	token := r.URL.Query().Get(g.tokenParam)
	if token == "" {
		token = auth.ExtractBearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		return nil, apierrors.NewUnauthorizedError("missing access token")
	}
	principal, err := g.verifier.Verify(token)
	if err != nil {
		return nil, apierrors.NewUnauthorizedError("invalid access token")
	}
	return principal, nil
}

// targetPath strips the instance's public prefix from the request path,
// defaulting to "/".
func (g *Gateway) targetPath(r *http.Request, inst *models.PreviewInstance) string {
	p := strings.TrimPrefix(r.URL.Path, inst.PublicBasePath)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func (g *Gateway) buildProxyRequest(r *http.Request, targetPath string, isAsset bool) (*ProxyRequest, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			return nil, err
		}
	}

	// The credential never reaches the instance, whichever way it arrived.
	query := r.URL.Query()
	query.Del(g.tokenParam)
	headers := r.Header.Clone()
	headers.Del("Authorization")

	return &ProxyRequest{
		Method:  r.Method,
		Path:    targetPath,
		Query:   query,
		Headers: headers,
		Body:    body,
		IsAsset: isAsset,
	}, nil
}

// writeResponse serializes a ProxyResponse, rewriting HTML bodies so the
// preview stays confined under the proxy path.
func (g *Gateway) writeResponse(w http.ResponseWriter, inst *models.PreviewInstance, resp *ProxyResponse) {
	body := resp.Body
	if resp.IsHTML {
		rw := rewrite.New(inst.PublicBasePath, "http://"+inst.BackingAddress,
			rewrite.WithExternalOrigin(g.externalOrigin))
		body = []byte(rw.Rewrite(string(body)))
	}

	for k, vals := range resp.Headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(resp.Status)
	w.Write(body)
}

// writeNotReady reports a non-running instance: JSON for API callers, a
// friendly polling document for browsers that asked for HTML.
func (g *Gateway) writeNotReady(w http.ResponseWriter, r *http.Request, inst *models.PreviewInstance) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Refresh", "2")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, renderNotReadyDocument(string(inst.Status), inst.ErrorMessage))
		return
	}
	apierrors.WriteError(w, apierrors.NewInstanceNotReadyError(string(inst.Status)))
}
