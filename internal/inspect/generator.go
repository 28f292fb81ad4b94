// Package inspect builds the inspection overlay: a static annotated
// snapshot of an instance's current page in which interactive elements are
// tagged with metadata and report clicks to the embedding frame.
package inspect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/narvanalabs/preview-gateway/internal/models"
	"github.com/narvanalabs/preview-gateway/internal/navigation"
	"github.com/narvanalabs/preview-gateway/internal/registry"
	"github.com/narvanalabs/preview-gateway/internal/rewrite"
)

// maxSnapshotBody bounds the fetched document size.
const maxSnapshotBody = 8 << 20

// Generator produces inspection documents.
type Generator struct {
	registry *registry.Registry
	nav      *navigation.Tracker
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGenerator creates a generator. The timeout bounds the snapshot fetch
// from the backing process.
func NewGenerator(reg *registry.Registry, nav *navigation.Tracker, timeout time.Duration, logger *slog.Logger) *Generator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		registry: reg,
		nav:      nav,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		logger:   logger.With("component", "inspect"),
	}
}

// Result is a generated inspection document plus the element catalog that
// was embedded into it.
type Result struct {
	HTML     string
	Path     string
	Elements []*models.InspectionElement
	Degraded bool
}

// Generate returns the inspection document for an instance. It always
// returns a renderable HTML document: an unavailable notice when the
// instance is not running, the annotated snapshot on success, and the raw
// snapshot with a degradation notice when annotation fails.
func (g *Generator) Generate(ctx context.Context, instanceID, requestedPath string) *Result {
	inst, err := g.registry.Get(instanceID)
	if err != nil || inst.Status != models.InstanceStatusRunning {
		status := "unknown"
		if inst != nil {
			status = string(inst.Status)
		}
		return &Result{HTML: renderUnavailableDocument(status), Path: "/", Degraded: true}
	}

	path := navigation.Normalize(requestedPath)
	if requestedPath == "" {
		path = g.nav.Get(inst.ID)
	}
	g.nav.Record(inst.ID, path)

	origin := "http://" + inst.BackingAddress
	page, err := g.fetch(ctx, origin, path)
	if err != nil {
		g.logger.Warn("inspection snapshot fetch failed",
			"instance_id", inst.ID,
			"path", path,
			"error", err,
		)
		return &Result{HTML: renderUnavailableDocument(string(inst.Status)), Path: path, Degraded: true}
	}

	annotated, elements, err := g.annotateDocument(page, origin)
	if err != nil {
		g.logger.Warn("inspection annotation failed",
			"instance_id", inst.ID,
			"path", path,
			"error", err,
		)
		degraded := rewrite.AbsolutizeAssets(rewrite.StripBaseTags(page), origin)
		degraded = rewrite.InjectScript(degraded, rewrite.Shim(origin, ""))
		degraded = rewrite.InjectScript(degraded, fmt.Sprintf(degradedNoticeScript, messageTypeDegraded, "annotation failed"))
		return &Result{HTML: degraded, Path: path, Degraded: true}
	}

	g.registry.Touch(inst.ID)
	return &Result{HTML: annotated, Path: path, Elements: elements}
}

// fetch retrieves the page source straight from the backing process.
func (g *Generator) fetch(ctx context.Context, origin, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+path, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBody))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// annotateDocument parses the snapshot, tags candidate elements, and
// re-serializes with the compatibility shim and the click-capture runtime
// injected. Assets are absolutized against the backing origin because the
// inspection document is served from the gateway's own endpoint, not the
// proxy path; the shim gets the same origin as its reroute base so lazily
// loaded chunks and fetch calls resolve there too.
func (g *Generator) annotateDocument(page, origin string) (string, []*models.InspectionElement, error) {
	page = rewrite.StripBaseTags(page)

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	elements := annotate(doc)

	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return "", nil, fmt.Errorf("rendering snapshot: %w", err)
	}

	out := rewrite.AbsolutizeAssets(b.String(), origin)
	out = rewrite.InjectScript(out, rewrite.Shim(origin, ""))
	out = rewrite.InjectScript(out, fmt.Sprintf(clickCaptureScript, messageTypeSelected))
	return out, elements, nil
}

// renderUnavailableDocument is shown when no snapshot can be produced at
// all. Still a complete HTML document so the embedding frame renders
// something sensible.
func renderUnavailableDocument(status string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Inspection unavailable</title>
<style>body{font-family:system-ui,sans-serif;display:flex;align-items:center;justify-content:center;height:100vh;margin:0;color:#475569;background:#f8fafc}div{text-align:center}</style>
</head>
<body><div>
<h1>Inspection unavailable</h1>
<p>The preview instance is not serving pages right now (status: %s).</p>
</div>
<script data-inspect-runtime="1">window.parent.postMessage({type:%q,reason:"instance not running"},"*");</script>
</body>
</html>`, html.EscapeString(status), messageTypeDegraded)
}
