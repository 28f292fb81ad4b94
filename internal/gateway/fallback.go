package gateway

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/narvanalabs/preview-gateway/internal/filestore"
)

// resolutionStrategy is one step in the gateway's ordered fallback chain:
// live-edit override -> upstream proxy -> static entry point -> directory
// listing. A strategy error means "try the next one".
type resolutionStrategy interface {
	name() string
	resolve(ctx context.Context, ic *instanceContext, req *ProxyRequest) (*ProxyResponse, error)
}

// overrideStrategy serves a file straight from the project file store,
// letting a just-edited file appear before the backing process has picked
// up the change.
type overrideStrategy struct {
	files filestore.Store
}

func (s *overrideStrategy) name() string { return "override" }

func (s *overrideStrategy) resolve(ctx context.Context, ic *instanceContext, req *ProxyRequest) (*ProxyResponse, error) {
	if s.files == nil || req.Method != http.MethodGet {
		return nil, errors.New("override not applicable")
	}
	data, err := s.files.Read(ctx, ic.inst.ProjectID, req.Path)
	if err != nil {
		return nil, err
	}
	return synthesizeFileResponse(req.Path, data), nil
}

// upstreamStrategy forwards the request to the instance's backing address.
type upstreamStrategy struct {
	client  *http.Client
	timeout time.Duration
}

func (s *upstreamStrategy) name() string { return "upstream" }

func (s *upstreamStrategy) resolve(ctx context.Context, ic *instanceContext, req *ProxyRequest) (*ProxyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	target := ic.originURL + req.Path
	if q := req.Query.Encode(); q != "" {
		target += "?" + q
	}

	upstream, err := http.NewRequestWithContext(ctx, req.Method, target, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	copyProxyHeaders(upstream.Header, req.Headers)
	upstream.Host = ic.inst.BackingAddress

	resp, err := s.client.Do(upstream)
	if err != nil {
		return nil, fmt.Errorf("upstream fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := readDecodedBody(resp)
	if err != nil {
		return nil, fmt.Errorf("reading upstream body: %w", err)
	}

	headers := make(http.Header)
	for k, vals := range resp.Header {
		if skipResponseHeader(k) {
			continue
		}
		for _, v := range vals {
			headers.Add(k, v)
		}
	}

	return &ProxyResponse{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    body,
		IsHTML:  isHTMLContentType(resp.Header.Get("Content-Type")),
	}, nil
}

// staticEntryPoints are the conventional locations of a built project's
// entry document, tried in order when the path itself is not a file.
var staticEntryPoints = []string{
	"index.html",
	"dist/index.html",
	"build/index.html",
	"public/index.html",
}

// staticStrategy serves files out of the instance's synced workspace when
// the backing process is unreachable.
type staticStrategy struct{}

func (s *staticStrategy) name() string { return "static" }

func (s *staticStrategy) resolve(ctx context.Context, ic *instanceContext, req *ProxyRequest) (*ProxyResponse, error) {
	root := ic.inst.WorkspacePath
	if root == "" {
		return nil, errors.New("no workspace path")
	}

	candidates := make([]string, 0, len(staticEntryPoints)+2)
	rel := strings.TrimPrefix(req.Path, "/")
	if rel != "" {
		candidates = append(candidates, rel, path.Join(rel, "index.html"))
	}
	candidates = append(candidates, staticEntryPoints...)

	for _, cand := range candidates {
		full := filepath.Join(root, filepath.FromSlash(cand))
		if !strings.HasPrefix(full, filepath.Clean(root)+string(filepath.Separator)) {
			continue
		}
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		return synthesizeFileResponse("/"+cand, data), nil
	}
	return nil, errors.New("no static candidate found")
}

// listingStrategy renders a directory listing of the workspace so the user
// sees something rather than a blank error page.
type listingStrategy struct {
	files filestore.Store
}

func (s *listingStrategy) name() string { return "listing" }

func (s *listingStrategy) resolve(ctx context.Context, ic *instanceContext, req *ProxyRequest) (*ProxyResponse, error) {
	var entries []filestore.Entry
	if s.files != nil {
		if got, err := s.files.List(ctx, ic.inst.ProjectID, "/"); err == nil {
			entries = got
		}
	}
	if entries == nil {
		dirents, err := os.ReadDir(ic.inst.WorkspacePath)
		if err != nil {
			return nil, fmt.Errorf("listing workspace: %w", err)
		}
		for _, d := range dirents {
			entries = append(entries, filestore.Entry{Name: d.Name(), IsDir: d.IsDir()})
		}
	}

	doc := renderListingDocument(ic.inst.ProjectID, entries)
	headers := make(http.Header)
	headers.Set("Content-Type", "text/html; charset=utf-8")
	return &ProxyResponse{
		Status:  http.StatusOK,
		Headers: headers,
		Body:    []byte(doc),
		IsHTML:  false, // our own document, nothing to rewrite
	}, nil
}

// synthesizeFileResponse builds a response for a raw project file. HTML is
// served as-is (and later rewritten); known asset types get their mime
// type; anything else is wrapped in the source viewer document.
func synthesizeFileResponse(p string, data []byte) *ProxyResponse {
	headers := make(http.Header)
	ext := strings.ToLower(path.Ext(p))

	if ext == ".html" || ext == ".htm" {
		headers.Set("Content-Type", "text/html; charset=utf-8")
		return &ProxyResponse{Status: http.StatusOK, Headers: headers, Body: data, IsHTML: true}
	}

	if ct := mime.TypeByExtension(ext); ct != "" && ext != ".md" {
		headers.Set("Content-Type", ct)
		return &ProxyResponse{Status: http.StatusOK, Headers: headers, Body: data, IsHTML: false}
	}

	headers.Set("Content-Type", "text/html; charset=utf-8")
	doc := renderViewerDocument(p, string(data))
	return &ProxyResponse{Status: http.StatusOK, Headers: headers, Body: []byte(doc), IsHTML: false}
}

// copyProxyHeaders copies request headers, dropping hop-by-hop ones.
func copyProxyHeaders(dst, src http.Header) {
	for k, vals := range src {
		if skipRequestHeader(k) {
			continue
		}
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
}

var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

func skipRequestHeader(key string) bool {
	if _, ok := hopByHopHeaders[http.CanonicalHeaderKey(key)]; ok {
		return true
	}
	// The gateway decodes bodies itself; advertising encodings upstream is
	// fine, but the Host header is rewritten explicitly.
	return http.CanonicalHeaderKey(key) == "Host"
}

// skipResponseHeader drops headers that would desynchronize the re-serialized
// body: lengths and encodings are recomputed, never copied.
func skipResponseHeader(key string) bool {
	switch http.CanonicalHeaderKey(key) {
	case "Content-Length", "Content-Encoding", "Transfer-Encoding", "Connection", "Keep-Alive":
		return true
	}
	return false
}

// readDecodedBody reads the response body, transparently decompressing
// gzip and deflate payloads so the rewriter sees plain text.
func readDecodedBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			// A mislabeled body is passed through untouched.
			return io.ReadAll(resp.Body)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fr := flate.NewReader(resp.Body)
		defer fr.Close()
		reader = fr
	}
	return io.ReadAll(reader)
}
