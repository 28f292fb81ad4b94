package gateway

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/narvanalabs/preview-gateway/internal/models"
)

// ProxyRequest is the gateway's HTTP-library-independent view of an
// inbound request, after the proxy prefix has been stripped.
type ProxyRequest struct {
	Method string
	// Path is the target path relative to the instance, always starting
	// with "/".
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
	// IsAsset records the classification outcome for this request.
	IsAsset bool
}

// ProxyResponse is the typed response produced by a resolution strategy.
// Bodies are fully materialized: the gateway always re-serializes, so
// upstream content-length and encodings never leak through.
type ProxyResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
	// IsHTML marks responses that must pass through the content rewriter.
	IsHTML bool
}

// instanceContext bundles what strategies need to know about the instance
// being proxied.
type instanceContext struct {
	inst      *models.PreviewInstance
	originURL string
}

func newInstanceContext(inst *models.PreviewInstance) *instanceContext {
	return &instanceContext{
		inst:      inst,
		originURL: "http://" + inst.BackingAddress,
	}
}

// isHTMLContentType reports whether a Content-Type header denotes an HTML
// document.
func isHTMLContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
