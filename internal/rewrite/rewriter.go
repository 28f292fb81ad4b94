// Package rewrite transforms HTML payloads so a proxied preview stays
// confined under its public proxy path while remaining functionally
// identical to the original page.
//
// The transformation is string/pattern based on purpose: proxied responses
// may be streamed, truncated, or otherwise malformed, and a strict parser
// would reject fragments the rewriter must still process best-effort.
package rewrite

import (
	"net/url"
	"strings"
)

// Rewriter rewrites one instance's HTML given its proxy base path and
// original origin. It is stateless and safe for concurrent use.
type Rewriter struct {
	// BasePath is the public proxy prefix, e.g.
	// /projects/p1/preview/abc/proxy. Never ends with a slash.
	BasePath string
	// origin is the instance's backing origin, e.g. http://127.0.0.1:5173.
	origin *url.URL
	// external is the gateway's externally reachable origin, used as the
	// target for embedded live-reload socket URLs. May be nil.
	external *url.URL
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithExternalOrigin sets the externally reachable origin (scheme://host)
// used when relocating live-reload socket URLs.
func WithExternalOrigin(origin string) Option {
	return func(rw *Rewriter) {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			rw.external = u
		}
	}
}

// New builds a Rewriter for the given proxy base path and instance origin.
// A malformed origin disables origin-specific rules but keeps path rules
// working.
func New(proxyBasePath, originURL string, opts ...Option) *Rewriter {
	rw := &Rewriter{BasePath: strings.TrimSuffix(proxyBasePath, "/")}
	if u, err := url.Parse(originURL); err == nil && u.Host != "" {
		rw.origin = u
	}
	for _, opt := range opts {
		opt(rw)
	}
	return rw
}

// Rewrite applies the full rule table in order and returns the transformed
// document. Rewriting already-rewritten output is a no-op.
func (rw *Rewriter) Rewrite(html string) string {
	for _, r := range ruleTable {
		html = r.apply(rw, html)
	}
	return html
}

// Rewrite is the pure-function form of the rewriter contract:
// (html, proxyBasePath, originURL) -> html.
func Rewrite(html, proxyBasePath, originURL string) string {
	return New(proxyBasePath, originURL).Rewrite(html)
}

// rule is one named entry in the ordered rewrite table.
type rule struct {
	name  string
	apply func(*Rewriter, string) string
}

// ruleTable is the complete, ordered set of transformations. Order matters:
// socket URLs are relocated before generic origin URLs so ws:// schemes are
// never mistaken for plain asset references, and the shim is injected last
// so its own markup is never rewritten.
var ruleTable = []rule{
	{"socket-urls", (*Rewriter).rewriteSocketURLs},
	{"origin-urls", (*Rewriter).rewriteOriginURLs},
	{"url-attributes", (*Rewriter).rewriteURLAttributes},
	{"srcset", (*Rewriter).rewriteSrcset},
	{"inline-css-urls", (*Rewriter).rewriteCSSURLs},
	{"loader-shim", (*Rewriter).injectShim},
}

// RuleNames returns the names of the rewrite rules in application order.
// Exposed for diagnostics and tests.
func RuleNames() []string {
	names := make([]string, len(ruleTable))
	for i, r := range ruleTable {
		names[i] = r.name
	}
	return names
}
