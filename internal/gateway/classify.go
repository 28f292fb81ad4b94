package gateway

import (
	"path"
	"strings"

	"github.com/narvanalabs/preview-gateway/pkg/config"
)

// defaultAssetExtensions are the file extensions treated as static assets.
// Asset requests carry no user context and bypass authentication.
var defaultAssetExtensions = []string{
	".js", ".mjs", ".cjs", ".css", ".map",
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp", ".avif",
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	".wasm",
}

// defaultAssetPrefixes are path prefixes emitted by common bundlers and
// dev servers.
var defaultAssetPrefixes = []string{
	"/static/",
	"/assets/",
	"/_next/",
	"/@vite/",
	"/@fs/",
	"/@id/",
	"/node_modules/",
	"/__vite_ping",
	"/favicon.ico",
}

// Classifier decides whether a request path is an asset request or a
// content (application route) request.
type Classifier struct {
	extensions map[string]struct{}
	prefixes   []string
}

// NewClassifier builds a classifier from the built-in tables, with optional
// overrides from the YAML rules file.
func NewClassifier(rules *config.ClassifierRules) *Classifier {
	extensions := defaultAssetExtensions
	prefixes := defaultAssetPrefixes
	if rules != nil {
		if len(rules.Extensions) > 0 {
			extensions = rules.Extensions
		}
		if len(rules.PathPrefixes) > 0 {
			prefixes = rules.PathPrefixes
		}
	}

	c := &Classifier{
		extensions: make(map[string]struct{}, len(extensions)),
		prefixes:   prefixes,
	}
	for _, ext := range extensions {
		c.extensions[strings.ToLower(ext)] = struct{}{}
	}
	return c
}

// IsAsset reports whether the target path denotes a static asset.
func (c *Classifier) IsAsset(target string) bool {
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	if ext := strings.ToLower(path.Ext(target)); ext != "" {
		if _, ok := c.extensions[ext]; ok {
			return true
		}
	}
	return false
}
