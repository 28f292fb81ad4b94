package rewrite

import (
	"regexp"
	"strings"
)

var (
	// schemePattern matches URLs that carry an explicit scheme (http:,
	// https:, mailto:, tel:, data:, javascript:, ...). Those are never
	// path-prefixed; origin-matching absolute URLs are handled separately.
	schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

	// urlAttrPattern matches src/href/action/poster/formaction attributes
	// with either quote style.
	urlAttrPattern = regexp.MustCompile(`(?i)(\s(?:src|href|action|poster|formaction)\s*=\s*)("[^"]*"|'[^']*')`)

	srcsetPattern = regexp.MustCompile(`(?i)(\ssrcset\s*=\s*)("[^"]*"|'[^']*')`)

	cssURLPattern = regexp.MustCompile(`(?i)url\(\s*(['"]?)(/[^'")]+)(['"]?)\s*\)`)

	baseTagPattern = regexp.MustCompile(`(?i)<base\b[^>]*>`)
)

// rewriteSocketURLs relocates embedded live-reload socket URLs. With an
// external origin configured they become absolute ws(s) URLs on the
// external host under the proxy base; otherwise the URL is confined to the
// proxy base path and the injected shim resolves the host at runtime.
func (rw *Rewriter) rewriteSocketURLs(html string) string {
	if rw.origin == nil {
		return html
	}
	var target string
	if rw.external != nil {
		target = wsScheme(rw.external.Scheme) + "://" + rw.external.Host + rw.BasePath
	} else {
		target = rw.BasePath
	}
	for _, scheme := range []string{"wss", "ws"} {
		html = strings.ReplaceAll(html, scheme+"://"+rw.origin.Host, target)
	}
	return html
}

// rewriteOriginURLs confines absolute URLs pointing at the backing origin
// to the proxy base path. External absolute URLs are untouched.
func (rw *Rewriter) rewriteOriginURLs(html string) string {
	if rw.origin == nil {
		return html
	}
	for _, scheme := range []string{"https", "http"} {
		html = strings.ReplaceAll(html, scheme+"://"+rw.origin.Host, rw.BasePath)
	}
	return html
}

// rewriteURLAttributes prefixes root-relative src/href/action/poster URLs
// with the proxy base path. Anchors, mailto:/tel:, data:, scheme-carrying
// and protocol-relative URLs, and URLs already under the base path are left
// byte-identical.
func (rw *Rewriter) rewriteURLAttributes(html string) string {
	return urlAttrPattern.ReplaceAllStringFunc(html, func(match string) string {
		sub := urlAttrPattern.FindStringSubmatch(match)
		prefix, quoted := sub[1], sub[2]
		quote := quoted[:1]
		value := quoted[1 : len(quoted)-1]
		return prefix + quote + rw.rewriteURL(value) + quote
	})
}

// rewriteSrcset handles srcset's comma-separated candidate lists, rewriting
// each candidate URL individually.
func (rw *Rewriter) rewriteSrcset(html string) string {
	return srcsetPattern.ReplaceAllStringFunc(html, func(match string) string {
		sub := srcsetPattern.FindStringSubmatch(match)
		prefix, quoted := sub[1], sub[2]
		quote := quoted[:1]
		value := quoted[1 : len(quoted)-1]

		candidates := strings.Split(value, ",")
		for i, cand := range candidates {
			fields := strings.Fields(cand)
			if len(fields) == 0 {
				continue
			}
			fields[0] = rw.rewriteURL(fields[0])
			candidates[i] = strings.Join(fields, " ")
		}
		return prefix + quote + strings.Join(candidates, ", ") + quote
	})
}

// rewriteCSSURLs prefixes root-relative url(...) references in inline
// styles and style blocks.
func (rw *Rewriter) rewriteCSSURLs(html string) string {
	return cssURLPattern.ReplaceAllStringFunc(html, func(match string) string {
		sub := cssURLPattern.FindStringSubmatch(match)
		open, path, closing := sub[1], sub[2], sub[3]
		return "url(" + open + rw.rewriteURL(path) + closing + ")"
	})
}

// rewriteURL applies the single-URL policy shared by the attribute rules.
func (rw *Rewriter) rewriteURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return raw
	}
	if strings.HasPrefix(value, "#") || strings.HasPrefix(value, "//") {
		return raw
	}
	if schemePattern.MatchString(value) {
		return raw
	}
	if !strings.HasPrefix(value, "/") {
		// Document-relative URLs resolve against the already-proxied
		// document URL and need no help.
		return raw
	}
	if rw.underBase(value) {
		return raw
	}
	return rw.BasePath + value
}

// underBase reports whether a path already lives under the proxy base.
func (rw *Rewriter) underBase(path string) bool {
	if rw.BasePath == "" {
		return true
	}
	if path == rw.BasePath {
		return true
	}
	return strings.HasPrefix(path, rw.BasePath+"/") ||
		strings.HasPrefix(path, rw.BasePath+"?") ||
		strings.HasPrefix(path, rw.BasePath+"#")
}

// StripBaseTags removes <base> directives so a document can be re-anchored
// without resolver conflicts.
func StripBaseTags(html string) string {
	return baseTagPattern.ReplaceAllString(html, "")
}

// AbsolutizeAssets rewrites root-relative asset URLs to absolute URLs on
// the given origin. Used by inspection mode, which is not served from
// behind the instance's proxy path and must load assets straight from the
// backing process.
func AbsolutizeAssets(html, originURL string) string {
	origin := strings.TrimSuffix(originURL, "/")
	if origin == "" {
		return html
	}
	rewriteOne := func(raw string) string {
		value := strings.TrimSpace(raw)
		if value == "" || strings.HasPrefix(value, "#") || strings.HasPrefix(value, "//") {
			return raw
		}
		if schemePattern.MatchString(value) {
			return raw
		}
		if !strings.HasPrefix(value, "/") {
			return raw
		}
		return origin + value
	}
	html = urlAttrPattern.ReplaceAllStringFunc(html, func(match string) string {
		sub := urlAttrPattern.FindStringSubmatch(match)
		prefix, quoted := sub[1], sub[2]
		quote := quoted[:1]
		value := quoted[1 : len(quoted)-1]
		return prefix + quote + rewriteOne(value) + quote
	})
	return cssURLPattern.ReplaceAllStringFunc(html, func(match string) string {
		sub := cssURLPattern.FindStringSubmatch(match)
		open, path, closing := sub[1], sub[2], sub[3]
		return "url(" + open + rewriteOne(path) + closing + ")"
	})
}

func wsScheme(httpScheme string) string {
	if httpScheme == "https" {
		return "wss"
	}
	return "ws"
}
