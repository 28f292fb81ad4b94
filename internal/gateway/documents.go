package gateway

import (
	"fmt"
	"html"
	"strings"

	"github.com/narvanalabs/preview-gateway/internal/filestore"
)

// renderViewerDocument wraps a non-renderable source file in a minimal
// viewer page so the user sees the freshly edited content instead of a
// download prompt.
func renderViewerDocument(path, content string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(path))
	b.WriteString(`<style>body{margin:0;background:#1e1e2e;color:#cdd6f4;font-family:ui-monospace,monospace}` +
		`header{padding:8px 16px;background:#181825;font-size:12px}` +
		`pre{margin:0;padding:16px;overflow:auto;font-size:13px;line-height:1.5}</style>`)
	b.WriteString("</head><body>")
	fmt.Fprintf(&b, "<header>%s</header>", html.EscapeString(path))
	fmt.Fprintf(&b, "<pre>%s</pre>", html.EscapeString(content))
	b.WriteString("</body></html>")
	return b.String()
}

// renderListingDocument renders the last-resort workspace listing shown
// when both the backing process and the static fallback fail.
func renderListingDocument(projectID string, entries []filestore.Entry) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Preview unavailable</title>")
	b.WriteString(`<style>body{font-family:system-ui,sans-serif;margin:40px auto;max-width:640px;color:#333}` +
		`h1{font-size:18px}p{color:#666}ul{list-style:none;padding:0}` +
		`li{padding:4px 8px;border-bottom:1px solid #eee;font-family:ui-monospace,monospace;font-size:13px}</style>`)
	b.WriteString("</head><body>")
	b.WriteString("<h1>Preview is not responding</h1>")
	fmt.Fprintf(&b, "<p>The preview server for project <code>%s</code> could not be reached. "+
		"These are the files in its workspace:</p>", html.EscapeString(projectID))
	b.WriteString("<ul>")
	for _, e := range entries {
		name := e.Name
		if e.IsDir {
			name += "/"
		}
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(name))
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

// renderNotReadyDocument is shown for HTML-facing requests against an
// instance that is not running yet.
func renderNotReadyDocument(status, message string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Preview starting</title>")
	b.WriteString(`<style>body{font-family:system-ui,sans-serif;display:flex;align-items:center;` +
		`justify-content:center;height:100vh;margin:0;color:#444}div{text-align:center}` +
		`h1{font-size:18px;font-weight:600}p{color:#888;font-size:14px}</style>`)
	b.WriteString("</head><body><div>")
	fmt.Fprintf(&b, "<h1>Preview is %s</h1>", html.EscapeString(status))
	if message != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(message))
	}
	b.WriteString("</div></body></html>")
	return b.String()
}
