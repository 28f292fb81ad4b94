package inspect

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// maxSelectorDepth bounds how many class-qualified ancestors a selector
// walks when no id anchor exists.
const maxSelectorDepth = 4

// buildSelector produces a CSS-like path for the node: anchored at the
// nearest ancestor with an id when one exists, otherwise a bounded chain of
// class-qualified ancestors ending at body.
func buildSelector(n *html.Node) string {
	var segments []string

	cur := n
	for depth := 0; cur != nil && cur.Type == html.ElementNode; depth++ {
		if cur.Data == "body" || cur.Data == "html" {
			segments = append([]string{cur.Data}, segments...)
			break
		}

		if id := getAttr(cur, "id"); id != "" {
			segments = append([]string{"#" + cssEscape(id)}, segments...)
			break
		}

		if depth >= maxSelectorDepth {
			break
		}

		segments = append([]string{segmentFor(cur)}, segments...)
		cur = cur.Parent
	}

	return strings.Join(segments, " > ")
}

// segmentFor renders one path segment: tag, first class, and a positional
// qualifier when same-tag siblings make the segment ambiguous.
func segmentFor(n *html.Node) string {
	seg := n.Data
	if classes := classList(n); len(classes) > 0 {
		seg += "." + cssEscape(classes[0])
	}
	if hasTypeSiblings(n) {
		seg += fmt.Sprintf(":nth-of-type(%d)", nthOfType(n))
	}
	return seg
}

// cssEscape escapes the characters that would break a selector token.
// Generated class names occasionally contain colons (utility frameworks)
// or slashes.
func cssEscape(token string) string {
	var b strings.Builder
	for _, r := range token {
		switch r {
		case ':', '.', '/', '[', ']', '(', ')', '#', '%':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
