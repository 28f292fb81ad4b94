package inspect

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"github.com/narvanalabs/preview-gateway/internal/models"
)

// Attribute names the annotator writes. Elements already carrying them are
// inspection machinery from an earlier pass and are never re-annotated.
const (
	attrInspectID   = "data-inspect-id"
	attrInspectMeta = "data-inspect-meta"
	attrInspectRole = "data-inspect-role"
)

// candidateTags are element tags that are inherently interactive or act as
// landmark regions.
var candidateTags = map[string]bool{
	"button": true, "a": true,
	"input": true, "select": true, "textarea": true,
	"form": true,
	"nav": true, "header": true, "main": true, "aside": true, "footer": true,
}

// candidateRoles are ARIA roles that mark an element interactive.
var candidateRoles = map[string]bool{
	"button": true, "link": true, "navigation": true, "menu": true,
	"menuitem": true, "tab": true, "checkbox": true, "switch": true,
	"textbox": true,
}

// interactiveClassPattern matches class tokens that look interactive even
// on generic tags (styled divs acting as buttons or cards).
var interactiveClassPattern = regexp.MustCompile(`(?i)(^|[-_])(btn|button|link|nav|menu|card|toggle|clickable|interactive)([-_]|$)`)

// textTags are elements whose text content makes them click-to-edit
// candidates when long enough.
var textTags = map[string]bool{
	"p": true, "article": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// minContentTextLen is the minimum visible text length for a text block to
// be annotated as content.
const minContentTextLen = 20

// annotate walks the parsed document, attaches inspection metadata to every
// retained candidate, and returns the generated element descriptions.
func annotate(doc *html.Node) []*models.InspectionElement {
	var elements []*models.InspectionElement
	seq := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if isMachinery(n) {
				return
			}
			if isCandidate(n) && !isHidden(n) {
				seq++
				el := describe(n, seq)
				elements = append(elements, el)

				meta, err := json.Marshal(el)
				if err == nil {
					setAttr(n, attrInspectID, el.ID)
					setAttr(n, attrInspectMeta, string(meta))
					setAttr(n, attrInspectRole, string(el.SemanticRole))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return elements
}

// isCandidate applies the fixed candidate selector set.
func isCandidate(n *html.Node) bool {
	if candidateTags[n.Data] {
		return true
	}
	if candidateRoles[strings.ToLower(getAttr(n, "role"))] {
		return true
	}
	if hasAttr(n, "onclick") {
		return true
	}
	for _, cls := range classList(n) {
		if interactiveClassPattern.MatchString(cls) {
			return true
		}
	}
	if textTags[n.Data] && len(collectText(n)) >= minContentTextLen {
		return true
	}
	return false
}

// isHidden filters elements that are explicitly invisible.
func isHidden(n *html.Node) bool {
	if hasAttr(n, "hidden") {
		return true
	}
	if strings.EqualFold(getAttr(n, "aria-hidden"), "true") {
		return true
	}
	if n.Data == "input" && strings.EqualFold(getAttr(n, "type"), "hidden") {
		return true
	}
	style := strings.ToLower(getAttr(n, "style"))
	return strings.Contains(style, "display:none") ||
		strings.Contains(style, "display: none") ||
		strings.Contains(style, "visibility:hidden") ||
		strings.Contains(style, "visibility: hidden")
}

// isMachinery filters the inspection overlay's own elements so repeated
// passes never annotate themselves.
func isMachinery(n *html.Node) bool {
	for _, a := range n.Attr {
		if strings.HasPrefix(a.Key, "data-inspect") {
			return true
		}
	}
	return false
}

// describe computes the full metadata for one retained element.
func describe(n *html.Node, seq int) *models.InspectionElement {
	text := collectText(n)

	attrs := make(map[string]string)
	for _, a := range n.Attr {
		// Class and style are bulky and reproducible from the selector.
		if a.Key == "class" || a.Key == "style" {
			continue
		}
		attrs[a.Key] = truncate(a.Val, 120)
	}
	if len(attrs) == 0 {
		attrs = nil
	}

	role, hint := classifyRole(n, text)

	return &models.InspectionElement{
		ID:                 fmt.Sprintf("el-%d", seq),
		Selector:           buildSelector(n),
		TagName:            n.Data,
		ComponentNameGuess: guessComponentName(n, text),
		TextSnippet:        truncate(text, 60),
		Attributes:         attrs,
		SemanticRole:       role,
		ActionHint:         hint,
		ParentContext:      parentContext(n),
	}
}

// parentContext summarizes the immediate parent as tag[.class][role].
func parentContext(n *html.Node) string {
	p := n.Parent
	if p == nil || p.Type != html.ElementNode {
		return ""
	}
	ctx := p.Data
	if classes := classList(p); len(classes) > 0 {
		ctx += "." + classes[0]
	}
	if role := getAttr(p, "role"); role != "" {
		ctx += "[role=" + role + "]"
	}
	return ctx
}
