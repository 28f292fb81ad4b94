package inspect

import (
	"strings"

	"golang.org/x/net/html"
	"github.com/narvanalabs/preview-gateway/internal/models"
)

// actionKeywords drives the sub-classification of action elements. Checked
// in order; the first list with a match wins.
var actionKeywords = []struct {
	hint  models.ActionHint
	words []string
}{
	{models.ActionSubmit, []string{"submit", "save", "send", "confirm", "apply", "continue", "sign in", "sign up", "log in", "login"}},
	{models.ActionCancel, []string{"cancel", "close", "dismiss", "back"}},
	{models.ActionDestructive, []string{"delete", "remove", "destroy", "clear"}},
	{models.ActionEdit, []string{"edit", "update", "change", "modify", "rename"}},
	{models.ActionCreate, []string{"add", "create", "new", "insert"}},
}

// layoutTags are landmark regions.
var layoutTags = map[string]bool{
	"nav": true, "header": true, "main": true, "aside": true,
	"footer": true, "form": true,
}

// inputTags are form controls.
var inputTags = map[string]bool{
	"input": true, "select": true, "textarea": true,
}

// classifyRole applies the semantic-role decision table.
func classifyRole(n *html.Node, text string) (models.SemanticRole, models.ActionHint) {
	role := strings.ToLower(getAttr(n, "role"))

	switch {
	case n.Data == "button", role == "button":
		return models.RoleAction, actionHint(n, text)
	case n.Data == "input" && isButtonInput(n):
		return models.RoleAction, actionHint(n, text)
	case n.Data == "a", role == "link":
		return models.RoleNavigation, ""
	case inputTags[n.Data], role == "textbox", role == "checkbox", role == "switch":
		return models.RoleInput, ""
	case layoutTags[n.Data], role == "navigation", role == "menu":
		return models.RoleLayout, ""
	case textTags[n.Data] && len(text) >= minContentTextLen:
		return models.RoleContent, ""
	case hasAttr(n, "onclick"):
		return models.RoleAction, actionHint(n, text)
	}
	return models.RoleUnknown, ""
}

// isButtonInput reports whether an input element behaves like a button.
func isButtonInput(n *html.Node) bool {
	switch strings.ToLower(getAttr(n, "type")) {
	case "submit", "button", "reset", "image":
		return true
	}
	return false
}

// actionHint keyword-matches the element's text (and value/aria-label for
// text-less buttons).
func actionHint(n *html.Node, text string) models.ActionHint {
	haystack := strings.ToLower(text)
	if haystack == "" {
		haystack = strings.ToLower(getAttr(n, "value") + " " + getAttr(n, "aria-label"))
	}
	for _, group := range actionKeywords {
		for _, word := range group.words {
			if strings.Contains(haystack, word) {
				return group.hint
			}
		}
	}
	return ""
}

// guessComponentName derives a best-effort component name:
// explicit test/component data attributes, then a recognizable class-name
// pattern, then tag+text heuristics.
func guessComponentName(n *html.Node, text string) string {
	for _, key := range []string{"data-component", "data-testid", "data-test", "data-cy"} {
		if v := getAttr(n, key); v != "" {
			return pascalCase(v)
		}
	}

	if name := componentFromClasses(n); name != "" {
		return name
	}

	return componentFromTagAndText(n, text)
}

// componentFromClasses picks the first class token that reads like a
// component name: either already PascalCase (CSS modules, styled
// components) or a BEM block.
func componentFromClasses(n *html.Node) string {
	for _, cls := range classList(n) {
		// Utility classes (w-4, hover:bg-blue-500) are noise.
		if strings.ContainsAny(cls, ":[]") {
			continue
		}
		if cls[0] >= 'A' && cls[0] <= 'Z' {
			// Strip CSS-module hash suffixes like Card_root__ab12c.
			if idx := strings.Index(cls, "__"); idx > 0 {
				cls = cls[:idx]
			}
			if idx := strings.Index(cls, "_"); idx > 0 {
				cls = cls[:idx]
			}
			return cls
		}
		if idx := strings.Index(cls, "__"); idx > 0 {
			return pascalCase(cls[:idx])
		}
	}
	return ""
}

// componentFromTagAndText names an element after its short text, so a
// button reading "Save changes" becomes "SaveChangesButton".
func componentFromTagAndText(n *html.Node, text string) string {
	suffix := pascalCase(n.Data)
	switch n.Data {
	case "a":
		suffix = "Link"
	case "input":
		suffix = pascalCase(getAttr(n, "type")) + "Input"
		if suffix == "Input" {
			suffix = "TextInput"
		}
	}

	if len(text) > 0 && len(text) <= 24 {
		return pascalCase(text) + suffix
	}
	return suffix
}

// pascalCase converts arbitrary token text ("save-changes", "sign in") to
// PascalCase, keeping at most three words.
func pascalCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.' || r == '/'
	})
	if len(words) > 3 {
		words = words[:3]
	}
	var b strings.Builder
	for _, w := range words {
		r := []rune(w)
		b.WriteString(strings.ToUpper(string(r[0])))
		if len(r) > 1 {
			b.WriteString(string(r[1:]))
		}
	}
	return b.String()
}
