package inspect

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/narvanalabs/preview-gateway/internal/models"
	"github.com/narvanalabs/preview-gateway/internal/navigation"
	"github.com/narvanalabs/preview-gateway/internal/registry"
)

func parseAndAnnotate(t *testing.T, page string) (*html.Node, []*models.InspectionElement) {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc, annotate(doc)
}

func findElement(elements []*models.InspectionElement, tag string) *models.InspectionElement {
	for _, el := range elements {
		if el.TagName == tag {
			return el
		}
	}
	return nil
}

func TestAnnotateButton(t *testing.T) {
	_, elements := parseAndAnnotate(t,
		`<html><body><button class="Btn">Save changes</button></body></html>`)

	btn := findElement(elements, "button")
	if btn == nil {
		t.Fatal("button not annotated")
	}
	if btn.SemanticRole != models.RoleAction {
		t.Errorf("role = %s, want action", btn.SemanticRole)
	}
	if btn.ActionHint != models.ActionSubmit {
		t.Errorf("hint = %s, want submit", btn.ActionHint)
	}
	if btn.Selector == "" {
		t.Error("selector is empty")
	}
	if btn.TextSnippet != "Save changes" {
		t.Errorf("text = %q", btn.TextSnippet)
	}
	if btn.ComponentNameGuess == "" {
		t.Error("component name guess is empty")
	}
}

func TestAnnotateRoles(t *testing.T) {
	page := `<html><body id="app">
		<nav><a href="/docs">Docs</a></nav>
		<form><input type="email" name="email"><button type="submit">Sign in</button></form>
		<button class="danger">Delete account</button>
		<p>` + strings.Repeat("Long enough paragraph text. ", 3) + `</p>
	</body></html>`
	_, elements := parseAndAnnotate(t, page)

	checks := []struct {
		tag  string
		role models.SemanticRole
	}{
		{"nav", models.RoleLayout},
		{"a", models.RoleNavigation},
		{"form", models.RoleLayout},
		{"input", models.RoleInput},
		{"p", models.RoleContent},
	}
	for _, c := range checks {
		el := findElement(elements, c.tag)
		if el == nil {
			t.Errorf("%s not annotated", c.tag)
			continue
		}
		if el.SemanticRole != c.role {
			t.Errorf("%s role = %s, want %s", c.tag, el.SemanticRole, c.role)
		}
	}

	for _, el := range elements {
		if el.TagName == "button" && strings.Contains(el.TextSnippet, "Delete") {
			if el.ActionHint != models.ActionDestructive {
				t.Errorf("delete button hint = %s, want destructive", el.ActionHint)
			}
		}
	}
}

func TestAnnotateSkipsHiddenAndMachinery(t *testing.T) {
	page := `<html><body>
		<button hidden>Ghost</button>
		<input type="hidden" name="csrf">
		<button style="display:none">Invisible</button>
		<button data-inspect-id="el-99">Already tagged</button>
		<button>Visible</button>
	</body></html>`
	_, elements := parseAndAnnotate(t, page)

	if len(elements) != 1 {
		t.Fatalf("annotated %d elements, want 1: %+v", len(elements), elements)
	}
	if elements[0].TextSnippet != "Visible" {
		t.Errorf("wrong element annotated: %q", elements[0].TextSnippet)
	}
}

func TestAnnotateWritesAttributes(t *testing.T) {
	doc, elements := parseAndAnnotate(t,
		`<html><body><button>Go</button></body></html>`)
	if len(elements) != 1 {
		t.Fatalf("annotated %d elements", len(elements))
	}

	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, attr := range []string{attrInspectID, attrInspectMeta, attrInspectRole} {
		if !strings.Contains(out, attr) {
			t.Errorf("rendered document missing %s", attr)
		}
	}
}

func TestSelectorAnchorsAtID(t *testing.T) {
	page := `<html><body><div id="sidebar"><ul><li><a href="/x">X</a></li></ul></div></body></html>`
	_, elements := parseAndAnnotate(t, page)

	link := findElement(elements, "a")
	if link == nil {
		t.Fatal("link not annotated")
	}
	if !strings.HasPrefix(link.Selector, "#sidebar") {
		t.Errorf("selector = %q, want #sidebar anchor", link.Selector)
	}
}

func TestGuessComponentName(t *testing.T) {
	tests := []struct {
		html string
		want string
	}{
		{`<button data-testid="checkout-button">Go</button>`, "CheckoutButton"},
		{`<button class="SubmitForm_root__x1">Go</button>`, "SubmitForm"},
		{`<button>Save changes</button>`, "SaveChangesButton"},
		{`<a href="/x">Pricing</a>`, "PricingLink"},
	}
	for _, tt := range tests {
		_, elements := parseAndAnnotate(t, `<html><body>`+tt.html+`</body></html>`)
		if len(elements) == 0 {
			t.Errorf("%s: nothing annotated", tt.html)
			continue
		}
		if got := elements[0].ComponentNameGuess; got != tt.want {
			t.Errorf("%s: guess = %q, want %q", tt.html, got, tt.want)
		}
	}
}

func newRunningInstance(t *testing.T, addr string) (*registry.Registry, *navigation.Tracker, string) {
	t.Helper()
	reg := registry.New(registry.Config{LaunchTimeout: 5 * time.Second}, nil, nil)
	reg.Init()
	t.Cleanup(func() { reg.Shutdown(context.Background()) })

	nav := navigation.New()
	nav.Init()

	inst, err := reg.Create("proj", "user-1", func(ctx context.Context, projectID string) (string, error) {
		return addr, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := reg.Get(inst.ID)
		if got.Status == models.InstanceStatusRunning {
			return reg, nav, inst.ID
		}
		if time.Now().After(deadline) {
			t.Fatalf("instance stuck in %s", got.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGenerateAnnotatedDocument(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head><link href="/app.css" rel="stylesheet"></head>`+
			`<body><button>Save</button></body></html>`)
	}))
	defer upstream.Close()

	addr := strings.TrimPrefix(upstream.URL, "http://")
	reg, nav, instID := newRunningInstance(t, addr)
	gen := NewGenerator(reg, nav, time.Second, nil)

	result := gen.Generate(context.Background(), instID, "/checkout")
	if result.Degraded {
		t.Fatal("generation degraded unexpectedly")
	}
	if len(result.Elements) == 0 {
		t.Fatal("no elements annotated")
	}
	if !strings.Contains(result.HTML, attrInspectID) {
		t.Error("document missing inspection attributes")
	}
	if !strings.Contains(result.HTML, "data-inspect-runtime") {
		t.Error("click-capture runtime not injected")
	}
	if !strings.Contains(result.HTML, "__previewShimInstalled") {
		t.Error("loader/fetch compatibility shim not injected")
	}
	if !strings.Contains(result.HTML, `var base="`+upstream.URL+`"`) {
		t.Error("shim does not reroute against the backing origin")
	}
	if !strings.Contains(result.HTML, upstream.URL+"/app.css") {
		t.Error("assets not absolutized against the backing origin")
	}
	if got := nav.Get(instID); got != "/checkout" {
		t.Errorf("requested path not recorded: %q", got)
	}
}

func TestGenerateDefaultsToLastVisitedPath(t *testing.T) {
	var requested string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><body></body></html>`)
	}))
	defer upstream.Close()

	reg, nav, instID := newRunningInstance(t, strings.TrimPrefix(upstream.URL, "http://"))
	nav.Record(instID, "/dashboard")

	gen := NewGenerator(reg, nav, time.Second, nil)
	result := gen.Generate(context.Background(), instID, "")
	if result.Path != "/dashboard" {
		t.Errorf("result path = %q, want /dashboard", result.Path)
	}
	if requested != "/dashboard" {
		t.Errorf("snapshot fetched %q, want /dashboard", requested)
	}
}

func TestGenerateNeverFails(t *testing.T) {
	t.Run("unknown instance", func(t *testing.T) {
		reg := registry.New(registry.Config{}, nil, nil)
		reg.Init()
		defer reg.Shutdown(context.Background())
		nav := navigation.New()
		nav.Init()

		gen := NewGenerator(reg, nav, time.Second, nil)
		result := gen.Generate(context.Background(), "nope", "")
		if !result.Degraded {
			t.Error("unknown instance must degrade")
		}
		if !strings.Contains(result.HTML, "<html") {
			t.Error("degraded result is not an HTML document")
		}
	})

	t.Run("unreachable upstream", func(t *testing.T) {
		reg, nav, instID := newRunningInstance(t, "127.0.0.1:1")
		gen := NewGenerator(reg, nav, 200*time.Millisecond, nil)

		result := gen.Generate(context.Background(), instID, "/")
		if !result.Degraded {
			t.Error("unreachable upstream must degrade")
		}
		if !strings.Contains(result.HTML, "<html") {
			t.Error("degraded result is not an HTML document")
		}
	})
}
