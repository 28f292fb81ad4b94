package gateway

import (
	"testing"

	"github.com/narvanalabs/preview-gateway/pkg/config"
)

func TestClassifierDefaults(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		path  string
		asset bool
	}{
		{"/main.js", true},
		{"/styles/app.css", true},
		{"/img/logo.png", true},
		{"/fonts/inter.woff2", true},
		{"/app.wasm", true},
		{"/static/whatever", true},
		{"/assets/chunk-abc123", true},
		{"/_next/data/build/index.json", true},
		{"/@vite/client", true},
		{"/node_modules/.vite/deps/react.js", true},
		{"/favicon.ico", true},
		{"/", false},
		{"/about", false},
		{"/dashboard/settings", false},
		{"/api/users", false},
		{"/blog/why-js-is-fine", false},
		{"/search", false},
	}

	for _, tt := range tests {
		if got := c.IsAsset(tt.path); got != tt.asset {
			t.Errorf("IsAsset(%q) = %v, want %v", tt.path, got, tt.asset)
		}
	}
}

func TestClassifierOverrides(t *testing.T) {
	c := NewClassifier(&config.ClassifierRules{
		Extensions:   []string{".custom"},
		PathPrefixes: []string{"/bundled/"},
	})

	if !c.IsAsset("/x.custom") {
		t.Error("override extension not honored")
	}
	if !c.IsAsset("/bundled/thing") {
		t.Error("override prefix not honored")
	}
	if c.IsAsset("/main.js") {
		t.Error("overrides should replace the default extension table")
	}
}
