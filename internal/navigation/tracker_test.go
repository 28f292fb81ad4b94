package navigation

import "testing"

func newTestTracker() *Tracker {
	t := New()
	t.Init()
	return t
}

func TestGetDefaultsToRoot(t *testing.T) {
	tr := newTestTracker()
	if got := tr.Get("unknown"); got != DefaultPath {
		t.Errorf("Get(unknown) = %q, want %q", got, DefaultPath)
	}
}

func TestRecordAndGet(t *testing.T) {
	tr := newTestTracker()
	tr.Record("inst-1", "/about")
	tr.Record("inst-2", "/pricing")

	if got := tr.Get("inst-1"); got != "/about" {
		t.Errorf("Get(inst-1) = %q, want /about", got)
	}
	if got := tr.Get("inst-2"); got != "/pricing" {
		t.Errorf("Get(inst-2) = %q, want /pricing", got)
	}

	// Last write wins.
	tr.Record("inst-1", "/settings")
	if got := tr.Get("inst-1"); got != "/settings" {
		t.Errorf("Get(inst-1) after update = %q, want /settings", got)
	}
}

func TestClear(t *testing.T) {
	tr := newTestTracker()
	tr.Record("inst-1", "/about")
	tr.Clear("inst-1")
	if got := tr.Get("inst-1"); got != DefaultPath {
		t.Errorf("Get after Clear = %q, want %q", got, DefaultPath)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/about", "/about"},
		{"about", "/about"},
		{"/search?q=hello", "/search"},
		{"?q=hello", "/"},
		{"/a/b/c?x=1&y=2", "/a/b/c"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
