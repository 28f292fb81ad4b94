package rewrite

import (
	"strings"
	"testing"
)

const (
	testBase   = "/projects/p1/preview/i1/proxy"
	testOrigin = "http://127.0.0.1:5173"
)

func TestRewriteURLAttributes(t *testing.T) {
	rw := New(testBase, testOrigin)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "root-relative src",
			in:   `<script src="/main.js"></script>`,
			want: `<script src="` + testBase + `/main.js"></script>`,
		},
		{
			name: "root-relative href",
			in:   `<a href="/about">About</a>`,
			want: `<a href="` + testBase + `/about">About</a>`,
		},
		{
			name: "single-quoted attribute",
			in:   `<link href='/styles.css' rel='stylesheet'>`,
			want: `<link href='` + testBase + `/styles.css' rel='stylesheet'>`,
		},
		{
			name: "form action",
			in:   `<form action="/submit" method="post">`,
			want: `<form action="` + testBase + `/submit" method="post">`,
		},
		{
			name: "external URL untouched",
			in:   `<script src="https://cdn.example.com/lib.js"></script>`,
			want: `<script src="https://cdn.example.com/lib.js"></script>`,
		},
		{
			name: "anchor untouched",
			in:   `<a href="#section">Jump</a>`,
			want: `<a href="#section">Jump</a>`,
		},
		{
			name: "mailto untouched",
			in:   `<a href="mailto:hi@example.com">Mail</a>`,
			want: `<a href="mailto:hi@example.com">Mail</a>`,
		},
		{
			name: "tel untouched",
			in:   `<a href="tel:+15551234">Call</a>`,
			want: `<a href="tel:+15551234">Call</a>`,
		},
		{
			name: "data URI untouched",
			in:   `<img src="data:image/png;base64,AAAA">`,
			want: `<img src="data:image/png;base64,AAAA">`,
		},
		{
			name: "protocol-relative untouched",
			in:   `<script src="//cdn.example.com/lib.js"></script>`,
			want: `<script src="//cdn.example.com/lib.js"></script>`,
		},
		{
			name: "document-relative untouched",
			in:   `<img src="logo.png">`,
			want: `<img src="logo.png">`,
		},
		{
			name: "already under base untouched",
			in:   `<script src="` + testBase + `/main.js"></script>`,
			want: `<script src="` + testBase + `/main.js"></script>`,
		},
		{
			name: "origin absolute URL confined",
			in:   `<script src="http://127.0.0.1:5173/app.js"></script>`,
			want: `<script src="` + testBase + `/app.js"></script>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rw.Rewrite(tt.in)
			// The shim is always appended; compare only the original slice.
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("Rewrite(%q)\n got: %q\nwant prefix: %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRewriteSrcset(t *testing.T) {
	rw := New(testBase, testOrigin)
	in := `<img srcset="/img/small.png 480w, /img/large.png 1080w" src="/img/small.png">`
	got := rw.Rewrite(in)
	for _, want := range []string{
		testBase + "/img/small.png 480w",
		testBase + "/img/large.png 1080w",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("srcset rewrite missing %q in %q", want, got)
		}
	}
}

func TestRewriteInlineCSS(t *testing.T) {
	rw := New(testBase, testOrigin)
	in := `<style>body{background:url("/bg.png")}</style><div style="background:url('/tile.png')"></div>`
	got := rw.Rewrite(in)
	for _, want := range []string{
		`url("` + testBase + `/bg.png")`,
		`url('` + testBase + `/tile.png')`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("css rewrite missing %q in %q", want, got)
		}
	}
}

func TestRewriteSocketURLs(t *testing.T) {
	t.Run("without external origin", func(t *testing.T) {
		rw := New(testBase, testOrigin)
		got := rw.Rewrite(`<script>var s="ws://127.0.0.1:5173/hmr";</script>`)
		if !strings.Contains(got, `"`+testBase+`/hmr"`) {
			t.Errorf("socket URL not confined to base: %q", got)
		}
	})

	t.Run("with external origin", func(t *testing.T) {
		rw := New(testBase, testOrigin, WithExternalOrigin("https://preview.example.com"))
		got := rw.Rewrite(`<script>var s="ws://127.0.0.1:5173/hmr";</script>`)
		if !strings.Contains(got, `"wss://preview.example.com`+testBase+`/hmr"`) {
			t.Errorf("socket URL not relocated to external origin: %q", got)
		}
	})
}

func TestShimInjection(t *testing.T) {
	rw := New(testBase, testOrigin)

	t.Run("into head", func(t *testing.T) {
		got := rw.Rewrite(`<html><head><title>x</title></head><body></body></html>`)
		if !strings.Contains(got, shimMarker) {
			t.Fatal("shim not injected")
		}
		if strings.Index(got, shimMarker) > strings.Index(got, "</head>") {
			t.Error("shim injected after </head>")
		}
	})

	t.Run("into body when no head", func(t *testing.T) {
		got := rw.Rewrite(`<html><body><p>x</p></body></html>`)
		if !strings.Contains(got, shimMarker) {
			t.Fatal("shim not injected")
		}
		if strings.Index(got, shimMarker) > strings.Index(got, "</body>") {
			t.Error("shim injected after </body>")
		}
	})

	t.Run("appended for fragments", func(t *testing.T) {
		got := rw.Rewrite(`<p>fragment</p>`)
		if !strings.Contains(got, shimMarker) {
			t.Error("shim not appended to fragment")
		}
	})

	t.Run("base path reaches the shim", func(t *testing.T) {
		got := rw.Rewrite(`<html><head></head><body></body></html>`)
		if !strings.Contains(got, `var base="`+testBase+`"`) {
			t.Error("shim does not carry the base path")
		}
	})
}

func TestRewriteIsIdempotent(t *testing.T) {
	rw := New(testBase, testOrigin)
	in := `<html><head><link href="/a.css" rel="stylesheet"></head>` +
		`<body><img srcset="/s.png 1x, /l.png 2x" src="/s.png">` +
		`<script>var s="ws://127.0.0.1:5173/hmr";</script></body></html>`

	once := rw.Rewrite(in)
	twice := rw.Rewrite(once)
	if once != twice {
		t.Errorf("second rewrite changed output:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestPureRewriteMatchesRewriter(t *testing.T) {
	in := `<a href="/x">x</a>`
	if got, want := Rewrite(in, testBase, testOrigin), New(testBase, testOrigin).Rewrite(in); got != want {
		t.Errorf("pure Rewrite diverges from Rewriter.Rewrite")
	}
}

func TestStripBaseTags(t *testing.T) {
	in := `<head><base href="/app/"><title>x</title></head>`
	got := StripBaseTags(in)
	if strings.Contains(got, "<base") {
		t.Errorf("base tag survived: %q", got)
	}
	if !strings.Contains(got, "<title>x</title>") {
		t.Errorf("unrelated markup damaged: %q", got)
	}
}

func TestAbsolutizeAssets(t *testing.T) {
	in := `<link href="/styles.css"><img src="logo.png"><script src="https://cdn.example.com/x.js"></script>`
	got := AbsolutizeAssets(in, testOrigin)
	if !strings.Contains(got, `href="`+testOrigin+`/styles.css"`) {
		t.Errorf("root-relative asset not absolutized: %q", got)
	}
	if !strings.Contains(got, `src="logo.png"`) {
		t.Errorf("document-relative URL should be untouched: %q", got)
	}
	if !strings.Contains(got, `src="https://cdn.example.com/x.js"`) {
		t.Errorf("external URL should be untouched: %q", got)
	}
}

func TestRuleNamesOrder(t *testing.T) {
	names := RuleNames()
	if len(names) == 0 {
		t.Fatal("no rules registered")
	}
	if names[len(names)-1] != "loader-shim" {
		t.Errorf("shim must be the final rule, got order %v", names)
	}
}
