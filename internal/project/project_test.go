package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/agx/internal/creation"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "ws", "go.work"))
	touch(t, filepath.Join(base, "ws", "svc", "go.mod"))
	touch(t, filepath.Join(base, "solo", "go.mod"))
	deep := filepath.Join(base, "ws", "svc", "internal", "x")
	soloDeep := filepath.Join(base, "solo", "cmd")
	bare := filepath.Join(base, "bare")
	for _, d := range []string{deep, soloDeep, bare} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		name, start, root, marker string
	}{
		{"workspace beats module", deep, filepath.Join(base, "ws"), WorkspaceMarker},
		{"module", soloDeep, filepath.Join(base, "solo"), ModuleMarker},
		{"cwd fallback", bare, bare, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := Discover(tc.start, "rfc")
			if err != nil {
				t.Fatal(err)
			}
			if l.Root != tc.root || l.Marker != tc.marker {
				t.Errorf("Discover = (%s, %q), want (%s, %q)", l.Root, l.Marker, tc.root, tc.marker)
			}
			if l.CorpusDir != filepath.Join(tc.root, "rfc") {
				t.Errorf("corpus dir = %s", l.CorpusDir)
			}
		})
	}
}

func TestInitAndTemplate(t *testing.T) {
	l, err := Discover(t.TempDir(), "docs/rfc")
	if err != nil {
		t.Fatal(err)
	}

	tmpl, err := l.LoadTemplate()
	if err != nil || tmpl != creation.DefaultTemplate {
		t.Fatalf("template before init: err=%v default=%v", err, tmpl == creation.DefaultTemplate)
	}

	if _, err := l.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := os.WriteFile(l.TemplatePath(), []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A second init keeps the customised template.
	if _, err := l.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	tmpl, err = l.LoadTemplate()
	if err != nil || tmpl != "custom" {
		t.Errorf("template = %q, %v", tmpl, err)
	}
}
