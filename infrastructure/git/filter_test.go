package git

import "testing"

func newTestFilter(t *testing.T) FileFilter {
	t.Helper()
	filter, err := NewFileFilter(
		[]string{"node_modules", "bin", ".git"},
		[]string{"package-lock.json"},
		[]string{".png", ".dll"},
		[]string{".cshtml"},
		1000,
	)
	if err != nil {
		t.Fatalf("NewFileFilter: %v", err)
	}
	return filter
}

func TestFileFilter_Admit(t *testing.T) {
	filter := newTestFilter(t)

	admitted := []string{
		"src/UserService.cs",
		"deep/nested/path/main.go",
		"README.md",
	}
	for _, path := range admitted {
		if !filter.Admit(path, 100) {
			t.Errorf("Admit(%q) = false, want true", path)
		}
	}

	rejected := []string{
		"node_modules/lib/index.js",
		"src/node_modules/x.js",
		"bin/output.txt",
		"assets/logo.png",
		"lib/native.dll",
		"package-lock.json",
		"web/package-lock.json",
	}
	for _, path := range rejected {
		if filter.Admit(path, 100) {
			t.Errorf("Admit(%q) = true, want false", path)
		}
	}
}

func TestFileFilter_SizeCap(t *testing.T) {
	filter := newTestFilter(t)
	if filter.Admit("src/big.cs", 2000) {
		t.Error("oversized file admitted")
	}
	if !filter.Admit("src/ok.cs", 1000) {
		t.Error("file at the size cap rejected")
	}
}

func TestFileFilter_IncludeExtensionOverridesExcludes(t *testing.T) {
	filter := newTestFilter(t)
	// .cshtml is force-included even under an excluded folder.
	if !filter.Admit("bin/view.cshtml", 100) {
		t.Error("include extension should override folder exclusion")
	}
}

func TestLooksBinary(t *testing.T) {
	if looksBinary([]byte("plain text content\n")) {
		t.Error("text flagged as binary")
	}
	if !looksBinary([]byte{0x7f, 'E', 'L', 'F', 0x00, 0x01}) {
		t.Error("NUL-containing content not flagged as binary")
	}
}
