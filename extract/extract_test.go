package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"hyphen line break", "data mini-\nmization applies", "data minimization applies"},
		{"space runs", "a  \t  b", "a b"},
		{"newline runs", "a \n\n  \n b", "a\nb"},
		{"soft hyphen", "mini\u00admization", "minimization"},
		{"zero width and bom", "\ufeffcon\u200bsent", "consent"},
		{"nbsp", "personal\u00a0data", "personal data"},
		{"empty", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := cleanText(c.in); got != c.want {
				t.Errorf("cleanText(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestLoadTextSplitsFormFeedPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	content := "page one text\fpage two text\f\f  \f"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	pages := NewRegistry().Load(path)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2 (empty pages dropped)", len(pages))
	}
	if pages[0].Page != 1 || pages[0].Text != "page one text" {
		t.Errorf("pages[0] = %+v", pages[0])
	}
	if pages[1].Page != 2 || pages[1].Text != "page two text" {
		t.Errorf("pages[1] = %+v", pages[1])
	}
}

func TestLoadUnsupportedFormatIsEmpty(t *testing.T) {
	if pages := NewRegistry().Load("/tmp/whatever.docx"); pages != nil {
		t.Errorf("pages = %+v, want nil for an unsupported format", pages)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	if pages := NewRegistry().Load("/nonexistent/policy.txt"); pages != nil {
		t.Errorf("pages = %+v, want nil for a missing file", pages)
	}
}

func TestRegistryOverride(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("pdf"); err != nil {
		t.Fatalf("Get(pdf): %v", err)
	}
	if _, err := r.Get("docx"); err == nil {
		t.Fatal("Get(docx) should fail before registration")
	}
	r.Register("docx", &TextExtractor{})
	if _, err := r.Get("docx"); err != nil {
		t.Errorf("Get(docx) after Register: %v", err)
	}
}
