package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStore(t *testing.T, dir string, law LawID, lines string) {
	t.Helper()
	lawDir := filepath.Join(dir, string(law))
	if err := os.MkdirAll(lawDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lawDir, "chunks.jsonl"), []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAlternateFieldNames(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, GDPR, `{"id":"g1","text":"lawful basis","page":3}
{"id":"g2","chunk":"consent rules","page_num":7}
{"chunk":"no id line","p":"12"}
`)

	s := NewStore(dir)
	chunks := s.Load(GDPR)
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if chunks[0].Text != "lawful basis" || chunks[0].Page == nil || *chunks[0].Page != 3 {
		t.Errorf("chunk 0 = %+v, want text+page from canonical fields", chunks[0])
	}
	if chunks[1].Text != "consent rules" || chunks[1].Page == nil || *chunks[1].Page != 7 {
		t.Errorf("chunk 1 = %+v, want text from 'chunk' and page from 'page_num'", chunks[1])
	}
	if chunks[2].ID != "gdpr:12" {
		t.Errorf("chunk 2 ID = %q, want synthesized gdpr:12", chunks[2].ID)
	}
	if chunks[2].Source != GDPR {
		t.Errorf("chunk 2 Source = %q, want gdpr", chunks[2].Source)
	}
}

func TestLoadMalformedPageDegradesToUnknown(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, AIAct, `{"id":"a1","text":"risk management","page":"not-a-number"}
`)

	chunks := NewStore(dir).Load(AIAct)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].Page != nil {
		t.Errorf("Page = %v, want unknown (nil)", *chunks[0].Page)
	}
	if got := chunks[0].PageLabel(); got != "?" {
		t.Errorf("PageLabel() = %q, want ?", got)
	}
}

func TestLoadMissingStoreIsEmptyNotError(t *testing.T) {
	s := NewStore(t.TempDir())
	if chunks := s.Load(GDPR); len(chunks) != 0 {
		t.Errorf("missing store returned %d chunks, want 0", len(chunks))
	}
}

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, GDPR, `{"id":"g1","text":"x","page":1}`+"\n")
	s := NewStore(dir)
	first := s.Load(GDPR)

	// Overwrite the file; the cached result must still be served.
	writeStore(t, dir, GDPR, "")
	second := s.Load(GDPR)
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("cache miss: first=%d second=%d, want 1 and 1", len(first), len(second))
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want LawID
	}{
		{"gdpr", GDPR},
		{"GDPR", GDPR},
		{"EU GDPR", GDPR},
		{"ai_act", AIAct},
		{"AI Act", AIAct},
		{"aiact", AIAct},
		{"EU AI ACT", AIAct},
		{"", GDPR},
		{"ccpa", GDPR}, // unknown labels deliberately default to GDPR
		{"ai", GDPR},   // "ai" alone is not the AI Act
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	if got := GDPR.Display(); got != "GDPR" {
		t.Errorf("GDPR.Display() = %q", got)
	}
	if got := AIAct.Display(); got != "AI Act" {
		t.Errorf("AIAct.Display() = %q", got)
	}
}
