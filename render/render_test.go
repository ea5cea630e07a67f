package render

import (
	"errors"
	"testing"
)

func TestPageImage(t *testing.T) {
	if (Page{MIME: MIMEPDF}).Image() {
		t.Error("pdf page should not report as image")
	}
	if !(Page{MIME: "image/png"}).Image() {
		t.Error("png page should report as image")
	}
}

func TestNewSofficeMissingBinary(t *testing.T) {
	_, err := NewSoffice("soffice-binary-that-does-not-exist", t.TempDir())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("NewSoffice error = %v, want ErrUnavailable", err)
	}
}

func TestMergePagesEmpty(t *testing.T) {
	if err := MergePages(nil, "out.pdf"); err == nil {
		t.Error("MergePages with no inputs should fail")
	}
}

func TestStem(t *testing.T) {
	for in, want := range map[string]string{
		"/tmp/deck.pptx":    "deck",
		"deck.pptx":         "deck",
		"/a/b/c.d.pptx":     "c.d",
		"/tmp/noextension":  "noextension",
		"/tmp/archive.PPTX": "archive",
	} {
		if got := stem(in); got != want {
			t.Errorf("stem(%q) = %q, want %q", in, got, want)
		}
	}
}
