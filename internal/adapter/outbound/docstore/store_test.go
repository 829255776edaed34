package docstore_test

import (
	"path/filepath"
	"testing"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/docstore"
	"github.com/aegis-policy/aegis/internal/port/outbound"
)

func TestLoadDocsMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.yaml")
	s := docstore.NewStore(path, nil)
	docs, err := s.LoadDocs()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("expected empty registry for missing file, got %v", docs)
	}
}

func TestSaveDocThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.yaml")
	s := docstore.NewStore(path, nil)

	entry := outbound.DocEntry{Name: "checkout", Doc: "allows checkout", AttrDocs: map[string]string{"payment": "whether payment is captured"}}
	if err := s.SaveDoc(entry); err != nil {
		t.Fatal(err)
	}

	docs, err := s.LoadDocs()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := docs["checkout"]
	if !ok {
		t.Fatal("expected checkout entry to round-trip")
	}
	if got.Doc != entry.Doc || got.AttrDocs["payment"] != entry.AttrDocs["payment"] {
		t.Errorf("got %+v, want %+v", got, entry)
	}
}

func TestSaveDocOverwritesSameName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.yaml")
	s := docstore.NewStore(path, nil)

	s.SaveDoc(outbound.DocEntry{Name: "r", Doc: "first"})
	s.SaveDoc(outbound.DocEntry{Name: "r", Doc: "second"})

	docs, err := s.LoadDocs()
	if err != nil {
		t.Fatal(err)
	}
	if docs["r"].Doc != "second" {
		t.Errorf("expected overwritten doc 'second', got %q", docs["r"].Doc)
	}
}

func TestSaveDocPreservesOtherEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.yaml")
	s := docstore.NewStore(path, nil)

	s.SaveDoc(outbound.DocEntry{Name: "a", Doc: "doc a"})
	s.SaveDoc(outbound.DocEntry{Name: "b", Doc: "doc b"})

	docs, err := s.LoadDocs()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs["a"].Doc != "doc a" || docs["b"].Doc != "doc b" {
		t.Errorf("expected both entries preserved, got %v", docs)
	}
}
