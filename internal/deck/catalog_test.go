package deck

import (
	"errors"
	"slices"
	"testing"
	"testing/fstest"
)

func TestBuiltin(t *testing.T) {
	ids, err := Builtin().Enumerate()
	if err != nil {
		t.Fatalf("Enumerate() returned an unexpected error: %v", err)
	}
	want := []string{"algorithms", "cs_basics", "python"}
	if !slices.Equal(ids, want) {
		t.Errorf("Expected %v, but got %v", want, ids)
	}

	loader := NewLoader(Builtin())
	for _, id := range ids {
		cards, err := loader.LoadNamedDeck(id)
		if err != nil {
			t.Errorf("Bundled deck %s failed to load: %v", id, err)
			continue
		}
		if len(cards) == 0 {
			t.Errorf("Bundled deck %s has no cards", id)
		}
	}
}

func TestFSCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"zeta.csv":     {Data: []byte("front,back,deck\nQ,A,Z\n")},
		"alpha.csv":    {Data: []byte("front,back,deck\nQ,A,A\n")},
		"notes.txt":    {Data: []byte("not a deck")},
		"nested/x.csv": {Data: []byte("front,back,deck\nQ,A,X\n")},
	}
	catalog := NewFSCatalog(fsys)

	ids, err := catalog.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate() returned an unexpected error: %v", err)
	}
	if !slices.Equal(ids, []string{"alpha", "zeta"}) {
		t.Errorf("Expected [alpha zeta], but got %v", ids)
	}

	t.Run("known id", func(t *testing.T) {
		content, err := catalog.ReadTable("alpha")
		if err != nil {
			t.Fatalf("ReadTable() returned an unexpected error: %v", err)
		}
		if len(content) == 0 {
			t.Error("Expected content for alpha")
		}
	})

	for _, id := range []string{"missing", "", "nested/x", "../alpha"} {
		t.Run("unknown id "+id, func(t *testing.T) {
			_, err := catalog.ReadTable(id)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, but got %v", err)
			}
		})
	}
}

func TestChain(t *testing.T) {
	first := NewFSCatalog(fstest.MapFS{
		"shared.csv": {Data: []byte("front,back,deck\nfirst,A,D\n")},
		"one.csv":    {Data: []byte("front,back,deck\nQ,A,D\n")},
	})
	second := NewFSCatalog(fstest.MapFS{
		"shared.csv": {Data: []byte("front,back,deck\nsecond,A,D\n")},
		"two.csv":    {Data: []byte("front,back,deck\nQ,A,D\n")},
	})
	catalog := Chain(first, second)

	ids, err := catalog.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate() returned an unexpected error: %v", err)
	}
	if !slices.Equal(ids, []string{"one", "shared", "two"}) {
		t.Errorf("Expected de-duplicated sorted ids, but got %v", ids)
	}

	cards, err := NewLoader(catalog).LoadNamedDeck("shared")
	if err != nil {
		t.Fatalf("LoadNamedDeck() returned an unexpected error: %v", err)
	}
	if cards[0].Front != "first" {
		t.Errorf("Expected the first catalog to win, but got '%s'", cards[0].Front)
	}

	if _, err := catalog.ReadTable("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, but got %v", err)
	}
}
