package sync

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/conorfennell/flashmem/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestRunSyncLocalSource(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open() returned an unexpected error: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	writeFile(t, dir, "spanish.csv", "front,back,deck\nhola,hello,Spanish\n")
	writeFile(t, dir, "nested/german.CSV", "front,back,deck\nhallo,hello,German\n")
	writeFile(t, dir, "broken.csv", "front,back\nQ,A\n")
	writeFile(t, dir, "readme.md", "# decks")

	if _, err := AddSource(db, dir); err != nil {
		t.Fatalf("AddSource() returned an unexpected error: %v", err)
	}
	if _, err := AddSource(db, dir); err != nil {
		t.Fatalf("AddSource() for a known path returned an unexpected error: %v", err)
	}

	report, err := RunSync(context.Background(), db, filepath.Join(t.TempDir(), "repos"))
	if err != nil {
		t.Fatalf("RunSync() returned an unexpected error: %v", err)
	}
	want := Report{Sources: 1, Imported: 2, Skipped: 1}
	if report != want {
		t.Errorf("Expected report %+v, got %+v", want, report)
	}

	names, err := db.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate() returned an unexpected error: %v", err)
	}
	if !slices.Equal(names, []string{"german", "spanish"}) {
		t.Errorf("Expected [german spanish], got %v", names)
	}

	t.Run("removed files are deleted on the next sync", func(t *testing.T) {
		if err := os.Remove(filepath.Join(dir, "spanish.csv")); err != nil {
			t.Fatalf("Failed to remove fixture: %v", err)
		}
		report, err := RunSync(context.Background(), db, filepath.Join(t.TempDir(), "repos"))
		if err != nil {
			t.Fatalf("RunSync() returned an unexpected error: %v", err)
		}
		if report.Removed != 1 {
			t.Errorf("Expected 1 removed deck, got %d", report.Removed)
		}
		names, _ := db.Enumerate()
		if !slices.Equal(names, []string{"german"}) {
			t.Errorf("Expected [german], got %v", names)
		}
	})
}

func TestRemoveSource(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open() returned an unexpected error: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	writeFile(t, dir, "spanish.csv", "front,back,deck\nhola,hello,Spanish\n")
	if _, err := AddSource(db, dir); err != nil {
		t.Fatalf("AddSource() returned an unexpected error: %v", err)
	}
	if _, err := RunSync(context.Background(), db, filepath.Join(t.TempDir(), "repos")); err != nil {
		t.Fatalf("RunSync() returned an unexpected error: %v", err)
	}

	removed, err := RemoveSource(db, dir)
	if err != nil || !removed {
		t.Fatalf("RemoveSource() = %v, %v; want true, nil", removed, err)
	}
	sources, _ := db.GetAllSources()
	if len(sources) != 0 {
		t.Errorf("Expected no sources, got %+v", sources)
	}
	names, _ := db.Enumerate()
	if len(names) != 0 {
		t.Errorf("Expected the source's decks to be deleted, got %v", names)
	}

	removed, err = RemoveSource(db, dir)
	if err != nil || removed {
		t.Errorf("RemoveSource() for an unknown path = %v, %v; want false, nil", removed, err)
	}
}

func TestRunSyncWithoutSources(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open() returned an unexpected error: %v", err)
	}
	defer db.Close()

	report, err := RunSync(context.Background(), db, t.TempDir())
	if err != nil {
		t.Fatalf("RunSync() returned an unexpected error: %v", err)
	}
	if report != (Report{}) {
		t.Errorf("Expected an empty report, got %+v", report)
	}
}

func TestSourceType(t *testing.T) {
	testCases := map[string]string{
		"/home/me/decks":                  Local,
		"./decks":                         Local,
		"git@github.com:me/decks.git":     Git,
		"https://github.com/me/decks":     Git,
		"https://github.com/me/decks.git": Git,
	}
	for path, want := range testCases {
		if got := SourceType(path); got != want {
			t.Errorf("SourceType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestGitURLToLocalPath(t *testing.T) {
	testCases := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://github.com/me/decks.git", want: filepath.Join("repos", "github.com", "me", "decks")},
		{url: "git@github.com:me/decks.git", want: filepath.Join("repos", "github.com", "me", "decks")},
		{url: "not a url", wantErr: true},
		{url: "https://example.com/../../etc", wantErr: true},
		{url: "git@example.com:../../../tmp/x.git", wantErr: true},
		{url: "https://..", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			got, err := gitURLToLocalPath("repos", tc.url)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected an error for %q", tc.url)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("gitURLToLocalPath(%q) = %q, %v; want %q", tc.url, got, err, tc.want)
			}
		})
	}
}
