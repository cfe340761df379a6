package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/flashmem/internal/deck"
	"github.com/conorfennell/flashmem/internal/gitsource"
	"github.com/conorfennell/flashmem/internal/storage"
)

// Source types.
const (
	Local = "local"
	Git   = "git"
)

// Report summarizes one sync run.
type Report struct {
	Sources  int `json:"sources"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Removed  int `json:"removed"`
	Failed   int `json:"failed"`
}

// SourceType classifies a source path as a git URL or a local directory.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") {
		return Git
	}
	return Local
}

// AddSource registers path as a deck source unless it already is one.
func AddSource(db *storage.DB, path string) (int64, error) {
	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		slog.Info("Source already registered", "id", existing.ID, "path", path)
		return existing.ID, nil
	}
	id, err := db.InsertSource(path, SourceType(path))
	if err != nil {
		return 0, err
	}
	slog.Info("Source added", "id", id, "path", path)
	return id, nil
}

// RemoveSource unregisters the source at path and deletes every deck
// imported from it. It reports whether the source existed.
func RemoveSource(db *storage.DB, path string) (bool, error) {
	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return false, err
	}
	if existing == nil {
		slog.Info("Source not registered", "path", path)
		return false, nil
	}
	if err := db.DeleteSource(existing.ID); err != nil {
		return false, err
	}
	slog.Info("Source removed", "id", existing.ID, "path", path)
	return true, nil
}

// RunSync iterates over all sources and imports their decks into the
// store. Git sources are cloned or pulled under reposDir first. A failing
// source is logged and counted, and the run moves on.
func RunSync(ctx context.Context, db *storage.DB, reposDir string) (Report, error) {
	var report Report
	slog.Info("Starting sync process for all sources...")
	sources, err := db.GetAllSources()
	if err != nil {
		return report, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return report, nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return report, fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)
		report.Sources++

		sourceToReconcile := source
		if source.Type == Git {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				report.Failed++
				continue
			}

			if err := gitsource.Sync(ctx, source.Path, localRepoPath, nil); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				report.Failed++
				continue
			}
			sourceToReconcile.Path = localRepoPath
		}

		if err := reconcileLocalSource(db, &sourceToReconcile, &report); err != nil {
			slog.Error("Error reconciling source", "id", source.ID, "error", err)
			report.Failed++
		}
	}
	slog.Info("Sync process complete.",
		"imported", report.Imported,
		"skipped", report.Skipped,
		"removed", report.Removed,
		"failed", report.Failed,
	)
	return report, nil
}

func reconcileLocalSource(db *storage.DB, source *storage.Source, report *Report) error {
	found := make(map[string]bool)

	walkErr := filepath.WalkDir(source.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".csv") {
			return nil
		}

		name := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Skipping unreadable deck", "path", path, "error", err)
			report.Skipped++
			return nil
		}
		cards, err := deck.Parse(content)
		if err != nil {
			slog.Warn("Skipping invalid deck", "path", path, "error", err)
			report.Skipped++
			return nil
		}
		if err := db.UpsertDeck(name, content, len(cards), source.ID); err != nil {
			return err
		}
		found[name] = true
		report.Imported++
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walking %s: %w", source.Path, walkErr)
	}

	stored, err := db.GetDecksBySourceID(source.ID)
	if err != nil {
		return err
	}
	for _, d := range stored {
		if found[d.Name] {
			continue
		}
		slog.Info("Orphaned deck, deleting", "name", d.Name)
		if err := db.DeleteDeck(d.Name); err != nil {
			slog.Warn("Failed to delete orphaned deck", "name", d.Name, "error", err)
			continue
		}
		report.Removed++
	}

	if err := db.UpdateSourceLastScanned(source.ID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"decks", len(found),
	)
	return nil
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return withinDir(baseDir, filepath.Join(baseDir, host, repoPath), repoURL)
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return withinDir(baseDir, filepath.Join(baseDir, parsedURL.Host, sanitizedPath), repoURL)
}

// withinDir returns path if it names a directory strictly below baseDir.
func withinDir(baseDir, path, repoURL string) (string, error) {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("git URL %s resolves outside %s", repoURL, baseDir)
	}
	return path, nil
}
