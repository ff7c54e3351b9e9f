// Package sync reconciles configured deck sources with the session's card
// collection. Deck-sourced cards are identified by their content hash, so a
// card keeps its scheduling state as long as its text survives in a deck
// file; user-created cards are never touched.
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
	"time"

	"github.com/cloudtardis/dads-english-app/internal/deck"
	"github.com/cloudtardis/dads-english-app/internal/domain"
	"github.com/cloudtardis/dads-english-app/internal/gitsource"
	"github.com/cloudtardis/dads-english-app/internal/session"
	"github.com/cloudtardis/dads-english-app/internal/storage"
)

// Run scans every configured source and folds the parsed entries into the
// session. New entries become fresh cards due immediately; deck cards whose
// text disappeared from every source are removed.
func Run(ctx context.Context, db *storage.DB, sess *session.Session, reposDir string, now time.Time) error {
	slog.Info("Starting sync process for all sources")
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	found := make(map[string]deck.Entry)
	for _, source := range sources {
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		scanPath := source.Path
		if source.Type == "git" {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, source.Path, localRepoPath); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				continue
			}
			scanPath = localRepoPath
		}

		if err := scanSource(scanPath, found); err != nil {
			slog.Error("Error scanning source", "path", scanPath, "error", err)
			continue
		}

		if err := db.UpdateSourceLastScanned(ctx, source.ID, now); err != nil {
			slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
		}
	}

	added, removed := reconcile(sess, found, now)
	slog.Info("Sync complete",
		"sources", len(sources),
		"entries", len(found),
		"added", added,
		"removed", removed,
	)
	return nil
}

// scanSource walks a directory for .md files and records each parsed entry
// under its content hash.
func scanSource(root string, found map[string]deck.Entry) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		entries, parseErr := deck.ParseFile(path)
		if parseErr != nil {
			slog.Warn("Failed to parse deck file", "path", path, "error", parseErr)
			return nil
		}
		for _, e := range entries {
			found[deck.Hash(e)] = e
		}
		return nil
	})
}

// reconcile merges the found entries into the session collection.
func reconcile(sess *session.Session, found map[string]deck.Entry, now time.Time) (added, removed int) {
	existing := sess.Snapshot()
	next := make([]domain.Card, 0, len(existing)+len(found))
	seen := make(map[string]bool, len(existing))

	for _, c := range existing {
		if IsDeckCard(c.ID) {
			if _, ok := found[c.ID]; !ok {
				slog.Info("Orphaned deck card, removing", "id", c.ID)
				removed++
				continue
			}
			seen[c.ID] = true
		}
		next = append(next, c)
	}

	for hash, e := range found {
		if seen[hash] {
			continue
		}
		slog.Info("New deck card", "id", hash)
		next = append(next, domain.NewWithID(hash, e.Prompt, e.Answer, now))
		added++
	}

	if added > 0 || removed > 0 {
		sess.Replace(next)
	}
	return added, removed
}

// IsDeckCard reports whether a card ID is a deck content hash (64 hex
// characters) rather than a user-created card's random ID.
func IsDeckCard(id string) bool {
	if len(id) != 64 {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
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
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
