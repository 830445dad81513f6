package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/bkn/internal/checksum"
	"github.com/starford/bkn/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind, project, path string)

// Watch starts an fsnotify watcher on the workspace root (one directory per
// project) and processes document change events until ctx is cancelled. It
// calls cb (if non-nil) after each successful index mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, ws storage.Workspace, root string, patterns []string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, ws, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil || rel == "." || strings.HasPrefix(rel, "..") {
				continue
			}
			project, docPath := splitProject(filepath.ToSlash(rel))

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					indexNewDir(db, ws, root, absPath, patterns, logger, cb)
					continue
				}
			}

			// A project directory itself went away.
			if docPath == "" {
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					if delErr := db.DeleteProject(project); delErr != nil {
						logger.Warn("watcher: drop project failed", slog.String("project", project), slog.String("error", delErr.Error()))
					}
					scheduleReconcile()
				}
				continue
			}

			if !storage.Matches(patterns, docPath) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				_, store, openErr := ws.Project(project)
				if openErr != nil {
					continue
				}
				data, readErr := store.Read(docPath)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("project", project), slog.String("path", docPath), slog.String("error", readErr.Error()))
					continue
				}
				if cs, _ := db.GetChecksum(project, docPath); cs != "" && ev.Op&fsnotify.Create == 0 && cs == checksum.Sum(data) {
					continue
				}
				if idxErr := IndexDocument(db, project, docPath, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("project", project), slog.String("path", docPath), slog.String("error", idxErr.Error()))
					continue
				}
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				logger.Debug("watcher: indexed", slog.String("project", project), slog.String("path", docPath), slog.String("op", kind))
				if cb != nil {
					cb(kind, project, docPath)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteDocument(project, docPath); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("project", project), slog.String("path", docPath), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("project", project), slog.String("path", docPath))
				if cb != nil {
					cb(EventDeleted, project, docPath)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a separate Create when it stays in a watched dir.
				if delErr := db.DeleteDocument(project, docPath); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("project", project), slog.String("path", docPath), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("project", project), slog.String("path", docPath))
					if cb != nil {
						cb(EventDeleted, project, docPath)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries without a stored document and indexes
// stored documents whose checksum differs from the index.
func reconcile(db *DB, ws storage.Workspace, logger *slog.Logger, cb EventCallback) {
	projects, err := ws.Projects()
	if err != nil {
		logger.Warn("reconcile: list projects failed", slog.String("error", err.Error()))
		return
	}
	for _, p := range projects {
		_, store, err := ws.Project(p.ID)
		if err != nil {
			continue
		}
		checksums, err := db.AllChecksums(p.ID)
		if err != nil {
			logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
			continue
		}
		metas, err := store.List("")
		if err != nil {
			logger.Warn("reconcile: list failed", slog.String("project", p.ID), slog.String("error", err.Error()))
			continue
		}

		disk := make(map[string]string, len(metas))
		for _, m := range metas {
			disk[m.Path] = m.Checksum
		}

		for path := range checksums {
			if _, ok := disk[path]; !ok {
				if delErr := db.DeleteDocument(p.ID, path); delErr == nil {
					logger.Debug("reconcile: removed stale", slog.String("project", p.ID), slog.String("path", path))
					if cb != nil {
						cb(EventDeleted, p.ID, path)
					}
				}
			}
		}

		for path, cs := range disk {
			if checksums[path] == cs {
				continue
			}
			data, readErr := store.Read(path)
			if readErr != nil {
				continue
			}
			if idxErr := IndexDocument(db, p.ID, path, data); idxErr == nil {
				logger.Debug("reconcile: indexed new", slog.String("project", p.ID), slog.String("path", path))
				if cb != nil {
					cb(EventCreated, p.ID, path)
				}
			}
		}
	}
}

// indexNewDir indexes any documents found in a newly created directory.
func indexNewDir(db *DB, ws storage.Workspace, root, dirPath string, patterns []string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		project, docPath := splitProject(filepath.ToSlash(rel))
		if docPath == "" || !storage.Matches(patterns, docPath) {
			return nil
		}
		_, store, openErr := ws.Project(project)
		if openErr != nil {
			return nil
		}
		data, readErr := store.Read(docPath)
		if readErr != nil {
			return nil
		}
		if idxErr := IndexDocument(db, project, docPath, data); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("project", project), slog.String("path", docPath))
			if cb != nil {
				cb(EventCreated, project, docPath)
			}
		}
		return nil
	})
}

// splitProject splits a workspace-relative path into its project and the
// document path inside it.
func splitProject(rel string) (project, docPath string) {
	project, docPath, _ = strings.Cut(rel, "/")
	return project, docPath
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
