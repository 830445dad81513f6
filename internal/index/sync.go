package index

import (
	"log/slog"
	"time"

	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/checksum"
	"github.com/starford/bkn/internal/models"
	"github.com/starford/bkn/internal/storage"
	"github.com/starford/bkn/internal/textenc"
)

// Sync brings the index up to date with every project of the workspace:
//   - new/changed documents are parsed and upserted
//   - documents removed from storage are deleted from the index
//   - projects that no longer exist are dropped
func Sync(db *DB, ws storage.Workspace, logger *slog.Logger) error {
	projects, err := ws.Projects()
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		known[p.ID] = struct{}{}
		_, store, err := ws.Project(p.ID)
		if err != nil {
			logger.Warn("sync: open project failed", slog.String("project", p.ID), slog.String("error", err.Error()))
			continue
		}
		if err := SyncProject(db, p.ID, store, logger); err != nil {
			logger.Warn("sync: project failed", slog.String("project", p.ID), slog.String("error", err.Error()))
		}
	}

	indexed, err := db.Projects()
	if err != nil {
		return err
	}
	for _, p := range indexed {
		if _, ok := known[p]; ok {
			continue
		}
		if err := db.DeleteProject(p); err != nil {
			logger.Warn("sync: drop project failed", slog.String("project", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: dropped project", slog.String("project", p))
		}
	}
	return nil
}

// SyncProject reconciles one project's documents with the index.
func SyncProject(db *DB, project string, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums(project)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("project", project), slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, project, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("project", project), slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("project", project), slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(project, p); err != nil {
				logger.Warn("sync: delete failed", slog.String("project", project), slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("project", project), slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexDocument parses data and upserts the document and its records.
func IndexDocument(db DocumentIndex, project, path string, data []byte) error {
	doc := bkn.ReadDocument(path, textenc.String(data))
	n := bkn.Assemble([]bkn.Document{doc})

	fm := doc.Frontmatter
	row := DocumentRow{
		Project:   project,
		Path:      path,
		Type:      string(fm.Type),
		ID:        fm.ID,
		Name:      fm.Name,
		Checksum:  checksum.Sum(data),
		Tags:      fm.Tags,
		UpdatedAt: time.Now().UTC(),
	}
	if row.Name == "" && fm.Type.SingleDefinition() && len(n.Entities)+len(n.Relations)+len(n.Actions) == 1 {
		row.Name = firstName(n)
	}
	return db.UpsertDocument(row, doc.Content, Records(project, n))
}

// Records lists the record definitions of n in assembly order.
func Records(project string, n bkn.Network) []models.RecordRef {
	out := make([]models.RecordRef, 0, len(n.Entities)+len(n.Relations)+len(n.Actions))
	for _, e := range n.Entities {
		out = append(out, models.RecordRef{Project: project, Path: e.FilePath, Kind: string(bkn.KindEntity), ID: e.ID, Name: e.Name})
	}
	for _, r := range n.Relations {
		out = append(out, models.RecordRef{Project: project, Path: r.FilePath, Kind: string(bkn.KindRelation), ID: r.ID, Name: r.Name, Ref: r.Source + "->" + r.Target})
	}
	for _, a := range n.Actions {
		out = append(out, models.RecordRef{Project: project, Path: a.FilePath, Kind: string(bkn.KindAction), ID: a.ID, Name: a.Name, Ref: a.EntityID})
	}
	return out
}

func firstName(n bkn.Network) string {
	switch {
	case len(n.Entities) > 0:
		return n.Entities[0].Name
	case len(n.Relations) > 0:
		return n.Relations[0].Name
	default:
		return n.Actions[0].Name
	}
}
