// Package examples embeds the sample knowledge networks that seed an empty
// workspace.
package examples

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/starford/bkn/internal/models"
	"github.com/starford/bkn/internal/storage"
)

//go:embed projects
var projectsFS embed.FS

// Project is an example project with its documents keyed by relative path.
type Project struct {
	models.Project
	Files map[string][]byte
}

var catalog = []models.Project{
	{ID: "k8s-topology", Name: "K8s Topology", Description: "单文件示例 - 完整的 K8s 拓扑定义"},
	{ID: "k8s-modular", Name: "K8s Modular", Description: "模块化示例 - 分离的实体、关系、行动定义"},
}

// All returns the embedded example projects in catalog order.
func All() ([]Project, error) {
	out := make([]Project, 0, len(catalog))
	for _, meta := range catalog {
		files, err := readProject(meta.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Project{Project: meta, Files: files})
	}
	return out, nil
}

func readProject(id string) (map[string][]byte, error) {
	root := path.Join("projects", id)
	files := make(map[string][]byte)
	err := fs.WalkDir(projectsFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := projectsFS.ReadFile(p)
		if err != nil {
			return err
		}
		files[p[len(root)+1:]] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("examples: read %s: %w", id, err)
	}
	return files, nil
}

// Seed copies every example project into ws when ws has no projects yet.
// It reports whether anything was written.
func Seed(ws storage.Workspace, logger *slog.Logger) (bool, error) {
	existing, err := ws.Projects()
	if err != nil {
		return false, fmt.Errorf("examples: list projects: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	projects, err := All()
	if err != nil {
		return false, err
	}
	for _, p := range projects {
		if _, err := ws.CreateProject(p.Project); err != nil {
			return false, fmt.Errorf("examples: create %s: %w", p.ID, err)
		}
		_, store, err := ws.Project(p.ID)
		if err != nil {
			return false, fmt.Errorf("examples: open %s: %w", p.ID, err)
		}
		for rel, data := range p.Files {
			if err := store.Write(rel, data); err != nil {
				return false, fmt.Errorf("examples: write %s/%s: %w", p.ID, rel, err)
			}
		}
		logger.Info("examples: seeded project", slog.String("project", p.ID), slog.Int("documents", len(p.Files)))
	}
	return true, nil
}
