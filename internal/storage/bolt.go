package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/starford/bkn/internal/apperr"
	"github.com/starford/bkn/internal/checksum"
	"github.com/starford/bkn/internal/models"
)

// Bucket layout: a "projects" bucket maps project id to JSON metadata; each
// project owns a top-level bucket holding a "docs" bucket (path → content)
// and a "mtime" bucket (path → RFC 3339 timestamp).
var (
	projectsBucket = []byte("projects")
	docsBucket     = []byte("docs")
	mtimeBucket    = []byte("mtime")
)

// BoltWorkspace stores the workspace in a single bbolt file.
type BoltWorkspace struct {
	db       *bolt.DB
	patterns []string
}

// OpenBolt opens or creates the workspace database at path.
func OpenBolt(path string, patterns []string) (*BoltWorkspace, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	opts := *bolt.DefaultOptions
	opts.Timeout = 5 * time.Second
	db, err := bolt.Open(path, 0o600, &opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(projectsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: init bolt: %w", err)
	}
	return &BoltWorkspace{db: db, patterns: patterns}, nil
}

func projectKey(id string) []byte { return []byte("project:" + id) }

// Projects lists stored projects sorted by id.
func (w *BoltWorkspace) Projects() ([]models.Project, error) {
	var out []models.Project
	err := w.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(projectsBucket).ForEach(func(k, v []byte) error {
			var p models.Project
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode project %s: %w", k, err)
			}
			out = append(out, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list projects: %w", err)
	}
	slices.SortFunc(out, func(a, b models.Project) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// Project returns the metadata and provider of project id.
func (w *BoltWorkspace) Project(id string) (models.Project, Provider, error) {
	var p models.Project
	err := w.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(projectsBucket).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("project %q: %w", id, apperr.ErrNotFound)
		}
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return models.Project{}, nil, fmt.Errorf("storage: %w", err)
	}
	return p, &boltProject{db: w.db, bucket: projectKey(id), patterns: w.patterns}, nil
}

// CreateProject stores metadata and creates the project buckets.
func (w *BoltWorkspace) CreateProject(p models.Project) (models.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if !validProjectID(p.ID) {
		return models.Project{}, fmt.Errorf("storage: project id %q: %w", p.ID, apperr.ErrInvalidPath)
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	err := w.db.Update(func(tx *bolt.Tx) error {
		projects := tx.Bucket(projectsBucket)
		if projects.Get([]byte(p.ID)) != nil {
			return fmt.Errorf("project %q: %w", p.ID, apperr.ErrAlreadyExists)
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if err := projects.Put([]byte(p.ID), data); err != nil {
			return err
		}
		root, err := tx.CreateBucketIfNotExists(projectKey(p.ID))
		if err != nil {
			return err
		}
		if _, err := root.CreateBucketIfNotExists(docsBucket); err != nil {
			return err
		}
		_, err = root.CreateBucketIfNotExists(mtimeBucket)
		return err
	})
	if err != nil {
		return models.Project{}, fmt.Errorf("storage: create project: %w", err)
	}
	return p, nil
}

// DeleteProject drops the project and its buckets.
func (w *BoltWorkspace) DeleteProject(id string) error {
	err := w.db.Update(func(tx *bolt.Tx) error {
		projects := tx.Bucket(projectsBucket)
		if projects.Get([]byte(id)) == nil {
			return fmt.Errorf("project %q: %w", id, apperr.ErrNotFound)
		}
		if err := projects.Delete([]byte(id)); err != nil {
			return err
		}
		if tx.Bucket(projectKey(id)) != nil {
			return tx.DeleteBucket(projectKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: delete project: %w", err)
	}
	return nil
}

// Close closes the database.
func (w *BoltWorkspace) Close() error {
	return w.db.Close()
}

// boltProject implements Provider over one project bucket.
type boltProject struct {
	db       *bolt.DB
	bucket   []byte
	patterns []string
}

func (b *boltProject) buckets(tx *bolt.Tx) (docs, mtime *bolt.Bucket, err error) {
	root := tx.Bucket(b.bucket)
	if root == nil {
		return nil, nil, fmt.Errorf("bucket %s: %w", b.bucket, apperr.ErrNotFound)
	}
	return root.Bucket(docsBucket), root.Bucket(mtimeBucket), nil
}

func docPath(rel string) (string, error) {
	cleaned, ok := cleanRel(rel)
	if !ok || cleaned == "" {
		return "", fmt.Errorf("storage: invalid document path %q: %w", rel, apperr.ErrInvalidPath)
	}
	return cleaned, nil
}

func (b *boltProject) List(dir string) ([]models.DocumentMetadata, error) {
	prefix, ok := cleanRel(dir)
	if !ok {
		return nil, fmt.Errorf("storage: invalid directory %q: %w", dir, apperr.ErrInvalidPath)
	}
	if prefix != "" {
		prefix += "/"
	}
	var out []models.DocumentMetadata
	err := b.db.View(func(tx *bolt.Tx) error {
		docs, mtime, err := b.buckets(tx)
		if err != nil {
			return err
		}
		c := docs.Cursor()
		for k, v := c.Seek([]byte(prefix)); k != nil && bytes.HasPrefix(k, []byte(prefix)); k, v = c.Next() {
			if !Matches(b.patterns, string(k)) {
				continue
			}
			updated, _ := time.Parse(time.RFC3339Nano, string(mtime.Get(k)))
			out = append(out, models.DocumentMetadata{
				Path:      string(k),
				Checksum:  checksum.Sum(v),
				UpdatedAt: updated,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

func (b *boltProject) Read(path string) ([]byte, error) {
	key, err := docPath(path)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = b.db.View(func(tx *bolt.Tx) error {
		docs, _, err := b.buckets(tx)
		if err != nil {
			return err
		}
		v := docs.Get([]byte(key))
		if v == nil {
			return fs.ErrNotExist
		}
		data = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

func (b *boltProject) Write(path string, content []byte) error {
	key, err := docPath(path)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		docs, mtime, err := b.buckets(tx)
		if err != nil {
			return err
		}
		if err := docs.Put([]byte(key), bytes.Clone(content)); err != nil {
			return err
		}
		return mtime.Put([]byte(key), []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

func (b *boltProject) Delete(path string) error {
	key, err := docPath(path)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		docs, mtime, err := b.buckets(tx)
		if err != nil {
			return err
		}
		if docs.Get([]byte(key)) == nil {
			return fs.ErrNotExist
		}
		if err := docs.Delete([]byte(key)); err != nil {
			return err
		}
		return mtime.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

func (b *boltProject) Move(oldPath, newPath string) error {
	from, err := docPath(oldPath)
	if err != nil {
		return err
	}
	to, err := docPath(newPath)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		docs, mtime, err := b.buckets(tx)
		if err != nil {
			return err
		}
		v := docs.Get([]byte(from))
		if v == nil {
			return fs.ErrNotExist
		}
		data := bytes.Clone(v)
		if err := docs.Delete([]byte(from)); err != nil {
			return err
		}
		if err := mtime.Delete([]byte(from)); err != nil {
			return err
		}
		if err := docs.Put([]byte(to), data); err != nil {
			return err
		}
		return mtime.Put([]byte(to), []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}
