// Package models defines the stored-document types shared by storage, the
// index and the API.
package models

import "time"

// Project groups the documents of one knowledge network.
type Project struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentSummary is the indexed view of a document.
type DocumentSummary struct {
	Project   string    `json:"project"`
	Path      string    `json:"path"`
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordRef locates one entity, relation or action definition.
type RecordRef struct {
	Project string `json:"project"`
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	// Ref is the referenced entity: the bound entity of an action or
	// "source->target" of a relation.
	Ref string `json:"ref,omitempty"`
}

// SearchResult is one full-text hit.
type SearchResult struct {
	Project string `json:"project"`
	Path    string `json:"path"`
	Name    string `json:"name,omitempty"`
	Snippet string `json:"snippet"`
}
