// Package models defines the domain types for Daymark.
package models

import "time"

// Document is a Markdown file in the vault as seen by the indexer.
type Document struct {
	Path      string    `json:"path"`      // relative to the vault root, slash-separated
	Basename  string    `json:"basename"`  // file name without extension
	Extension string    `json:"extension"` // without the leading dot
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemKind distinguishes the two kinds of day entries.
type ItemKind string

const (
	KindNote ItemKind = "note"
	KindTag  ItemKind = "tag"
)

// Item is one entry in a day's list. It is either a NoteItem or a TagItem.
type Item interface {
	Kind() ItemKind
	// Label is the display name shown in the day list.
	Label() string
	// Source is the path of the document the item came from.
	Source() string
}

// NoteItem represents a whole document.
type NoteItem struct {
	DisplayName string
	Path        string
}

func (n NoteItem) Kind() ItemKind { return KindNote }
func (n NoteItem) Label() string  { return n.DisplayName }
func (n NoteItem) Source() string { return n.Path }

// TagItem represents one inline tag occurrence inside a document.
// Line is the 0-based line of the match, used for jump-to-position.
type TagItem struct {
	DisplayName string
	SourcePath  string
	Tag         string
	Line        int
}

func (t TagItem) Kind() ItemKind { return KindTag }
func (t TagItem) Label() string  { return t.DisplayName }
func (t TagItem) Source() string { return t.SourcePath }

// NewNoteItem builds the NoteItem for a document.
func NewNoteItem(doc Document) NoteItem {
	return NoteItem{DisplayName: doc.Basename, Path: doc.Path}
}
