// Package models defines the working copy, unit and structure node types shared by the client,
// the workflow services and the local model service.
package models

import "strings"

// UnitKind identifies a loadable document type in the model.
type UnitKind string

const (
	// KindPage is a page document.
	KindPage UnitKind = "Pages$Page"
	// KindLayout is a layout document.
	KindLayout UnitKind = "Pages$Layout"
	// KindSnippet is a snippet document.
	KindSnippet UnitKind = "Pages$Snippet"
)

// Kinds lists the document kinds the rename workflow visits, in load order.
var Kinds = []UnitKind{KindPage, KindSnippet, KindLayout}

// Valid reports whether k is one of the known kinds.
func (k UnitKind) Valid() bool {
	switch k {
	case KindPage, KindLayout, KindSnippet:
		return true
	}
	return false
}

// Label returns a short lowercase plural name, e.g. "pages".
func (k UnitKind) Label() string {
	_, name, found := strings.Cut(string(k), "$")
	if !found {
		name = string(k)
	}
	return strings.ToLower(name) + "s"
}

// UnitRef is an entry of the model index. Its properties are not readable until loaded.
type UnitRef struct {
	ID            string   `json:"id"`
	Kind          UnitKind `json:"type"`
	QualifiedName string   `json:"qualified_name"`
}

// Unit is a loaded document with its structure tree.
type Unit struct {
	ID            string   `json:"id" yaml:"id,omitempty"`
	Kind          UnitKind `json:"type" yaml:"type"`
	QualifiedName string   `json:"qualified_name" yaml:"qualifiedName"`
	Root          *Node    `json:"root" yaml:"root"`
}

// Ref returns the index entry for the unit.
func (u *Unit) Ref() UnitRef {
	return UnitRef{ID: u.ID, Kind: u.Kind, QualifiedName: u.QualifiedName}
}

