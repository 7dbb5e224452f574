package models

import "strings"

// Property names read and written on structure nodes.
const (
	PropertyName  = "name"
	PropertyClass = "class"
)

// Node is an element of a unit's structure tree. Name and Class are nil when the element type
// does not expose the property, which is different from an empty value.
type Node struct {
	ID       string  `json:"id" yaml:"id,omitempty"`
	Type     string  `json:"type" yaml:"type"`
	Name     *string `json:"name,omitempty" yaml:"name,omitempty"`
	Class    *string `json:"class,omitempty" yaml:"class,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// HasName reports whether the node exposes a name property.
func (n *Node) HasName() bool {
	return n.Name != nil
}

// HasClass reports whether the node exposes a class property.
func (n *Node) HasClass() bool {
	return n.Class != nil
}

// NameValue returns the name, or "" when absent.
func (n *Node) NameValue() string {
	if n.Name == nil {
		return ""
	}
	return *n.Name
}

// ClassValue returns the class list, or "" when absent.
func (n *Node) ClassValue() string {
	if n.Class == nil {
		return ""
	}
	return *n.Class
}

// SetProperty assigns a string property in memory. Unknown property names are ignored.
func (n *Node) SetProperty(name, value string) bool {
	switch name {
	case PropertyName:
		n.Name = &value
	case PropertyClass:
		n.Class = &value
	default:
		return false
	}
	return true
}

// Walk visits n and its descendants depth-first, parents before children, in stored child order.
// Returning false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, fn)
	}
}

// Find returns the node with the given id below (or at) root.
func Find(root *Node, id string) *Node {
	var found *Node
	Walk(root, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// ClassTokens splits a class list the way the rename workflow does: trimmed, split on single spaces.
func ClassTokens(class string) []string {
	class = strings.TrimSpace(class)
	if class == "" {
		return nil
	}
	return strings.Split(class, " ")
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
