package models

// AccessLevel is the permission granted on a page, either directly through a
// sharing grant or inherited from an ancestor container.
type AccessLevel string

const (
	AccessView AccessLevel = "view"
	AccessEdit AccessLevel = "edit"
)

// Valid reports whether l is a recognized access level.
func (l AccessLevel) Valid() bool {
	return l == AccessView || l == AccessEdit
}

// Satisfies reports whether a grant of l covers the required level.
// Edit implies view; view never implies edit.
func (l AccessLevel) Satisfies(required AccessLevel) bool {
	if l == required {
		return true
	}
	return l == AccessEdit && required == AccessView
}
