package system

import "fmt"

// Class is one grouping of entities, identified by a stable id that
// survives moves of entities in and out of it.
type Class struct {
	ID       int
	Name     string
	Entities EntitySet
}

// Size returns the number of member entities.
func (c Class) Size() int {
	return c.Entities.Len()
}

func (c Class) String() string {
	if c.Name != "" {
		return c.Name + c.Entities.String()
	}
	return fmt.Sprintf("C%d%s", c.ID, c.Entities)
}

// HashedClass pairs a class with the content hash of its membership.
type HashedClass struct {
	Class
	Hash int64
}

// NewHashedClass computes the content hash of c.
func NewHashedClass(c Class) HashedClass {
	return HashedClass{Class: c, Hash: c.Entities.Hash()}
}
