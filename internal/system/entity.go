// Package system models the source system under analysis: its entities
// (methods, fields) and the classes that currently group them.
package system

import (
	"encoding/binary"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
)

// Entity is a structural element of the analysed system.
type Entity struct {
	ID   int
	Name string
	// Kind is a free-form tag such as "method" or "field".
	Kind string
	// Related holds the ids of the entities this one references or is referenced by.
	Related []int
}

// EntitySet is a sorted, duplicate-free set of entity ids.
type EntitySet []int

// NewEntitySet builds a set from ids in any order.
func NewEntitySet(ids ...int) EntitySet {
	set := EntitySet(lo.Uniq(ids))
	slices.Sort(set)
	return set
}

// Len returns the number of ids in the set.
func (s EntitySet) Len() int {
	return len(s)
}

// Contains reports whether id is a member.
func (s EntitySet) Contains(id int) bool {
	_, found := slices.BinarySearch(s, id)
	return found
}

// ContainsAll reports whether every id of other is a member.
func (s EntitySet) ContainsAll(other EntitySet) bool {
	return lo.EveryBy(other, s.Contains)
}

// Without returns a copy of the set minus id.
func (s EntitySet) Without(id int) EntitySet {
	return lo.Filter(s, func(v int, _ int) bool { return v != id })
}

// Hash digests the ascending ids, each as 8 little-endian bytes, with
// xxhash. Equal sets always hash equally; every id, including 0, changes
// the result.
func (s EntitySet) Hash() int64 {
	d := xxhash.New()
	var buf [8]byte
	for _, id := range s {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = d.Write(buf[:])
	}
	return int64(d.Sum64())
}

func (s EntitySet) String() string {
	parts := lo.Map(s, func(id int, _ int) string { return strconv.Itoa(id) })
	return "[" + strings.Join(parts, ",") + "]"
}
