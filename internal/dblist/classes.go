package dblist

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// Class is a compatibility class a listing can be tagged with,
// e.g. the sequence alphabet its data was built for.
type Class uint32

const (
	ClassRNA Class = iota + 1
	ClassDNA
	ClassProtein
)

var classNames = map[Class]string{
	ClassRNA:     "RNA",
	ClassDNA:     "DNA",
	ClassProtein: "PROTEIN",
}

func (c Class) String() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Class(%d)", uint32(c))
}

// ParseClass accepts a class name case-insensitively.
func ParseClass(s string) (Class, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for c, n := range classNames {
		if n == up {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compatibility class %q", s)
}

// ClassSet is a set of compatibility classes. A nil *ClassSet allows everything.
type ClassSet struct {
	bm *roaring.Bitmap
}

// NewClassSet returns a set holding classes.
func NewClassSet(classes ...Class) *ClassSet {
	s := &ClassSet{bm: roaring.New()}
	for _, c := range classes {
		s.bm.Add(uint32(c))
	}
	return s
}

// AllClasses returns a set holding every known class.
func AllClasses() *ClassSet {
	s := NewClassSet()
	for c := range classNames {
		s.bm.Add(uint32(c))
	}
	return s
}

// Contains reports whether c is allowed. Nil sets allow every class.
func (s *ClassSet) Contains(c Class) bool {
	if s == nil {
		return true
	}
	return s.bm.Contains(uint32(c))
}

// Len returns the number of classes in the set.
func (s *ClassSet) Len() int {
	if s == nil {
		return len(classNames)
	}
	return int(s.bm.GetCardinality())
}

// Classes returns the members in ascending order.
func (s *ClassSet) Classes() []Class {
	if s == nil {
		return AllClasses().Classes()
	}
	out := make([]Class, 0, s.bm.GetCardinality())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, Class(it.Next()))
	}
	return out
}

// names returns the upper-case names of the members, for SQL filtering.
func (s *ClassSet) names() []string {
	classes := s.Classes()
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.String()
	}
	return out
}

func (s *ClassSet) String() string {
	return "{" + strings.Join(s.names(), ",") + "}"
}
