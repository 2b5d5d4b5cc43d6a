package types

import "fmt"

// Track returns a mutable placeholder that starts out as a copy of t.
func Track(t *Type) *Type {
	c := *t
	c.tracked = true
	c.original = t.origin()
	return &c
}

// IsTracked reports whether t was created by Track.
func (t *Type) IsTracked() bool {
	return t != nil && t.tracked
}

// Original returns the type t was tracked from, or t itself.
func (t *Type) Original() *Type {
	return t.origin()
}

// Adjust reshapes the tracked type t in place so it becomes to. Holders of
// t observe the new shape.
func (t *Type) Adjust(to *Type) error {
	if !t.IsTracked() {
		return fmt.Errorf("cannot adjust untracked type %s", t)
	}
	if to == nil {
		return fmt.Errorf("cannot adjust %s to an unknown type", t)
	}
	if to == t {
		return nil
	}
	c := *to
	c.tracked = true
	c.original = to.origin()
	*t = c
	return nil
}

// TrackedList returns a tracked sequence whose element is a tracked copy
// of elem.
func TrackedList(elem *Type) *Type {
	return Track(ListOf(Track(elem)))
}

// TrackedObject returns a tracked anonymous object with one tracked
// placeholder property of type prop per name.
func TrackedObject(base *Type, names []string, prop *Type) *Type {
	o := NewObject("", base)
	for _, n := range names {
		o.AddProperty(n, Track(prop), true)
	}
	return Track(o)
}
