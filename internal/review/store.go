// Package review owns the live field list produced by one extraction
// and the derived views the review surface reads from it. The canonical
// list keeps extraction insertion order forever; sorting and filtering
// are computed fresh on every read and never written back.
package review

import (
	"fmt"
	"sort"
	"sync"

	"github.com/inkform/inkform/internal/field"
)

// Filter selects which fields the review view shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterAttention Filter = "attention"
)

// Entry pairs a field with its position in the canonical list so
// callers can address mutations after sorting.
type Entry struct {
	Index int         `json:"index"`
	Field field.Field `json:"field"`
}

// Store is the single owner of the mutable field list. All mutations
// replace exactly one element and are atomic with respect to reads.
type Store struct {
	mu       sync.Mutex
	fields   []field.Field
	filter   Filter
	onChange []func()
}

// NewStore creates a store over the extraction result. The slice is
// copied; the caller's slice is not retained.
func NewStore(fields []field.Field) *Store {
	s := &Store{
		fields: make([]field.Field, len(fields)),
		filter: FilterAll,
	}
	copy(s.fields, fields)
	return s
}

// OnChange registers a hook invoked after every mutation, outside the
// store lock. The preview scheduler hangs off this.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Len returns the number of fields in the canonical list.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fields)
}

// Fields returns a snapshot of the canonical list in insertion order.
func (s *Store) Fields() []field.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]field.Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Edit replaces the value of one field, marking it manually verified.
func (s *Store) Edit(index int, value string) error {
	return s.replace(index, func(f field.Field) (field.Field, error) {
		return field.Edit(f, value), nil
	})
}

// ToggleVerified flips the user confirmation flag of one field.
func (s *Store) ToggleVerified(index int) error {
	return s.replace(index, func(f field.Field) (field.Field, error) {
		return field.ToggleVerified(f), nil
	})
}

// ApplySuggestion accepts the machine suggestion of one field.
func (s *Store) ApplySuggestion(index int) error {
	return s.replace(index, func(f field.Field) (field.Field, error) {
		return field.ApplySuggestion(f), nil
	})
}

// Move repositions one coordinate-addressed field.
func (s *Store) Move(index, x, y int) error {
	return s.replace(index, func(f field.Field) (field.Field, error) {
		return field.MoveCoordinates(f, x, y)
	})
}

// replace swaps a single element of the canonical list. All other
// elements are left in place so downstream change detection stays cheap.
func (s *Store) replace(index int, transform func(field.Field) (field.Field, error)) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.fields) {
		s.mu.Unlock()
		return fmt.Errorf("field index %d out of range [0,%d)", index, len(s.fields))
	}
	next, err := transform(s.fields[index])
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.fields[index] = next
	hooks := s.onChange
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// SetFilter switches the active review filter.
func (s *Store) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f != FilterAttention {
		f = FilterAll
	}
	s.filter = f
}

// Filter returns the active review filter.
func (s *Store) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SortedView returns all fields in display order: unresolved issues
// first (needs attention and not verified), then unverified before
// verified, ties broken by insertion index. The canonical order is
// never changed by this.
func (s *Store) SortedView() []Entry {
	s.mu.Lock()
	entries := make([]Entry, len(s.fields))
	for i, f := range s.fields {
		entries[i] = Entry{Index: i, Field: f}
	}
	s.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return displayRank(entries[i].Field) < displayRank(entries[j].Field)
	})
	return entries
}

// Visible returns the display-ordered fields that pass the active
// filter. Under the attention filter a verified field drops out even if
// its machine validation is still non-valid: the explicit user override
// is authoritative for review purposes.
func (s *Store) Visible() []Entry {
	filter := s.Filter()
	view := s.SortedView()
	if filter != FilterAttention {
		return view
	}

	out := make([]Entry, 0, len(view))
	for _, e := range view {
		if e.Field.NeedsAttention() && !e.Field.Verified {
			out = append(out, e)
		}
	}
	return out
}

// VerifiedCount returns how many fields the user has confirmed and the
// total field count.
func (s *Store) VerifiedCount() (verified, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.fields {
		if f.Verified {
			verified++
		}
	}
	return verified, len(s.fields)
}

// AttentionCount returns how many fields still need attention, i.e.
// are non-valid and not user-verified.
func (s *Store) AttentionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.fields {
		if f.NeedsAttention() && !f.Verified {
			n++
		}
	}
	return n
}

// displayRank orders fields for review: 0 for open issues, 1 for
// anything else unverified, 2 for verified.
func displayRank(f field.Field) int {
	switch {
	case f.NeedsAttention() && !f.Verified:
		return 0
	case !f.Verified:
		return 1
	default:
		return 2
	}
}
