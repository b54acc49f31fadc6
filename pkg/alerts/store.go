// Package alerts evaluates the balance and consumption rules and keeps the
// household's alert collection.
package alerts

import (
	"strconv"

	"github.com/contaluz/contaluz/pkg/types"
)

// Store is the alert collection. Alerts are keyed by id and listed most recent
// first. It is not safe for concurrent use.
type Store struct {
	byID  map[string]*types.Alert
	order []string // oldest first
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		byID: make(map[string]*types.Alert),
	}
}

// Has reports whether an alert with id exists, read or not.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// InsertRule inserts a rule alert unless one with the same id already exists.
// It reports whether the alert was inserted.
func (s *Store) InsertRule(a types.Alert) bool {
	if s.Has(a.ID) {
		return false
	}
	s.put(a)
	return true
}

// InsertEvent always inserts an event alert as unread. If the id is taken a
// numeric suffix is appended. The stored alert is returned.
func (s *Store) InsertEvent(a types.Alert) types.Alert {
	base := a.ID
	for n := 1; s.Has(a.ID); n++ {
		a.ID = base + "-" + strconv.Itoa(n)
	}
	a.IsRead = false
	s.put(a)
	return a
}

func (s *Store) put(a types.Alert) {
	s.byID[a.ID] = &a
	s.order = append(s.order, a.ID)
}

// MarkRead marks an alert as read. It reports whether the alert exists.
func (s *Store) MarkRead(id string) bool {
	a, ok := s.byID[id]
	if !ok {
		return false
	}
	a.IsRead = true
	return true
}

// Remove deletes an alert. It reports whether the alert existed.
func (s *Store) Remove(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every alert.
func (s *Store) Clear() {
	s.byID = make(map[string]*types.Alert)
	s.order = nil
}

// List returns a copy of the alerts, most recent first.
func (s *Store) List() []types.Alert {
	list := make([]types.Alert, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		list = append(list, *s.byID[s.order[i]])
	}
	return list
}

// Unread returns the unread alerts, most recent first.
func (s *Store) Unread() []types.Alert {
	var list []types.Alert
	for i := len(s.order) - 1; i >= 0; i-- {
		if a := s.byID[s.order[i]]; !a.IsRead {
			list = append(list, *a)
		}
	}
	return list
}

// Len returns the number of alerts.
func (s *Store) Len() int {
	return len(s.order)
}
