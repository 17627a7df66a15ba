package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/station-placer/model"
)

var (
	// ErrSystemExists indicates a star system with the same ID is stored.
	ErrSystemExists = errors.New("star system already exists")
	// ErrSystemNotFound indicates a requested star system is missing.
	ErrSystemNotFound = errors.New("star system not found")
	// ErrSystemInvalid indicates a star system failed validation.
	ErrSystemInvalid = errors.New("invalid star system")
	// ErrStationExists indicates a station ID is already used in the system.
	ErrStationExists = errors.New("station already exists")
	// ErrStationNotFound indicates a requested station is missing.
	ErrStationNotFound = errors.New("station not found")
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventSystemAdded EventType = iota
	EventSystemRemoved
	EventStationAdded
	EventStationMoved
	EventStationRemoved
)

func (t EventType) String() string {
	switch t {
	case EventSystemAdded:
		return "system_added"
	case EventSystemRemoved:
		return "system_removed"
	case EventStationAdded:
		return "station_added"
	case EventStationMoved:
		return "station_moved"
	case EventStationRemoved:
		return "station_removed"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers after a change has been applied.
type Event struct {
	Type     EventType
	SystemID string
	Station  model.Station // zero for system events
}

// Store is an in-memory, thread-safe store of star systems and their
// stations. Values handed in and out are copies; callers never share slices
// with the store.
type Store struct {
	mu sync.RWMutex

	systems map[string]*model.StarSystem

	subs   map[int]func(Event)
	nextID int
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		systems: make(map[string]*model.StarSystem),
		subs:    make(map[int]func(Event)),
	}
}

// AddSystem stores a copy of sys. Station IDs within the system must be
// unique and non-empty.
func (s *Store) AddSystem(sys model.StarSystem) error {
	if sys.ID == "" {
		return fmt.Errorf("%w: empty system ID", ErrSystemInvalid)
	}
	seen := make(map[string]bool, len(sys.Stations))
	for _, st := range sys.Stations {
		if st.ID == "" {
			return fmt.Errorf("%w: station with empty ID in %q", ErrSystemInvalid, sys.ID)
		}
		if seen[st.ID] {
			return fmt.Errorf("%w: %q in system %q", ErrStationExists, st.ID, sys.ID)
		}
		seen[st.ID] = true
	}

	s.mu.Lock()
	if _, exists := s.systems[sys.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSystemExists, sys.ID)
	}
	cp := sys.Clone()
	s.systems[sys.ID] = &cp
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventSystemAdded, SystemID: sys.ID})
	return nil
}

// RemoveSystem deletes a system and its stations.
func (s *Store) RemoveSystem(id string) error {
	s.mu.Lock()
	if _, ok := s.systems[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSystemNotFound, id)
	}
	delete(s.systems, id)
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventSystemRemoved, SystemID: id})
	return nil
}

// GetSystem returns a copy of the system with the given ID.
func (s *Store) GetSystem(id string) (model.StarSystem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sys, ok := s.systems[id]
	if !ok {
		return model.StarSystem{}, fmt.Errorf("%w: %q", ErrSystemNotFound, id)
	}
	return sys.Clone(), nil
}

// ListSystems returns copies of all systems ordered by ID.
func (s *Store) ListSystems() []model.StarSystem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]model.StarSystem, 0, len(s.systems))
	for _, sys := range s.systems {
		res = append(res, sys.Clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Counts reports how many systems and stations the store holds.
func (s *Store) Counts() (systems, stations int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sys := range s.systems {
		stations += len(sys.Stations)
	}
	return len(s.systems), stations
}

// AddStation appends a station to a system.
func (s *Store) AddStation(systemID string, st model.Station) error {
	if st.ID == "" {
		return fmt.Errorf("%w: station with empty ID", ErrSystemInvalid)
	}

	s.mu.Lock()
	sys, ok := s.systems[systemID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSystemNotFound, systemID)
	}
	if _, exists := sys.StationByID(st.ID); exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q in system %q", ErrStationExists, st.ID, systemID)
	}
	sys.Stations = append(sys.Stations, st)
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventStationAdded, SystemID: systemID, Station: st})
	return nil
}

// UpdateStationPosition moves an existing station.
func (s *Store) UpdateStationPosition(systemID, stationID string, pos model.Position) error {
	s.mu.Lock()
	sys, ok := s.systems[systemID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSystemNotFound, systemID)
	}
	idx := stationIndex(sys, stationID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q in system %q", ErrStationNotFound, stationID, systemID)
	}
	sys.Stations[idx].Position = pos
	event := Event{Type: EventStationMoved, SystemID: systemID, Station: sys.Stations[idx]}
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, event)
	return nil
}

// RemoveStation deletes a station from a system.
func (s *Store) RemoveStation(systemID, stationID string) error {
	s.mu.Lock()
	sys, ok := s.systems[systemID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSystemNotFound, systemID)
	}
	idx := stationIndex(sys, stationID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q in system %q", ErrStationNotFound, stationID, systemID)
	}
	removed := sys.Stations[idx]
	sys.Stations = append(sys.Stations[:idx:idx], sys.Stations[idx+1:]...)
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventStationRemoved, SystemID: systemID, Station: removed})
	return nil
}

// Subscribe registers a callback for store events. Callbacks run
// synchronously on the mutating goroutine, after the store lock is released.
// It returns an unsubscribe function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// snapshotSubs must be called with s.mu held.
func (s *Store) snapshotSubs() []func(Event) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}

func stationIndex(sys *model.StarSystem, id string) int {
	for i, st := range sys.Stations {
		if st.ID == id {
			return i
		}
	}
	return -1
}
