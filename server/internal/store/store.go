package store

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// DefaultColor is assigned to cars registered without a color.
const DefaultColor = "#444"

var (
	// ErrNotFound is returned for an unknown car id.
	ErrNotFound = errors.New("car not found")

	// ErrOutOfRange is returned when a lap index is not a current position.
	ErrOutOfRange = errors.New("lap index out of range")
)

// Car is one registered competitor.
type Car struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// LapTimes is the ordered lap list of one car, in milliseconds.
type LapTimes struct {
	CarID string  `json:"carId"`
	Times []int64 `json:"times"`
}

// State is a point-in-time copy of the store. Cars and Times are both in
// registration order and Times has exactly one entry per car.
type State struct {
	Cars  []Car
	Times []LapTimes
}

// Store is a thread-safe in-memory car and lap store.
type Store struct {
	mu    sync.RWMutex
	order []string // car ids in registration order
	cars  map[string]Car
	times map[string][]int64
	newID func() string // injectable for deterministic tests
}

// New creates an empty Store that issues UUIDv4 car ids.
func New() *Store {
	return &Store{
		cars:  make(map[string]Car),
		times: make(map[string][]int64),
		newID: uuid.NewString,
	}
}

// Insert registers a new car with a freshly issued id and an empty lap list.
// Callers are responsible for validating name.
func (s *Store) Insert(name, color string) Car {
	if color == "" {
		color = DefaultColor
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for {
		if _, taken := s.cars[id]; !taken {
			break
		}
		id = s.newID()
	}
	c := Car{ID: id, Name: name, Color: color}
	s.cars[id] = c
	s.times[id] = []int64{}
	s.order = append(s.order, id)
	return c
}

// Remove deletes the car and its lap list.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[id]; !ok {
		return ErrNotFound
	}
	delete(s.cars, id)
	delete(s.times, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Has reports whether id is a registered car.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cars[id]
	return ok
}

// Get returns the car with the given id.
func (s *Store) Get(id string) (Car, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cars[id]
	return c, ok
}

// Cars returns all cars in registration order.
func (s *Store) Cars() []Car {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Car, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.cars[id])
	}
	return out
}

// Times returns a copy of the lap list for id. Unknown ids read as empty.
func (s *Store) Times(id string) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64{}, s.times[id]...)
}

// Append adds ms to the end of the car's lap list.
func (s *Store) Append(id string, ms int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[id]; !ok {
		return ErrNotFound
	}
	s.times[id] = append(s.times[id], ms)
	return nil
}

// RemoveAt deletes the lap at index from the car's current lap list. Later
// laps shift down by one.
func (s *Store) RemoveAt(id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[id]; !ok {
		return ErrNotFound
	}
	laps := s.times[id]
	if index < 0 || index >= len(laps) {
		return ErrOutOfRange
	}
	s.times[id] = append(laps[:index:index], laps[index+1:]...)
	return nil
}

// Count returns the number of registered cars.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cars)
}

// State returns a consistent copy of all cars and lap lists.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		Cars:  make([]Car, 0, len(s.order)),
		Times: make([]LapTimes, 0, len(s.order)),
	}
	for _, id := range s.order {
		st.Cars = append(st.Cars, s.cars[id])
		st.Times = append(st.Times, LapTimes{
			CarID: id,
			Times: append([]int64{}, s.times[id]...),
		})
	}
	return st
}

// Replace discards the current contents and loads st. Lap lists for ids that
// are not in st.Cars are ignored; cars without a lap list start empty.
func (s *Store) Replace(st State) {
	laps := make(map[string][]int64, len(st.Times))
	for _, lt := range st.Times {
		laps[lt.CarID] = lt.Times
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = make([]string, 0, len(st.Cars))
	s.cars = make(map[string]Car, len(st.Cars))
	s.times = make(map[string][]int64, len(st.Cars))
	for _, c := range st.Cars {
		if c.Color == "" {
			c.Color = DefaultColor
		}
		if _, dup := s.cars[c.ID]; !dup {
			s.order = append(s.order, c.ID)
		}
		s.cars[c.ID] = c
		s.times[c.ID] = append([]int64{}, laps[c.ID]...)
	}
}
