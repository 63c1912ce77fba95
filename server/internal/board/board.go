package board

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lapboard/lapboard/server/internal/laptime"
	"github.com/lapboard/lapboard/server/internal/metrics"
	"github.com/lapboard/lapboard/server/internal/ranking"
	"github.com/lapboard/lapboard/server/internal/store"
)

var (
	// ErrInvalidInput marks a malformed name, time or lap index.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an unknown car id.
	ErrNotFound = store.ErrNotFound

	// ErrOutOfRange marks a lap index outside the car's current lap list.
	ErrOutOfRange = store.ErrOutOfRange
)

// Snapshot is the full externally visible state at one instant.
type Snapshot struct {
	Cars    []store.Car      `json:"cars"`
	Times   []store.LapTimes `json:"times"`
	Ranking []ranking.Entry  `json:"ranking"`
}

// Recorded is the result of RecordTime.
type Recorded struct {
	CarID     string `json:"carId"`
	MS        int64  `json:"ms"`
	Formatted string `json:"formatted"`
}

// Saver schedules a durable write. *persist.Manager satisfies it.
type Saver interface {
	Schedule()
}

// Broadcaster pushes a snapshot to every observer. *ws.Hub satisfies it.
type Broadcaster interface {
	Broadcast(Snapshot)
}

// Service is the single writer over the race state.
type Service struct {
	mu    sync.Mutex // one mutation transaction at a time
	store *store.Store
	saver Saver
	bcast Broadcaster
	rec   metrics.Recorder
}

// New creates a Service over st. saver and bcast are wired later with
// SetSaver and SetBroadcaster when they depend on the Service themselves.
func New(st *store.Store, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{
		store: st,
		saver: nopSaver{},
		bcast: nopBroadcaster{},
		rec:   rec,
	}
}

// SetSaver installs the durable-write trigger.
func (s *Service) SetSaver(sv Saver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saver = sv
}

// SetBroadcaster installs the observer fan-out.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bcast = b
}

// Snapshot builds the current snapshot. The cars and lap lists come from one
// consistent read of the store.
func (s *Service) Snapshot() Snapshot {
	return buildSnapshot(s.store.State())
}

// HasCar reports whether id is a registered car.
func (s *Service) HasCar(id string) bool {
	return s.store.Has(id)
}

// CarCount returns the number of registered cars.
func (s *Service) CarCount() int {
	return s.store.Count()
}

// RegisterCar adds a car. name is trimmed and must not be empty; an empty
// color gets store.DefaultColor.
func (s *Service) RegisterCar(name, color string) (store.Car, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.rec.IncMutation(metrics.OpRegisterCar, metrics.ResultInvalidInput)
		return store.Car{}, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.store.Insert(name, color)
	s.commit(metrics.OpRegisterCar)
	return c, nil
}

// RemoveCar deletes a car and all its laps.
func (s *Service) RemoveCar(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Remove(id); err != nil {
		s.rec.IncMutation(metrics.OpRemoveCar, resultOf(err))
		return err
	}
	s.commit(metrics.OpRemoveCar)
	return nil
}

// RecordTime parses raw with laptime.Parse and appends it to the car's laps.
// An unknown car is reported before an invalid time.
func (s *Service) RecordTime(id string, raw any) (Recorded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Has(id) {
		s.rec.IncMutation(metrics.OpRecordTime, metrics.ResultNotFound)
		return Recorded{}, ErrNotFound
	}
	ms, err := laptime.Parse(raw)
	if err != nil {
		s.rec.IncMutation(metrics.OpRecordTime, metrics.ResultInvalidInput)
		return Recorded{}, fmt.Errorf("%w: time must be milliseconds, MM:SS.mmm or SS.mmm", ErrInvalidInput)
	}
	if err := s.store.Append(id, ms); err != nil {
		s.rec.IncMutation(metrics.OpRecordTime, resultOf(err))
		return Recorded{}, err
	}
	s.commit(metrics.OpRecordTime)
	return Recorded{CarID: id, MS: ms, Formatted: laptime.Format(ms)}, nil
}

// DeleteTime removes the lap at index from the car's current lap list. Laps
// after it shift down by one, so an index is only valid against the list it
// was read from if nothing else changed it in between.
func (s *Service) DeleteTime(id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.RemoveAt(id, index); err != nil {
		s.rec.IncMutation(metrics.OpDeleteTime, resultOf(err))
		return err
	}
	s.commit(metrics.OpDeleteTime)
	return nil
}

// Restore replaces the whole state, typically with the contents of the data
// file at startup, and broadcasts it. It does not schedule a save.
func (s *Service) Restore(st store.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Replace(st)
	s.bcast.Broadcast(s.Snapshot())
}

// commit runs the post-mutation triggers. Callers hold s.mu.
func (s *Service) commit(op metrics.Op) {
	s.rec.IncMutation(op, metrics.ResultOK)
	s.saver.Schedule()
	s.bcast.Broadcast(s.Snapshot())
}

func buildSnapshot(st store.State) Snapshot {
	snap := Snapshot{
		Cars:    st.Cars,
		Times:   st.Times,
		Ranking: ranking.Compute(st),
	}
	if snap.Cars == nil {
		snap.Cars = []store.Car{}
	}
	if snap.Times == nil {
		snap.Times = []store.LapTimes{}
	}
	return snap
}

func resultOf(err error) metrics.Result {
	switch {
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrOutOfRange):
		return metrics.ResultOutOfRange
	default:
		return metrics.ResultInvalidInput
	}
}

type nopSaver struct{}

func (nopSaver) Schedule() {}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(Snapshot) {}
