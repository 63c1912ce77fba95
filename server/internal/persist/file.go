package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lapboard/lapboard/server/internal/store"
)

// ErrMalformed is returned by Load when the data file exists but cannot be
// used.
var ErrMalformed = errors.New("persist: malformed data file")

// document is the on-disk shape of the data file.
type document struct {
	Cars  []store.Car      `json:"cars"`
	Times []store.LapTimes `json:"times"`
}

func encode(st store.State) ([]byte, error) {
	doc := document{Cars: st.Cars, Times: st.Times}
	if doc.Cars == nil {
		doc.Cars = []store.Car{}
	}
	if doc.Times == nil {
		doc.Times = []store.LapTimes{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// writeAtomic writes data to path through a sibling temp file and a rename.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("persist: open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("persist: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("persist: sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("persist: close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("persist: rename %q: %w", filepath.Base(tmp), err)
	}
	return nil
}

// Load reads the data file at path. A missing file yields an empty state and
// a nil error. Anything unreadable or structurally invalid yields an error
// wrapping ErrMalformed.
func Load(path string) (store.State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.State{}, nil
	}
	if err != nil {
		return store.State{}, fmt.Errorf("%w: read %q: %v", ErrMalformed, path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return store.State{}, fmt.Errorf("%w: parse %q: %v", ErrMalformed, path, err)
	}
	if err := validate(doc); err != nil {
		return store.State{}, fmt.Errorf("%w: %q: %v", ErrMalformed, path, err)
	}
	return toState(doc), nil
}

func validate(doc document) error {
	seen := make(map[string]bool, len(doc.Cars))
	for i, c := range doc.Cars {
		if c.ID == "" {
			return fmt.Errorf("cars[%d]: missing id", i)
		}
		if c.Name == "" {
			return fmt.Errorf("cars[%d]: missing name", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("cars[%d]: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true
	}
	for i, lt := range doc.Times {
		for j, ms := range lt.Times {
			if ms < 0 {
				return fmt.Errorf("times[%d].times[%d]: negative lap %d", i, j, ms)
			}
		}
	}
	return nil
}

// toState keeps car order from the file, attaches each car's lap list and
// drops lists that belong to no car.
func toState(doc document) store.State {
	laps := make(map[string][]int64, len(doc.Times))
	for _, lt := range doc.Times {
		laps[lt.CarID] = lt.Times
	}
	st := store.State{
		Cars:  make([]store.Car, 0, len(doc.Cars)),
		Times: make([]store.LapTimes, 0, len(doc.Cars)),
	}
	for _, c := range doc.Cars {
		if c.Color == "" {
			c.Color = store.DefaultColor
		}
		times := laps[c.ID]
		if times == nil {
			times = []int64{}
		}
		st.Cars = append(st.Cars, c)
		st.Times = append(st.Times, store.LapTimes{CarID: c.ID, Times: times})
	}
	return st
}
