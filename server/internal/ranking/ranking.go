// Package ranking derives the leaderboard from a store.State.
package ranking

import (
	"sort"

	"github.com/lapboard/lapboard/server/internal/store"
)

// Entry is one leaderboard row.
type Entry struct {
	Position int    `json:"position"`
	CarID    string `json:"carId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Best     int64  `json:"best"`
	Count    int    `json:"count"`
}

// Compute ranks every car that has at least one lap by its best (lowest) lap.
// Cars without laps are left out entirely. Equal bests keep registration
// order, so the car registered first ranks higher.
func Compute(st store.State) []Entry {
	laps := make(map[string][]int64, len(st.Times))
	for _, lt := range st.Times {
		laps[lt.CarID] = lt.Times
	}

	out := make([]Entry, 0, len(st.Cars))
	for _, c := range st.Cars {
		times := laps[c.ID]
		if len(times) == 0 {
			continue
		}
		out = append(out, Entry{
			CarID: c.ID,
			Name:  c.Name,
			Color: c.Color,
			Best:  best(times),
			Count: len(times),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Best < out[j].Best })
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

func best(times []int64) int64 {
	m := times[0]
	for _, t := range times[1:] {
		if t < m {
			m = t
		}
	}
	return m
}
