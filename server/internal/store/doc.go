// Package store holds the authoritative in-memory race state: registered cars
// in registration order and each car's ordered list of lap times.
//
// Every method is atomic with respect to every other; readers get copies, never
// the backing slices. Timing lists are addressed by position, and a position is
// only meaningful against the list as it is at the moment of the call.
package store
