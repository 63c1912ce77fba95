// Package board is the write path of lapboard. Service owns the store and runs
// each mutation as one transaction: change the store, schedule a save, then
// broadcast the new snapshot. Failed mutations change nothing and trigger
// neither.
//
// Lap removal is positional. DeleteTime's index refers to the car's lap list
// as it is when the call runs, so two clients deleting "index 1" one after the
// other remove two different laps.
package board
