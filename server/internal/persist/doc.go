// Package persist keeps the race state in a JSON data file.
//
// Manager.Schedule coalesces bursts of mutations: each call cancels the
// pending write and re-arms the timer, so one write happens once mutations
// pause for the debounce window. A write serializes {cars, times} to
// "<path>.tmp" and renames it over path, so readers of path never see a
// partial file. Write failures are logged and counted; the in-memory state
// stays authoritative.
//
// Load reads the file once at startup. A missing file is an empty state; a
// malformed one returns ErrMalformed and the caller starts empty.
package persist
