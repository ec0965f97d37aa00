// Package journal implements an undo log that gives groups of in-memory
// mutations all-or-nothing semantics.
//
// Every journaled store records, before mutating, a closure that restores the
// previous value. A caller takes a Snapshot before a group of mutations and
// either Commits (dropping the undo entries) or reverts to the snapshot
// (running the undo entries in reverse order).
package journal

import "fmt"

// Journal is an undo log. It is not safe for concurrent use; callers
// serialize access (the vault holds its own lock around every operation).
type Journal struct {
	entries []func()
}

// New creates an empty journal.
func New() *Journal {
	return &Journal{}
}

// Record appends an undo closure.
func (j *Journal) Record(undo func()) {
	j.entries = append(j.entries, undo)
}

// Snapshot returns an identifier for the current position in the journal.
func (j *Journal) Snapshot() int {
	return len(j.entries)
}

// RevertToSnapshot undoes every mutation recorded after the snapshot was
// taken, newest first.
func (j *Journal) RevertToSnapshot(id int) {
	if id < 0 || id > len(j.entries) {
		panic(fmt.Sprintf("journal: invalid snapshot %d (len %d)", id, len(j.entries)))
	}
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i]()
		j.entries[i] = nil
	}
	j.entries = j.entries[:id]
}

// Commit drops all undo entries; the mutations become permanent.
func (j *Journal) Commit() {
	for i := range j.entries {
		j.entries[i] = nil
	}
	j.entries = j.entries[:0]
}

// Len is the number of pending undo entries.
func (j *Journal) Len() int {
	return len(j.entries)
}
