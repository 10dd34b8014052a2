// Package frontier implements the shared crawl frontier: entry records,
// the timestamp-ordered unassigned/assigned indices, id allocation and the
// optimistic claim protocol that lets independent workers take the oldest
// unassigned entry without double assignment.
//
// All state lives in the shared store. Workers hold no entry in memory
// beyond a single claim attempt, and every transition of an entry from
// unassigned to assigned goes through a watched transaction.
package frontier
