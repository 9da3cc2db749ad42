// Package service hosts the matching engine facade: the only write
// entry point into the books. It validates submissions, assigns
// identity and sequence, serializes per-symbol matching, fans trade
// and book-update events out to subscribers, and keeps counters.
package service
