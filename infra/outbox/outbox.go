// Package outbox is the delivery ledger between the engine's event
// callbacks and the external broadcaster. Events are appended as NEW,
// flip to SENT when a publish attempt starts, and are deleted once
// the broker acknowledges. A restart resumes whatever never reached
// ACKED. This is feed bookkeeping only; the book itself is never
// rebuilt from here.
package outbox

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
)

// State of one outbox entry.
type State uint8

const (
	StateNew State = iota
	StateSent
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	default:
		return "UNKNOWN"
	}
}

// Record is one pending event.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// value encoding: [state:1][retries:4][lastAttempt:8][payload...]
const headerSize = 1 + 4 + 8

func encodeRecord(r *Record) []byte {
	buf := make([]byte, headerSize+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[headerSize:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (*Record, error) {
	if len(b) < headerSize {
		return nil, errors.New("outbox: record too short")
	}
	return &Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[headerSize:]...),
	}, nil
}

var (
	keyPrefix = []byte("evt/")
	keyEnd    = []byte("evt0") // first key past the prefix range
)

func keyFor(seq uint64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], seq)
	return key
}

// Outbox is a pebble-backed queue of unacknowledged events.
type Outbox struct {
	db  *pebble.DB
	seq atomic.Uint64
}

// Open opens (or creates) the outbox at dir and resumes the sequence
// counter from the highest stored key.
func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	o := &Outbox{db: db}

	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyEnd})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if iter.Last() && len(iter.Key()) == len(keyPrefix)+8 {
		o.seq.Store(binary.BigEndian.Uint64(iter.Key()[len(keyPrefix):]))
	}
	if err := iter.Close(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return o, nil
}

// Close closes the underlying store.
func (o *Outbox) Close() error {
	return o.db.Close()
}

// Append stores payload as a NEW entry and returns its sequence.
func (o *Outbox) Append(payload []byte) (uint64, error) {
	seq := o.seq.Add(1)
	rec := &Record{Seq: seq, State: StateNew, Payload: payload}
	if err := o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync); err != nil {
		return 0, err
	}
	return seq, nil
}

// MarkSent flips an entry to SENT and bumps its retry count.
func (o *Outbox) MarkSent(seq uint64) error {
	rec, err := o.get(seq)
	if err != nil {
		return err
	}
	rec.State = StateSent
	rec.Retries++
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// MarkAcked removes an acknowledged entry.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

// ScanPending visits every unacknowledged entry in sequence order.
func (o *Outbox) ScanPending(fn func(*Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyEnd})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != len(keyPrefix)+8 {
			continue
		}
		seq := binary.BigEndian.Uint64(key[len(keyPrefix):])
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (o *Outbox) get(seq uint64) (*Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return decodeRecord(seq, val)
}
