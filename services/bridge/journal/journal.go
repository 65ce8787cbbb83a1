// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package journal keeps a rolling record of bridge activity.
//
// Every mutation the dispatcher executes and every invalidation event
// the host emits lands here, keyed by time, with a TTL so the store
// stays bounded. The journal answers one question during a debugging
// session: what happened to this scene, in what order, and on whose
// request.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/SceneBridge/services/bridge/storage/badger"
)

// Entry kinds.
const (
	KindOperation = "operation"
	KindEvent     = "event"
)

// Entry is one journal record.
type Entry struct {
	// Kind distinguishes dispatcher operations from host events.
	Kind string `json:"kind"`

	// Time is when the entry was recorded.
	Time time.Time `json:"time"`

	// RequestID ties an operation back to its HTTP request. Empty for
	// host events.
	RequestID string `json:"request_id,omitempty"`

	// Operation is the route path for operations (e.g. /node/create) or
	// the event type for events (e.g. parm_changed).
	Operation string `json:"operation"`

	// Params carries a compact summary of the request or event.
	Params map[string]any `json:"params,omitempty"`

	// Code is the contract error code when the operation failed; empty
	// on success.
	Code string `json:"code,omitempty"`

	// DurationMS is the handler's wall time for operations.
	DurationMS float64 `json:"duration_ms,omitempty"`
}

// Config controls the journal store.
type Config struct {
	// Path is the directory for journal data. Ignored when InMemory.
	Path string

	// InMemory keeps the journal in RAM. Useful for testing.
	InMemory bool

	// TTL is how long entries survive before Badger expires them.
	// Default: 24h
	TTL time.Duration

	// Logger receives store-level warnings.
	// Default: slog.Default()
	Logger *slog.Logger
}

const (
	keyPrefix   = "j:"
	writeBuffer = 512
	batchSize   = 64
)

// Journal is a badger-backed, TTL-bounded activity log.
//
// Record never blocks: entries flow through a bounded buffer to one
// writer goroutine and are dropped with a warning on overflow, so the
// host thread and request handlers never wait on disk.
type Journal struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger

	entries   chan Entry
	flushCh   chan chan struct{}
	closeOnce sync.Once
	closeErr  error
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Open creates or reopens a journal.
//
// Errors:
//   - store open failures (bad path, lock held by another process)
func Open(cfg Config) (*Journal, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	storeCfg := badger.DefaultConfig()
	storeCfg.Path = cfg.Path
	storeCfg.InMemory = cfg.InMemory
	db, err := badger.OpenDB(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open journal store: %w", err)
	}

	j := &Journal{
		db:      db,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
		entries: make(chan Entry, writeBuffer),
		flushCh: make(chan chan struct{}),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go j.writeLoop()
	return j, nil
}

// Record queues one entry. A zero Time is stamped with the current
// time. Never blocks; drops with a warning when the buffer is full.
func (j *Journal) Record(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case j.entries <- e:
	case <-j.stopCh:
	default:
		j.logger.Warn("journal buffer full, dropping entry",
			"kind", e.Kind,
			"operation", e.Operation)
	}
}

// Flush blocks until every entry queued before the call is on disk.
func (j *Journal) Flush() {
	ack := make(chan struct{})
	select {
	case j.flushCh <- ack:
		<-ack
	case <-j.stopCh:
	}
}

// Recent returns up to limit entries, newest first. Pending writes are
// flushed so a poll after a mutation always sees it.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	j.Flush()

	out := make([]Entry, 0, limit)
	err := j.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek to the last possible journal key, then walk backward.
		seek := append([]byte(keyPrefix), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(keyPrefix)) && len(out) < limit; it.Next() {
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	return out, nil
}

// Close flushes pending entries and closes the store. Safe to call
// more than once.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		close(j.stopCh)
		<-j.doneCh
		j.closeErr = j.db.Close()
	})
	return j.closeErr
}

func (j *Journal) writeLoop() {
	defer close(j.doneCh)

	var seq uint32
	batch := make([]Entry, 0, batchSize)

	write := func() {
		if len(batch) == 0 {
			return
		}
		err := j.db.Update(func(txn *badgerdb.Txn) error {
			for _, e := range batch {
				key := j.key(e.Time, seq)
				seq++
				val, err := json.Marshal(e)
				if err != nil {
					return err
				}
				entry := badgerdb.NewEntry(key, val).WithTTL(j.ttl)
				if err := txn.SetEntry(entry); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			j.logger.Warn("journal write failed",
				"entries", len(batch),
				"error", err)
		}
		batch = batch[:0]
	}

	// absorb moves everything already queued into the batch so one
	// transaction covers a burst.
	absorb := func() {
		for len(batch) < batchSize {
			select {
			case e := <-j.entries:
				batch = append(batch, e)
			default:
				return
			}
		}
	}

	// drain empties the buffer completely, one batch at a time.
	drain := func() {
		for {
			absorb()
			if len(batch) == 0 {
				return
			}
			write()
		}
	}

	for {
		select {
		case e := <-j.entries:
			batch = append(batch, e)
			absorb()
			write()
		case ack := <-j.flushCh:
			drain()
			close(ack)
		case <-j.stopCh:
			drain()
			return
		}
	}
}

// key orders entries by timestamp with a sequence tiebreaker.
func (j *Journal) key(t time.Time, seq uint32) []byte {
	key := make([]byte, len(keyPrefix)+12)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], uint64(t.UnixNano()))
	binary.BigEndian.PutUint32(key[len(keyPrefix)+8:], seq)
	return key
}
