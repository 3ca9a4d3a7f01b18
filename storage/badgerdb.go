package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog/log"
)

// BadgerDB implements KeyValue and represents the application's connection
// to BadgerDB.
type BadgerDB struct {
	connection *badger.DB
	keyTTL     time.Duration // TTL for each key in the db. Zero means none.

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewBadgerDB initializes the BadgerDB embedded database. It is up to the
// caller to close the database with Close(). If conf.CleanupInterval is
// positive, Cleanup also runs on that interval until Close.
func NewBadgerDB(conf *KVConfig) (*BadgerDB, error) {
	// Badger logs to stderr by default, which is noisy for a CLI that sends
	// one message.
	// See: https://dgraph.io/docs/badger/get-started/#opening-a-database
	db, err := badger.Open(badger.DefaultOptions(conf.StorageDirPath).WithLogger(nil))

	if err != nil {
		return nil, fmt.Errorf("can't open the db connection: %v", err)
	}

	bdb := &BadgerDB{
		connection: db,
		keyTTL:     conf.KeyTTLDuration,
		stop:       make(chan struct{}),
	}
	if conf.CleanupInterval > 0 {
		bdb.wg.Add(1)
		go bdb.cleanupLoop(conf.CleanupInterval)
	}
	return bdb, nil
}

func (db *BadgerDB) cleanupLoop(interval time.Duration) {
	defer db.wg.Done()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-db.stop:
			return
		case <-t.C:
			if err := db.Cleanup(); err != nil {
				log.Error().Err(err).Msg("error cleaning up the database")
			}
		}
	}
}

// Put upserts an entry
func (db *BadgerDB) Put(entry KVEntry) error {
	err := db.connection.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(entry.Key, entry.Value)
		if db.keyTTL > 0 {
			e = e.WithTTL(db.keyTTL)
		}
		err := txn.SetEntry(e)
		if err != nil {
			return fmt.Errorf("could not set the KV pair: %v", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %v", err)
	}
	return nil
}

// Read returns an entry by key.
func (db *BadgerDB) Read(key []byte) (KVEntry, error) {
	var val []byte
	// See: https://dgraph.io/docs/badger/get-started/#read-only-transactions
	err := db.connection.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)

		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("can't retrieve a value for the key provided: %v", err)
		}

		// We copy values rather than return them directly because item.Value()
		// is considered undefined behavior outside a transaction.
		// https://godoc.org/github.com/dgraph-io/badger#Item.Value
		val, err = item.ValueCopy(nil)

		if err != nil {
			return fmt.Errorf("can't copy the value from the database: %v", err)
		}
		return nil
	})
	if err != nil {
		return KVEntry{}, err
	}
	return KVEntry{
		Key:   key,
		Value: val,
	}, nil
}

// Cleanup performs BadgerDB's garbage collection routine with the
// recommended discardRatio.
//
// See: https://pkg.go.dev/github.com/dgraph-io/badger/v3#DB.RunValueLogGC
//
// This is the only time old records are actually removed, so make sure you're
// setting TTLs for records!
func (db *BadgerDB) Cleanup() error {
	var discardRatio float64 = .5
	err := db.connection.RunValueLogGC(discardRatio)
	// If the GC determines that it can't rewrite anything, don't worry the
	// caller--just skip it
	if err == nil || errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close tears down the database connection so Badger flushes to disk. You
// should defer this.
func (db *BadgerDB) Close() error {
	db.closeOnce.Do(func() { close(db.stop) })
	db.wg.Wait()

	if err := db.connection.Close(); err != nil {
		return fmt.Errorf("could not close the database: %v", err)
	}
	return nil
}
