package storage

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Read when a key has no value, including when
// its TTL has expired.
var ErrNotFound = errors.New("key not found")

// KVConfig contains settings specific to BadgerDB connections
type KVConfig struct {
	StorageDirPath string        `yaml:"storageDir" json:"storageDir"`
	KeyTTLDuration time.Duration `yaml:"keyTTL" json:"keyTTL"`
	// How often an open BadgerDB runs Cleanup in the background. Zero
	// disables the background run.
	CleanupInterval time.Duration `yaml:"cleanupInterval" json:"cleanupInterval"`
}

// UnmarshalYAML parses a KVConfig. storageDir and keyTTL are required.
// cleanupInterval is optional; when it is missing or zero, records are only
// cleaned up when the caller runs Cleanup.
func (c *KVConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("can't parse the storage config: %v", err)
	}

	p, ok := v["storageDir"]
	if !ok || p == "" {
		return errors.New("the storage config must include a storageDir")
	}

	ttl, ok := v["keyTTL"]
	if !ok {
		return errors.New("the storage config must include a keyTTL")
	}
	td, err := time.ParseDuration(ttl)
	if err != nil {
		return fmt.Errorf("can't parse keyTTL as a duration: %v", err)
	}

	var cd time.Duration
	if ci, ok := v["cleanupInterval"]; ok {
		cd, err = time.ParseDuration(ci)
		if err != nil {
			return fmt.Errorf("can't parse cleanupInterval as a duration: %v", err)
		}
		if cd < 0 {
			return errors.New("cleanupInterval can't be negative")
		}
	}

	c.StorageDirPath = p
	c.KeyTTLDuration = td
	c.CleanupInterval = cd
	return nil
}

// KeyValue exposes a common interface for performing CRUD operations on an
// underlying storage layer.
//
// Implementations need to include connection logic in code to initialize
// a Store.
type KeyValue interface {
	// Replace the value of an entry or create a new one if it doesn't exist
	Put(KVEntry) error
	// Return an entry given its key. Returns ErrNotFound if there is none.
	Read(key []byte) (KVEntry, error)
	// Cleanup performs routine deletion of old records. We assign
	// TTLs to KV pairs and delete them periodically.
	Cleanup() error
	// Drain/tear down the connection, or something analogous for
	// an embedded database
	Close() error
}

// KVEntry is what we'll write to and read from the KV store
type KVEntry struct {
	Key   []byte
	Value []byte
}
