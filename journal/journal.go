// Package journal keeps a record of every message the application has sent,
// keyed by the id of the Composer that sent it.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ptgott/simplemail/storage"
)

const keyPrefix = "sent/"

// ErrDisabled is returned by Lookup when the journal is backed by a
// storage.NoOpDB.
var ErrDisabled = errors.New("the journal is disabled")

// Record describes one sent message.
type Record struct {
	ID         string    `json:"id"`
	MessageID  string    `json:"messageId"`
	From       string    `json:"from"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject"`
	Parts      int       `json:"parts"`
	SentAt     time.Time `json:"sentAt"`
}

// Journal writes Records to a storage.KeyValue.
type Journal struct {
	kv storage.KeyValue
}

// New returns a Journal backed by kv. The caller still owns kv and must
// close it.
func New(kv storage.KeyValue) *Journal {
	return &Journal{kv: kv}
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

// Record stores r under r.ID. Writing to a storage.NoOpDB is not an error.
func (j *Journal) Record(r Record) error {
	if r.ID == "" {
		return errors.New("can't record a message without an id")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("can't encode the journal record: %v", err)
	}

	err = j.kv.Put(storage.KVEntry{Key: key(r.ID), Value: b})
	if errors.Is(err, storage.ErrNoOp) {
		log.Debug().Str("id", r.ID).Msg("journal disabled: not recording the message")
		return nil
	}
	if err != nil {
		return fmt.Errorf("can't store the journal record: %v", err)
	}
	return nil
}

// Lookup returns the Record stored for id. The error wraps
// storage.ErrNotFound if there is none.
func (j *Journal) Lookup(id string) (Record, error) {
	e, err := j.kv.Read(key(id))
	if errors.Is(err, storage.ErrNoOp) {
		return Record{}, ErrDisabled
	}
	if err != nil {
		return Record{}, fmt.Errorf("can't read the journal record for %v: %w", id, err)
	}

	var r Record
	if err := json.Unmarshal(e.Value, &r); err != nil {
		return Record{}, fmt.Errorf("can't decode the journal record for %v: %v", id, err)
	}
	return r, nil
}
