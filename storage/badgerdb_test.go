package storage

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// We test all BadgerDB read/write utility functions here for a simple case.
// All DB operations are wrapped in a helper for use by the application, so we
// use these helpers rather than ones defined just for tests.
func TestSimpleBadgerDBReadWrite(t *testing.T) {
	dir := t.TempDir()
	conf := KVConfig{
		StorageDirPath: dir,
		// Set these durations to a very long value since we don't expect
		// keys to be cleaned up during the test
		KeyTTLDuration: time.Duration(10) * time.Minute,
	}
	db, err := NewBadgerDB(&conf)

	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	kv := KVEntry{
		Key:   []byte("Hello"),
		Value: []byte("World"),
	}

	err = db.Put(kv)

	if err != nil {
		t.Fatal(err)
	}

	kv2, err := db.Read(kv.Key)

	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(kv, kv2) {
		t.Fatalf("newly created and newly read KV entries do not match: %+v vs. %+v", kv, kv2)
	}

	if err := db.Cleanup(); err != nil {
		t.Errorf("unexpected cleanup error: %v", err)
	}
}

func TestBadgerDBReadMissingKey(t *testing.T) {
	db, err := NewBadgerDB(&KVConfig{StorageDirPath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, err = db.Read([]byte("nothing here"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound but got %v", err)
	}
}

func TestNoOpDB(t *testing.T) {
	var db KeyValue = &NoOpDB{}

	if err := db.Put(KVEntry{Key: []byte("k"), Value: []byte("v")}); !errors.Is(err, ErrNoOp) {
		t.Errorf("expected ErrNoOp from Put but got %v", err)
	}
	if _, err := db.Read([]byte("k")); !errors.Is(err, ErrNoOp) {
		t.Errorf("expected ErrNoOp from Read but got %v", err)
	}
	if err := db.Cleanup(); err != nil {
		t.Errorf("unexpected Cleanup error: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("unexpected Close error: %v", err)
	}
}

func TestBadgerDBBackgroundCleanup(t *testing.T) {
	db, err := NewBadgerDB(&KVConfig{
		StorageDirPath:  t.TempDir(),
		KeyTTLDuration:  time.Minute,
		CleanupInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	kv := KVEntry{Key: []byte("k"), Value: []byte("v")}
	if err := db.Put(kv); err != nil {
		t.Fatal(err)
	}
	// Let the ticker fire a few times while the db is in use.
	time.Sleep(20 * time.Millisecond)

	got, err := db.Read(kv.Key)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(kv, got) {
		t.Errorf("expected %+v but got %+v", kv, got)
	}

	// Close stops the cleanup goroutine before closing the connection.
	if err := db.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}
