package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps a Badger database and hands out serializable transactions.
// Entity values are stored as JSON under prefixed string keys.
type Store struct {
	db     *badger.DB
	prefix string
}

func Open(dir string, prefix string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, prefix: prefix}, nil
}

// OpenInMemory opens a store with no backing files. Used by tests.
func OpenInMemory(prefix string) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, prefix: prefix}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Update runs fn inside a single read-write transaction. Either every write
// fn performed is committed, or none are: returning an error discards all of
// them. Engine operations rely on this as their all-or-nothing boundary.
func (s *Store) Update(fn func(tx *Txn) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&Txn{txn: txn, prefix: s.prefix})
	})
}

// View runs fn inside a read-only transaction.
func (s *Store) View(fn func(tx *Txn) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&Txn{txn: txn, prefix: s.prefix})
	})
}

// List returns all pairs under the given key prefix.
func (s *Store) List(prefix string) ([]*KVPair, error) {
	if prefix == "" {
		return nil, fmt.Errorf("prefix is empty")
	}
	searchPrefix := prefix
	if s.prefix != "" {
		searchPrefix = s.prefix + "/" + prefix
	}

	result := make([]*KVPair, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(searchPrefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, &KVPair{
				Key:   string(k),
				Value: v,
			})
		}
		return nil
	})
	return result, err
}

// Txn is a typed view over one Badger transaction.
type Txn struct {
	txn    *badger.Txn
	prefix string
}

func (t *Txn) fullKey(k string) (string, error) {
	if k == "" {
		return "", ErrKeyEmpty
	}
	if t.prefix != "" {
		return t.prefix + "/" + k, nil
	}
	return k, nil
}

// Get unmarshals the value at key into out. Returns false if the key does
// not exist.
func (t *Txn) Get(key string, out any) (bool, error) {
	k, err := t.fullKey(key)
	if err != nil {
		return false, err
	}

	item, err := t.txn.Get([]byte(k))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(val, out)
}

// Set writes value at key, creating or replacing it.
func (t *Txn) Set(key string, value any) error {
	k, err := t.fullKey(key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return t.txn.Set([]byte(k), data)
}

// Insert writes value at key only if the key does not already exist.
// Gives entities their create-exactly-once semantics.
func (t *Txn) Insert(key string, value any) error {
	k, err := t.fullKey(key)
	if err != nil {
		return err
	}
	if _, err := t.txn.Get([]byte(k)); err == nil {
		return ErrKeyExists
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return t.txn.Set([]byte(k), data)
}

func (t *Txn) Delete(key string) error {
	k, err := t.fullKey(key)
	if err != nil {
		return err
	}
	return t.txn.Delete([]byte(k))
}
