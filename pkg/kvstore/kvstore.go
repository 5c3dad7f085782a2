package kvstore

import "errors"

var (
	ErrKeyEmpty    = errors.New("key is empty")
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyExists   = errors.New("key already exists")
)

// KVPair is a raw key/value as stored, returned by List.
type KVPair struct {
	Key   string
	Value []byte
}
