// Package keystore persists small key→string pairs for the client: the
// session token, the serialized user profile, and free-form UI draft
// state. The interface is synchronous so that callers can keep persisted
// state and in-memory state in lockstep within one transition.
package keystore

import "fmt"

// Well-known keys. The store imposes no schema beyond these.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Store is a synchronous key→string store.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// ErrKeyNotFound is returned by Get for an absent key.
type ErrKeyNotFound struct {
	Key string
}

func (e ErrKeyNotFound) Error() string {
	return fmt.Sprintf("keystore: key %q not found", e.Key)
}

// IsNotFound reports whether err is an absent-key error.
func IsNotFound(err error) bool {
	_, ok := err.(ErrKeyNotFound)
	return ok
}
