/*
store.go - Key-value persistence interface

PURPOSE:
  Defines the boundary between the engine and whatever holds its data on
  disk. The engine only ever needs a string-keyed store of JSON values:
  wage configuration, session history, the in-flight session and the
  certification plans each live under one key.

KEY INTERFACE:
  Store: Get/Set for strings, JSON objects and JSON arrays, plus Remove
         and Clear. Every method can fail and must report it.

MISSING KEYS:
  Reads of an absent key return ErrKeyNotFound so callers can distinguish
  "never written" from "written as empty".

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite table (production)
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  raw, err := s.GetMap(ctx, "currentSession")
  if errors.Is(err, generic.ErrKeyNotFound) {
      // idle
  }

SEE ALSO:
  - store/gateway.go: Maps keys to typed entities
*/
package generic

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrKeyNotFound is returned by Store reads when the key was never set or was removed.
var ErrKeyNotFound = errors.New("key not found")

// Store is the abstract persistence gateway.
// Map and list values are kept as raw JSON so each entity can be decoded by
// its own schema-validated codec.
type Store interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error

	// GetMap returns a JSON object.
	GetMap(ctx context.Context, key string) (json.RawMessage, error)
	SetMap(ctx context.Context, key string, value json.RawMessage) error

	// GetList returns a JSON array.
	GetList(ctx context.Context, key string) (json.RawMessage, error)
	SetList(ctx context.Context, key string, value json.RawMessage) error

	// Remove deletes a key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Clear deletes every key.
	Clear(ctx context.Context) error
}

// IsJSONObject reports whether raw is a JSON object.
func IsJSONObject(raw json.RawMessage) bool {
	var m map[string]json.RawMessage
	return json.Unmarshal(raw, &m) == nil && m != nil
}

// IsJSONArray reports whether raw is a JSON array.
func IsJSONArray(raw json.RawMessage) bool {
	var a []json.RawMessage
	return json.Unmarshal(raw, &a) == nil && a != nil
}
