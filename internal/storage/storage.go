// Package storage provides the key-value persistence layer backing the
// settings store and the transcript history.
package storage

import "context"

// KV is the persistence collaborator contract: keyed raw records with
// whole-record replacement semantics. Implementations are only required to
// be read-after-write consistent within the process that wrote.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, records map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
}
