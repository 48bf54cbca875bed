package ports

import "context"

// KVCache is a byte store keyed by content hash.
// Entries are immutable once written; a miss is reported with ok == false, not an error.
type KVCache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}
