package middleware

import "github.com/aretw0/conserje/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// CacheMiddleware allows wrapping a KVCache to add behavior.
type CacheMiddleware func(ports.KVCache) ports.KVCache
