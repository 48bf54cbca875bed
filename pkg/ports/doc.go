/*
Package ports defines the driven ports (interfaces) of the concierge engine.

These interfaces decouple the dialogue core from external implementations, allowing
the engine to run against different catalog sources, language-model backends and
cache stores, and letting tests substitute deterministic fakes.

# Key Interfaces

  - CatalogLoader: loads the read-only catalog once at startup (file, loam, memory).
  - Completer: the fallible "complete text given a prompt" capability.
  - Embedder: the fallible "embed text into vectors" capability.
  - KVCache: content-addressed byte store backing the embedding and item-text caches.
  - SessionStore: persistence for the outer session layer (HTTP sessions, chat REPL).
*/
package ports
