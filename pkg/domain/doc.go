/*
Package domain contains the core domain models of the concierge engine.

It defines the read-only hotel catalog, the per-session conversation slots and the
request/response contract of a single dialogue turn. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - CatalogItem: a room, service, facility or local recommendation.
  - Catalog: the immutable, indexed collection of items plus governance rules.
  - ConversationState: trip slots (dates, guests, profile, intent) accumulated across turns.
  - TurnRequest / TurnResponse: the input and output of one dispatch.
  - Decision: the classified outcome of a turn.
  - Session: the caller-side envelope (state + bounded history) used by the outer adapters.
*/
package domain
