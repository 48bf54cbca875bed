/*
Package conserje is a turn-processing and dialogue-policy engine for a hotel concierge.

Given one guest message plus the accumulated trip context (dates, party size,
travel profile, intent) the engine selects the relevant catalog entries (rooms,
services, facilities, local recommendations) and produces a short reply that
does not repeat itself, suggests next actions and, when needed, redirects to the
booking channel or to human staff.

# Architecture

The engine is stateless between turns. Each TurnRequest carries its history,
its slots and the item in focus; each TurnResponse returns the merged slots and
the new focus. Callers that need conversations on the server side use
pkg/session, which stores that envelope and serializes turns per session.

External capabilities are ports (pkg/ports): a CatalogLoader, an optional
Completer and Embedder, and two KV caches. Every capability failure degrades to
a deterministic path (keyword ranking, template replies, fixed questions).

# Usage

	eng, err := conserje.New("./catalogo.yaml")
	if err != nil {
		log.Fatal(err)
	}

	resp, err := eng.Turn(ctx, domain.TurnRequest{Message: "Habitaciones"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(resp.Reply)
	for _, entry := range resp.Menu {
		fmt.Println("-", entry.Label)
	}

A directory path is opened as a Loam repository of markdown documents instead
of a single file. Use WithCompleter and WithEmbedder (see pkg/adapters/openai)
to enable generation and semantic ranking, and WithMetrics to export
Prometheus metrics.
*/
package conserje
