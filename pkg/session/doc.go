/*
Package session keeps the caller-side conversation envelope between turns.

The dialogue engine is stateless: every turn carries its own history and slots.
Outer adapters (the HTTP session endpoint and the chat REPL) use a Manager to
load the envelope, run one turn, bound the history and store the result, with
per-session locking so two turns of the same conversation never interleave.
*/
package session
