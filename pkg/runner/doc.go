/*
Package runner implements the interactive conversation loop for the concierge engine.

It bridges the engine's turn API and a terminal or a structured stream. The runner
keeps the conversation in a session.Manager, reads guest messages through a
pluggable IOHandler and passes every turn through a middleware chain.

# Key Components

  - Runner: reads input, runs the turn under the session lock, writes the reply.
  - TextHandler: interactive CLI; numbered menus, a number picks an entry.
  - JSONHandler: JSON-Lines in and out, for scripted clients.
  - SanitizeInput: size limit, UTF-8 check and control character stripping,
    shared by every adapter that accepts guest text.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithMiddleware(runner.LoggingMiddleware(logger)),
	)
	if _, err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}
*/
package runner
