// Package logging provides concrete implementations of the d1sql.Logger interface
// and secret masking for anything that may end up in a log line.
//
// Available implementations:
//   - ConsoleLogger: Writes formatted, masked messages to stderr (or any writer)
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
