// Package d1 talks to the Cloudflare D1 query endpoint.
//
// It has three layers:
//   - wire types for the JSON request and response bodies
//   - Transport, which sends one logical request and retries transient failures
//   - Connector, which decides the retry budget for a statement and reports
//     every query to the registered query loggers
//
// Only statements starting with SELECT or WITH are ever retried. Anything else
// may have been applied before a failure was observed, so it is sent exactly once.
package d1
