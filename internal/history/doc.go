// Package history keeps a SQLite ledger of completed queue commits.
//
// The ledger lives next to the queue file and answers "what did we queue,
// when, and from where" after the daemon has already drained the entries.
// It is written after the queue lock is released and is never consulted by
// the commit path, so a missing or broken ledger cannot block producers.
//
// Schema changes bump schemaVersion; operators delete the database to adopt
// a new schema.
package history
