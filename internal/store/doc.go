// Package store provides SQLite-backed durable storage for the workflow
// fact store and its provenance chain.
//
// The store holds three things:
//   - Triples: the current workflow graph (topology plus run-time state)
//   - Chain: the single-row chain tip and last commit sequence number
//   - Receipts: the append-only log of every transaction attempt
//
// # Commit Discipline
//
// Commit is a compare-and-swap on the chain tip. The delta, the tip update
// and the receipt insert happen inside one SQL transaction; if the tip has
// moved since the caller's snapshot the transaction is abandoned with a
// COMMIT_CONFLICT error and nothing changes. A rejected attempt never
// touches triples or tip: it only appends a receipt with committed = 0.
//
// # Deterministic Ordering
//
//   - Receipts are ordered by seq (logical clock), NEVER timestamps
//   - Triples are read in (subject, predicate, object) BINARY order
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: one writer, no SQLITE_BUSY
//
// Pragmas travel in the DSN. The schema lives in migrations/ and is applied
// by golang-migrate on Open.
package store
