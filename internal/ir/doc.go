// Package ir provides the canonical value types of the workflow kernel.
//
// This package contains type definitions, canonical serialization and
// hashing only. All other internal packages import ir; ir imports nothing
// internal. This keeps the data model the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere in run-time data - use int64 for numbers
//   - Deltas are values: bounded at construction, never mutated afterwards
//   - Every hash is computed over RFC 8785 canonical JSON
//   - Receipts are ordered by commit sequence number, never wall-clock time
//   - Verbs and their parameters are closed enumerations
package ir
