// Package storage persists the last-notified best score.
//
// Drivers:
//   - "file": a text file holding one float literal
//   - "sqlite": a single-row table in a SQLite database (pure-Go driver)
package storage
