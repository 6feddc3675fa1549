// Package credstore provides persistent storage for per-device credential records.
//
// Supports three storage backends with different durability and deployment tradeoffs:
//   - Memory: Process-local map, lost on restart (development and tests)
//   - SQLite: Durable single-file database, the recommended default
//   - Keyring: OS-native credential storage, one entry per device
//
// Records are always written whole. A polling device never observes a
// partially-written record regardless of backend.
package credstore
