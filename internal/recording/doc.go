// Package recording persists published status records as an append-only
// JSON Lines (JSONL) stream, optionally gzip-compressed, and replays them for
// offline analysis.
package recording
