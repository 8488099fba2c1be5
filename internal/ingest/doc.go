// Package ingest drives an ingestion run: enumerate keys, skip the ones
// already stored, fetch the rest, and record either the rows or a classified
// failure for every key.
//
// Per-key lifecycle:
//
//	Pending -> Fetching -> Stored
//	                    -> Failed
//	Pending -> Stored             (already fetched, skipped)
//
// A failed fetch never stops the run. A failure to list the universe or to
// write to the store does, because continuing would silently lose results.
// Writes are serialized so the store sees one writer even with several
// workers fetching in parallel.
package ingest
