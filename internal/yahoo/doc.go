// Package yahoo downloads daily price history from the Yahoo Finance chart API.
//
// A single request covers the whole configured range unless chunking is
// enabled, in which case the range is split into fixed windows that are
// fetched in order and merged. Every request waits on the shared throttle and
// is retried according to the client's fetch.Retrier.
package yahoo
