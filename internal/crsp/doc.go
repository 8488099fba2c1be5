// Package crsp downloads daily stock returns and delisting events from the
// CRSP tables hosted on the WRDS PostgreSQL server.
//
// A fetch covers one calendar month. Common stocks listed on NYSE, AMEX and
// NASDAQ (header exchange codes 1, 2 and 3) are selected, named from the
// stocknames record in effect on each day. Delisting returns are merged onto
// the daily rows before the batch is returned, see model.MergeDelistings.
package crsp
