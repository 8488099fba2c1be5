// Package fred downloads macroeconomic series from the FRED observations API.
//
// Observations with the missing-value marker "." are skipped. Values are parsed
// with shopspring/decimal so that the provider's text representation is
// validated before it is narrowed to float64.
package fred
