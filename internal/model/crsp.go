package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// SourceCRSP is stamped on failure rows of the CRSP run.
const SourceCRSP = "crsp"

// CRSPReturn is one daily stock-file row from CRSP, keyed by PERMNO.
type CRSPReturn struct {
	PermNo       int64     // CRSP permanent security identifier
	Date         time.Time // Trading day (UTC midnight)
	Ticker       string    // Ticker in effect on Date, empty when unnamed
	CompanyName  string
	Return       *float64 // Holding period return (ret), nil when missing
	Price        *float64 // Closing price; negative marks a bid/ask midpoint
	ExchangeCode int      // Header exchange code (1 NYSE, 2 AMEX, 3 NASDAQ)
	DelistReturn *float64 // Delisting return on Date, nil when none
	TotalReturn  *float64 // Return compounded with DelistReturn
	LogReturn    *float64 // ln(1 + TotalReturn)
}

// Delisting is one CRSP delisting event.
type Delisting struct {
	PermNo      int64
	Date        time.Time // Delisting date (UTC midnight)
	Return      *float64  // dlret
	ReturnExDiv *float64  // dlretx
	Code        int       // dlstcd
	Price       *float64  // dlprc
}

// CRSPBatch is everything fetched for one CRSP window. It is written as a
// single transaction.
type CRSPBatch struct {
	Returns    []CRSPReturn
	Delistings []Delisting
}

// Len reports the number of rows in the batch.
func (b CRSPBatch) Len() int {
	return len(b.Returns) + len(b.Delistings)
}

// TotalReturn compounds a daily return with a delisting return on the same
// day. When only one of them is usable it is returned alone. A return is
// usable when 1+ret > 0; a delisting return when 1+dlret >= 0.
func TotalReturn(ret, dlret *float64) *float64 {
	retOK := ret != nil && finite(*ret) && 1+*ret > 0
	dlOK := dlret != nil && finite(*dlret) && 1+*dlret >= 0
	switch {
	case retOK && dlOK:
		v := (1+*ret)*(1+*dlret) - 1
		return &v
	case retOK:
		v := *ret
		return &v
	case dlOK:
		v := *dlret
		return &v
	}
	return nil
}

// MergeDelistings attaches each delisting return to the daily row with the
// same (permno, date) and fills TotalReturn and LogReturn on every row. The
// returns slice is modified in place.
func MergeDelistings(returns []CRSPReturn, delistings []Delisting) {
	dl := make(map[string]*float64, len(delistings))
	for _, d := range delistings {
		dl[crspKey(d.PermNo, d.Date)] = d.Return
	}
	for i := range returns {
		r := &returns[i]
		r.DelistReturn = dl[crspKey(r.PermNo, r.Date)]
		r.TotalReturn = TotalReturn(r.Return, r.DelistReturn)
		r.LogReturn = nil
		if r.TotalReturn != nil && 1+*r.TotalReturn > 0 {
			v := math.Log1p(*r.TotalReturn)
			r.LogReturn = &v
		}
	}
}

// SortAndDedupeCRSP orders rows by (permno, date) and keeps the first row
// seen for each pair. The input slice is not modified.
func SortAndDedupeCRSP(returns []CRSPReturn) []CRSPReturn {
	out := make([]CRSPReturn, len(returns))
	copy(out, returns)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PermNo != out[j].PermNo {
			return out[i].PermNo < out[j].PermNo
		}
		return out[i].Date.Before(out[j].Date)
	})

	result := out[:0]
	for i, r := range out {
		if i > 0 && r.PermNo == out[i-1].PermNo && r.Date.Equal(out[i-1].Date) {
			continue
		}
		result = append(result, r)
	}
	return result
}

// ValidateCRSPReturn reports whether a row can be written to the CRSP table.
func ValidateCRSPReturn(r CRSPReturn) error {
	switch {
	case r.PermNo <= 0:
		return fmt.Errorf("%w: permno %d", ErrInvalidRecord, r.PermNo)
	case r.Date.IsZero():
		return fmt.Errorf("%w: permno %d has zero date", ErrInvalidRecord, r.PermNo)
	case !finitePtr(r.Return) || !finitePtr(r.Price):
		return fmt.Errorf("%w: permno %d %s non-finite value", ErrInvalidRecord, r.PermNo, r.Date.Format(time.DateOnly))
	}
	return nil
}

// ValidateDelisting reports whether a delisting can be written.
func ValidateDelisting(d Delisting) error {
	switch {
	case d.PermNo <= 0:
		return fmt.Errorf("%w: delisting permno %d", ErrInvalidRecord, d.PermNo)
	case d.Date.IsZero():
		return fmt.Errorf("%w: delisting %d has zero date", ErrInvalidRecord, d.PermNo)
	case !finitePtr(d.Return) || !finitePtr(d.ReturnExDiv) || !finitePtr(d.Price):
		return fmt.Errorf("%w: delisting %d non-finite value", ErrInvalidRecord, d.PermNo)
	}
	return nil
}

func crspKey(permno int64, d time.Time) string {
	return fmt.Sprintf("%d|%s", permno, Day(d).Format(time.DateOnly))
}

func finitePtr(p *float64) bool {
	return p == nil || finite(*p)
}
