package yahoo

import "github.com/shopspring/decimal"

// chartResponse from GET /v8/finance/chart/{symbol}
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		GMTOffset int64 `json:"gmtoffset"` // exchange offset from UTC in seconds
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"` // unix seconds
	Indicators struct {
		Quote    []quoteBlock    `json:"quote"`
		AdjClose []adjCloseBlock `json:"adjclose"`
	} `json:"indicators"`
}

// Entries are null on days the exchange published nothing.
type quoteBlock struct {
	Open   []decimal.NullDecimal `json:"open"`
	High   []decimal.NullDecimal `json:"high"`
	Low    []decimal.NullDecimal `json:"low"`
	Close  []decimal.NullDecimal `json:"close"`
	Volume []decimal.NullDecimal `json:"volume"`
}

type adjCloseBlock struct {
	AdjClose []decimal.NullDecimal `json:"adjclose"`
}
