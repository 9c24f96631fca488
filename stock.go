package tradesim

// Stock is a tradable instrument.
//
// The authoritative price lives in the backend; a Stock is a copy that goes
// stale until the next fetch or live update. A stock the backend never priced
// has a zero Price.
type Stock struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  Money  `json:"price"`
}

// ValuePoint is one sample of a portfolio's value history.
type ValuePoint struct {
	Timestamp Timestamp `json:"timestamp"`
	Value     Money     `json:"value"`
}
