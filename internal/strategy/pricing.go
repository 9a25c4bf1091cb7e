package strategy

// MarketQuote is the price view a decision is made on: the current LTP and
// the statistics of the retained price history.
type MarketQuote struct {
	Last    float64
	High    float64
	Low     float64
	Average float64
	// HasHistory is false until at least one price has been retained.
	HasHistory bool
}

func (q MarketQuote) IsEmpty() bool {
	return q.Last <= 0
}

// entryWindow reports whether the flat-position entry condition holds:
// price above the history mean and more than 2% below the history high.
func (q MarketQuote) entryWindow() bool {
	if !q.HasHistory || q.Average <= 0 || q.High <= 0 {
		return false
	}
	return decimalGT(q.Last, decFromFloat(q.Average)) && decimalLT(q.Last, scaled(q.High, entryHighFactor))
}
