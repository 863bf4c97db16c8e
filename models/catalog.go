package models

// InstrumentType classifies an exchange instrument id by market.
type InstrumentType string

const (
	InstrumentSpot    InstrumentType = "spot"
	InstrumentSwap    InstrumentType = "swap"
	InstrumentFutures InstrumentType = "futures"
)

// Instrument mirrors one entry of the public instruments endpoints. Spot
// entries carry base_currency, swap and futures entries carry
// underlying_index plus contract_val, and futures entries additionally carry
// an alias such as "this_week".
type Instrument struct {
	InstrumentID    string `json:"instrument_id"`
	BaseCurrency    string `json:"base_currency"`
	UnderlyingIndex string `json:"underlying_index"`
	QuoteCurrency   string `json:"quote_currency"`
	ContractVal     string `json:"contract_val"`
	Alias           string `json:"alias"`
}

// Catalog is the product catalog built from the spot, swap and futures
// instrument lists. Products maps canonical pair names (BTCUSD,
// BTCUSD-SWAP, BTCUSD-THIS_WEEK) to exchange instrument ids; Specs maps
// derivative instrument ids to their contract value. An instrument id
// appears in Specs exactly when it is not a spot instrument. The catalog is
// rebuilt wholesale on every refresh.
type Catalog struct {
	Products map[string]string  `json:"products"`
	Specs    map[string]float64 `json:"specs"`
}
