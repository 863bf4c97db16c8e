package catalog

import (
	"strconv"
	"strings"

	"tradeflow/models"
)

// Build constructs a product catalog from the spot, swap and futures
// instrument lists, in that order. Spot pairs collapse stablecoin quotes so
// BTC-USDT maps to the canonical BTCUSD pair. Derivative entries record their
// contract value under Specs; entries missing required fields or carrying an
// unparsable contract value are skipped rather than failing the build.
func Build(spot, swap, futures []models.Instrument) *models.Catalog {
	c := &models.Catalog{
		Products: make(map[string]string, len(spot)+len(swap)+len(futures)),
		Specs:    make(map[string]float64, len(swap)+len(futures)),
	}

	for _, inst := range spot {
		if inst.InstrumentID == "" || inst.BaseCurrency == "" || inst.QuoteCurrency == "" {
			continue
		}
		quote := strings.ToUpper(inst.QuoteCurrency)
		if strings.HasSuffix(quote, "USDT") {
			quote = strings.TrimSuffix(quote, "USDT") + "USD"
		}
		pair := strings.ToUpper(inst.BaseCurrency) + quote
		c.Products[pair] = inst.InstrumentID
	}

	for _, inst := range swap {
		pair, val, ok := derivativePair(inst)
		if !ok {
			continue
		}
		c.Products[pair+"-SWAP"] = inst.InstrumentID
		c.Specs[inst.InstrumentID] = val
	}

	for _, inst := range futures {
		pair, val, ok := derivativePair(inst)
		if !ok || inst.Alias == "" {
			continue
		}
		c.Products[pair+"-"+strings.ToUpper(inst.Alias)] = inst.InstrumentID
		c.Specs[inst.InstrumentID] = val
	}

	return c
}

// derivativePair derives the base pair name and contract value for a swap or
// futures instrument. Returns false when a required field is absent, which
// keeps the Specs invariant intact: an id is listed there only with a usable
// contract value.
func derivativePair(inst models.Instrument) (string, float64, bool) {
	if inst.InstrumentID == "" || inst.UnderlyingIndex == "" || inst.QuoteCurrency == "" {
		return "", 0, false
	}
	val, err := strconv.ParseFloat(inst.ContractVal, 64)
	if err != nil || val <= 0 {
		return "", 0, false
	}
	pair := strings.ToUpper(inst.UnderlyingIndex) + strings.ToUpper(inst.QuoteCurrency)
	return pair, val, true
}
