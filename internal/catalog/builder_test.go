package catalog

import (
	"reflect"
	"testing"

	"tradeflow/models"
)

func sampleLists() (spot, swap, futures []models.Instrument) {
	spot = []models.Instrument{
		{InstrumentID: "BTC-USDT", BaseCurrency: "BTC", QuoteCurrency: "USDT"},
		{InstrumentID: "ETH-BTC", BaseCurrency: "ETH", QuoteCurrency: "BTC"},
	}
	swap = []models.Instrument{
		{InstrumentID: "BTC-USD-SWAP", UnderlyingIndex: "BTC", QuoteCurrency: "USD", ContractVal: "100"},
	}
	futures = []models.Instrument{
		{InstrumentID: "BTC-USD-200626", UnderlyingIndex: "BTC", QuoteCurrency: "USD", ContractVal: "100", Alias: "this_week"},
	}
	return
}

func TestBuildMapsAllThreeClasses(t *testing.T) {
	c := Build(sampleLists())

	if got := c.Products["BTCUSD"]; got != "BTC-USDT" {
		t.Errorf("spot pair: got %q", got)
	}
	if got := c.Products["ETHBTC"]; got != "ETH-BTC" {
		t.Errorf("spot pair without stablecoin quote: got %q", got)
	}
	if got := c.Products["BTCUSD-SWAP"]; got != "BTC-USD-SWAP" {
		t.Errorf("swap pair: got %q", got)
	}
	if got := c.Products["BTCUSD-THIS_WEEK"]; got != "BTC-USD-200626" {
		t.Errorf("futures pair: got %q", got)
	}
	if got := c.Specs["BTC-USD-SWAP"]; got != 100 {
		t.Errorf("swap contract value: got %v", got)
	}
	if got := c.Specs["BTC-USD-200626"]; got != 100 {
		t.Errorf("futures contract value: got %v", got)
	}
	if _, ok := c.Specs["BTC-USDT"]; ok {
		t.Error("spot instrument must not appear in specs")
	}
}

func TestBuildIdempotent(t *testing.T) {
	spot, swap, futures := sampleLists()
	first := Build(spot, swap, futures)
	second := Build(spot, swap, futures)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("rebuild differs:\n%+v\n%+v", first, second)
	}
}

func TestBuildSkipsMalformedEntries(t *testing.T) {
	spot := []models.Instrument{
		{InstrumentID: "BTC-USDT", BaseCurrency: "BTC"}, // missing quote
		{BaseCurrency: "ETH", QuoteCurrency: "USDT"},    // missing id
	}
	swap := []models.Instrument{
		{InstrumentID: "BTC-USD-SWAP", UnderlyingIndex: "BTC", QuoteCurrency: "USD", ContractVal: "abc"},
	}
	futures := []models.Instrument{
		{InstrumentID: "BTC-USD-200626", UnderlyingIndex: "BTC", QuoteCurrency: "USD", ContractVal: "100"}, // missing alias
	}

	c := Build(spot, swap, futures)
	if len(c.Products) != 0 {
		t.Errorf("expected empty products, got %+v", c.Products)
	}
	if len(c.Specs) != 0 {
		t.Errorf("expected empty specs, got %+v", c.Specs)
	}
}
