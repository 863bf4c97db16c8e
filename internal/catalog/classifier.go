package catalog

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"tradeflow/models"
)

var trailingDigits = regexp.MustCompile(`[0-9]+$`)

// Classifier resolves requested canonical pair names against the current
// catalog and classifies resolved instrument ids by market type. The type
// cache is populated lazily on first resolution and kept for the connector's
// lifetime; the catalog itself is swapped wholesale on refresh.
type Classifier struct {
	mu      sync.RWMutex
	catalog *models.Catalog
	types   map[string]models.InstrumentType
}

func NewClassifier(catalog *models.Catalog) *Classifier {
	return &Classifier{
		catalog: catalog,
		types:   make(map[string]models.InstrumentType),
	}
}

// SetCatalog replaces the catalog after a refresh. The type cache survives:
// classifications depend only on id shape, not on catalog contents.
func (c *Classifier) SetCatalog(catalog *models.Catalog) {
	c.mu.Lock()
	c.catalog = catalog
	c.mu.Unlock()
}

// Catalog returns the catalog currently backing resolution.
func (c *Classifier) Catalog() *models.Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog
}

// Specs returns the contract-value map of the current catalog.
func (c *Classifier) Specs() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.catalog == nil {
		return nil
	}
	return c.catalog.Specs
}

// Resolve maps a requested pair name to an exchange instrument id. It tries
// an exact product match, then the same pair with USDT substituted by USD,
// then a reverse lookup for callers that already pass a raw instrument id.
// A failed resolution returns ok=false and means "do not subscribe", it is
// not an error. Successful resolutions are classified and cached.
func (c *Classifier) Resolve(pair string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalog == nil {
		return "", false
	}

	if id, ok := c.catalog.Products[pair]; ok {
		c.classify(id)
		return id, true
	}

	// Stablecoin substitution runs in whichever direction applies: a USDT
	// request falls back to the collapsed USD pair, a USD request falls
	// back to a catalog that kept the USDT quote.
	alt := pair
	if strings.Contains(pair, "USDT") {
		alt = strings.Replace(pair, "USDT", "USD", 1)
	} else if strings.Contains(pair, "USD") {
		alt = strings.Replace(pair, "USD", "USDT", 1)
	}
	if alt != pair {
		if id, ok := c.catalog.Products[alt]; ok {
			c.classify(id)
			return id, true
		}
	}

	// Reverse lookup over sorted keys keeps the first-match tie-break
	// deterministic when several pairs share one instrument id.
	keys := make([]string, 0, len(c.catalog.Products))
	for k := range c.catalog.Products {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if c.catalog.Products[k] == pair {
			c.classify(pair)
			return pair, true
		}
	}

	return "", false
}

// TypeOf classifies an instrument id by its shape, consulting the cache
// first. Trailing digits mark a futures id, a "-SWAP" suffix marks a swap,
// anything else is spot.
func (c *Classifier) TypeOf(instID string) models.InstrumentType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classify(instID)
}

func (c *Classifier) classify(instID string) models.InstrumentType {
	if t, ok := c.types[instID]; ok {
		return t
	}
	var t models.InstrumentType
	switch {
	case trailingDigits.MatchString(instID):
		t = models.InstrumentFutures
	case strings.HasSuffix(instID, "-SWAP"):
		t = models.InstrumentSwap
	default:
		t = models.InstrumentSpot
	}
	c.types[instID] = t
	return t
}
