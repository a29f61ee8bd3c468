package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"treasury-agent/internal/models"
)

// staleAfter is how old a feed observation may be before it is flagged stale.
const staleAfter = 5 * time.Minute

// HTTPOracle reads prices from a JSON price-feed endpoint.
// Read failures fail closed: the last known price is returned flagged
// stale, or a clearly-invalid quote when no price was ever observed.
type HTTPOracle struct {
	url    string
	source string
	client *http.Client

	mu   sync.Mutex
	last models.PriceQuote
}

// HTTPOracleConfig holds configuration for the HTTP oracle.
type HTTPOracleConfig struct {
	URL     string
	Source  string
	Timeout time.Duration
}

// NewHTTPOracle creates an oracle backed by an HTTP price feed.
func NewHTTPOracle(cfg HTTPOracleConfig) (*HTTPOracle, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("oracle URL not configured")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	source := cfg.Source
	if source == "" {
		source = "http"
	}
	return &HTTPOracle{
		url:    cfg.URL,
		source: source,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// feedResponse is the wire shape of the price feed.
type feedResponse struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // epoch millis
}

// GetPrice fetches the current price. Transient failures return the last
// observed price flagged stale rather than an error.
func (o *HTTPOracle) GetPrice(ctx context.Context) (models.PriceQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return models.PriceQuote{}, fmt.Errorf("building oracle request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return o.failClosed(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return o.failClosed(), nil
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return o.failClosed(), nil
	}

	ts := time.UnixMilli(feed.Timestamp)
	if feed.Timestamp == 0 {
		ts = time.Now()
	}

	quote := models.PriceQuote{
		Price:     feed.Price,
		Source:    o.source,
		Stale:     time.Since(ts) > staleAfter,
		Timestamp: ts,
	}

	o.mu.Lock()
	o.last = quote
	o.mu.Unlock()

	return quote, nil
}

// failClosed returns the last known price flagged stale, or an invalid
// quote when nothing was ever observed.
func (o *HTTPOracle) failClosed() models.PriceQuote {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.last.Price > 0 {
		q := o.last
		q.Stale = true
		return q
	}
	return models.PriceQuote{
		Price:     -1,
		Source:    o.source,
		Stale:     true,
		Timestamp: time.Now(),
	}
}

// Ensure HTTPOracle implements the Oracle interface
var _ Oracle = (*HTTPOracle)(nil)
