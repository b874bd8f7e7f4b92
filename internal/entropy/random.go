// Package entropy supplies the random draws that drive a term: starvation,
// land prices, harvest yield, rats and plague.
// Draws are sequential; every source is consumed by exactly one term.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Source yields uniformly distributed floats in [0, 1), one per call.
type Source interface {
	Float64() float64
}

const (
	randomOrgURL = "https://api.random.org/json-rpc/4/invoke"

	// A full term takes 46 draws, so one batch covers two terms.
	batchSize = 100
	lowWater  = 10
)

// Client draws harvests and plagues from random.org. Fractions are fetched
// in batches and handed out one at a time; when the service cannot be
// reached the term carries on with crypto/rand.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client

	mu      sync.Mutex
	pending []float64
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: randomOrgURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether draws come from random.org.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Float64 implements Source.
func (c *Client) Float64() float64 {
	if !c.Enabled() {
		return cryptoRandFloat()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) < lowWater {
		batch, err := c.fetch()
		if err != nil {
			slog.Debug("random.org unavailable, using crypto/rand", "error", err)
		}
		c.pending = append(c.pending, batch...)
	}
	if len(c.pending) == 0 {
		return cryptoRandFloat()
	}

	v := c.pending[0]
	c.pending = c.pending[1:]
	return v
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	APIKey        string `json:"apiKey"`
	N             int    `json:"n"`
	DecimalPlaces int    `json:"decimalPlaces"`
}

type rpcResponse struct {
	Result struct {
		Random struct {
			Data []float64 `json:"data"`
		} `json:"random"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// fetch asks random.org for one batch of fractions.
func (c *Client) fetch() ([]float64, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "generateDecimalFractions",
		Params:  rpcParams{APIKey: c.apiKey, N: batchSize, DecimalPlaces: 6},
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	resp, err := c.client.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if out.Error != nil {
		return nil, errors.New(out.Error.Message)
	}

	batch := make([]float64, 0, len(out.Result.Random.Data))
	for _, v := range out.Result.Random.Data {
		// Six decimal places can round up to exactly 1.
		if v >= 0 && v < 1 {
			batch = append(batch, v)
		}
	}
	slog.Debug("random.org batch fetched", "count", len(batch))
	return batch, nil
}

func cryptoRandFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	// 53 bits fill a float64 mantissa.
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Crypto draws from crypto/rand. The zero value is ready to use.
type Crypto struct{}

// Float64 implements Source.
func (Crypto) Float64() float64 {
	return cryptoRandFloat()
}

// FromClient returns the client if it is usable, or a crypto/rand source.
func FromClient(c *Client) Source {
	if c.Enabled() {
		return c
	}
	return Crypto{}
}
