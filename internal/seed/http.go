package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/eatery/internal/domain/model"
	"github.com/okian/eatery/pkg/logger"
)

// Client talks to the catalogue API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// apiError is the failure body of the service.
type apiError struct {
	Message string `json:"message"`
	Error   struct {
		Kind string `json:"kind"`
		Op   string `json:"op"`
	} `json:"error"`
}

// do sends body (if any) as JSON and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error.Kind != "" {
			return fmt.Errorf("%w: %s %s: %d %s (%s)", ErrUnexpectedStatus, method, path, resp.StatusCode, ae.Error.Kind, ae.Message)
		}
		return fmt.Errorf("%w: %s %s: %d", ErrUnexpectedStatus, method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

// Healthy checks /healthz.
func (c *Client) Healthy(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Reset deletes every user and then every restaurant.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/api/user/del/all", nil, nil); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/api/rest/del/all", nil, nil)
}

// InsertRestaurants bulk inserts one batch.
func (c *Client) InsertRestaurants(ctx context.Context, batch []RestaurantInput) ([]model.Restaurant, error) {
	var resp struct {
		Restaurants []model.Restaurant `json:"restaurants"`
	}
	err := c.do(ctx, http.MethodPost, "/api/rest/insert/rests", map[string]any{"data": batch}, &resp)
	return resp.Restaurants, err
}

// InsertUsers bulk inserts one batch.
func (c *Client) InsertUsers(ctx context.Context, batch []UserInput) ([]model.User, error) {
	var resp struct {
		Users []model.User `json:"users"`
	}
	err := c.do(ctx, http.MethodPost, "/api/user/insert/users", map[string]any{"data": batch}, &resp)
	return resp.Users, err
}

// NearbyResponse is the body of the nearby query.
type NearbyResponse struct {
	Restaurants  []model.Restaurant `json:"restaurants"`
	Count        int                `json:"count"`
	RadiusMeters float64            `json:"radiusMeters"`
}

// Nearby runs the nearby query around the restaurant with the given id.
func (c *Client) Nearby(ctx context.Context, id string) (*NearbyResponse, error) {
	var resp NearbyResponse
	if err := c.do(ctx, http.MethodGet, "/api/rest/get/search1km/"+id, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CuisineManagers runs the cuisine aggregation.
func (c *Client) CuisineManagers(ctx context.Context, cuisine string) ([]model.CuisineManager, error) {
	var resp struct {
		Users []model.CuisineManager `json:"users"`
	}
	err := c.do(ctx, http.MethodGet, "/api/user/get/search/"+cuisine, nil, &resp)
	return resp.Users, err
}

// chunk splits items into batches of at most size.
func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// insertBatches submits batches concurrently and collects what the service
// stored. A failed batch is logged and counted; the run carries on.
func insertBatches[In, Out any](ctx context.Context, cfg Config, kind string, items []In,
	insert func(context.Context, []In) ([]Out, error),
) (stored []Out, failed int) {
	batches := chunk(items, cfg.BatchSize)
	log := logger.Get()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		failures  int64
		submitted int64
	)
	batchChan := make(chan []In, cfg.Workers)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchChan {
				out, err := insert(ctx, batch)
				n := atomic.AddInt64(&submitted, 1)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					log.Warn(ctx, "batch insert failed", logger.String("kind", kind), logger.Int("size", len(batch)), logger.Error(err))
					continue
				}
				mu.Lock()
				stored = append(stored, out...)
				mu.Unlock()
				log.Debug(ctx, "batch inserted", logger.String("kind", kind),
					logger.Int64("batch", n), logger.Int("of", len(batches)), logger.Int("size", len(out)))
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- b:
			}
		}
	}()

	wg.Wait()
	return stored, int(atomic.LoadInt64(&failures))
}
