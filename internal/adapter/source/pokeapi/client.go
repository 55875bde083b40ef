package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/pokedex/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "Pokedex/1.0"

	maxRecordBytes = 2 << 20 // /pokemon responses are a few hundred KiB
	maxImageBytes  = 5 << 20
)

// Client implements domain.Source for PokeAPI v2
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new PokeAPI client. requestsPerSecond <= 0 disables
// pacing; a nil httpClient gets a default with a 10s timeout.
func NewClient(baseURL string, requestsPerSecond float64, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// get performs a paced GET and returns at most maxBytes of the body
func (c *Client) get(ctx context.Context, reqURL, accept string, maxBytes int64) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("pokeapi request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("pokeapi request failed", "error", err, "url", reqURL)
		return nil, domain.NewError(domain.ErrNetwork, "GET "+reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewError(domain.ErrNotFound, "GET "+reqURL, errors.New("status 404"))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("pokeapi request error", "status", resp.StatusCode, "url", reqURL)
		return nil, domain.NewError(domain.ErrNetwork, "GET "+reqURL,
			fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, domain.NewError(domain.ErrNetwork, "GET "+reqURL, fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(body)) > maxBytes {
		return nil, domain.NewError(domain.ErrNetwork, "GET "+reqURL, fmt.Errorf("response exceeds %d bytes", maxBytes))
	}
	return body, nil
}

// FetchPokemon returns the full record for a dex number. The species lookup
// is best effort: any failure there yields the default description.
func (c *Client) FetchPokemon(ctx context.Context, id int) (domain.Pokemon, error) {
	if id <= 0 {
		return domain.Pokemon{}, fmt.Errorf("fetch pokemon: invalid id %d", id)
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/pokemon/%d", c.baseURL, id), "application/json", maxRecordBytes)
	if err != nil {
		return domain.Pokemon{}, err
	}

	var resp PokemonResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("JSON parse error", "error", err, "id", id, "bodyLen", len(body))
		return domain.Pokemon{}, domain.NewError(domain.ErrParse, fmt.Sprintf("decode pokemon %d", id), err)
	}
	if resp.ID <= 0 || resp.Name == "" {
		return domain.Pokemon{}, domain.NewError(domain.ErrParse, fmt.Sprintf("decode pokemon %d", id), errors.New("missing id or name"))
	}

	p := MapPokemon(resp)

	desc, err := c.fetchDescription(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Pokemon{}, ctx.Err()
		}
		c.logger.Warn("species lookup failed, using default description", "error", err, "id", id)
	} else {
		p.Description = desc
	}

	return p, nil
}

func (c *Client) fetchDescription(ctx context.Context, id int) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/pokemon-species/%d", c.baseURL, id), "application/json", maxRecordBytes)
	if err != nil {
		return "", err
	}

	var resp SpeciesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", domain.NewError(domain.ErrParse, fmt.Sprintf("decode species %d", id), err)
	}
	return MapDescription(resp), nil
}

// FetchImage returns the raw bytes behind an image URL (at most 5 MiB)
func (c *Client) FetchImage(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, domain.NewError(domain.ErrNotFound, "fetch image", errors.New("no image url"))
	}

	body, err := c.get(ctx, url, "image/png,image/*", maxImageBytes)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, domain.NewError(domain.ErrNetwork, "GET "+url, errors.New("empty body"))
	}
	return body, nil
}
