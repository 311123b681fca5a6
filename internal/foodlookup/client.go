// Package foodlookup provides a client for the external nutrition database.
// It serves adjacent features (manual meal logging, recipe editing) and never
// sits on the plan-generation critical path.
package foodlookup

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yuv-man/habeat-server/internal/errors"
)

const (
	defaultTimeout    = 12 * time.Second
	defaultMaxResults = 20
)

// Match is one candidate food with per-serving nutrient values.
type Match struct {
	Name          string  `json:"name"`
	Brand         string  `json:"brand"`
	ServingAmount float64 `json:"serving_amount"`
	ServingUnit   string  `json:"serving_unit"`
	Calories      float64 `json:"calories"`
	ProteinG      float64 `json:"protein_g"`
	CarbsG        float64 `json:"carbs_g"`
	FatG          float64 `json:"fat_g"`
}

// Client searches the nutrition database by food name.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a food search client for the given base URL.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

type searchResponse struct {
	Foods []Match `json:"foods"`
}

// Search returns candidate matches for the given food name.
func (c *Client) Search(ctx context.Context, name string) ([]Match, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("food name cannot be empty")
	}

	reqURL, err := url.Parse(c.baseURL + "/v1/foods/search")
	if err != nil {
		return nil, errors.Wrap(err, "parse search url")
	}
	params := reqURL.Query()
	params.Set("query", name)
	params.Set("max_results", strconv.Itoa(defaultMaxResults))
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create search request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "execute search request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read search response")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.New("food search failed with status " + strconv.Itoa(resp.StatusCode) + ": " + snippet(body))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}

	c.logger.DebugContext(ctx, "food search completed",
		slog.String("query", name),
		slog.Int("matches", len(parsed.Foods)))
	return parsed.Foods, nil
}

func snippet(body []byte) string {
	const limit = 200
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
