package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuv-man/habeat-server/internal/errors"
)

// Local runtime defaults. The runtime exposes an Ollama-compatible API.
const (
	DefaultLocalBaseURL = "http://localhost:11434"
	DefaultLocalModel   = "llama3.1"
	DefaultLocalTimeout = 3 * time.Minute

	localTemperature = 0.7
	localTopP        = 0.9
	localTopK        = 40
	localMaxTokens   = 4096
)

// LocalClient queries a locally hosted model runtime over its generate
// endpoint. It is the last fallback beneath the cloud cascade; there is no
// further fallback beneath it.
type LocalClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLocalClient creates a client for the local runtime. Empty baseURL or
// model fall back to the defaults above.
func NewLocalClient(baseURL, model string, logger *slog.Logger) *LocalClient {
	if baseURL == "" {
		baseURL = DefaultLocalBaseURL
	}
	if model == "" {
		model = DefaultLocalModel
	}
	return &LocalClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: DefaultLocalTimeout},
		logger:     logger,
	}
}

type localGenerateRequest struct {
	Model   string               `json:"model"`
	Prompt  string               `json:"prompt"`
	Stream  bool                 `json:"stream"`
	Options localGenerateOptions `json:"options"`
}

type localGenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
}

type localGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Healthy checks that the runtime answers its tags endpoint.
func (c *LocalClient) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return errors.Wrap(err, "create health request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "local runtime unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("local runtime health check failed")
	}
	return nil
}

// Generate sends the prompt to the local runtime and returns the response
// text. The model name ignores the Completer-style argument because the
// runtime serves one configured model.
func (c *LocalClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(localGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: localGenerateOptions{
			Temperature: localTemperature,
			TopP:        localTopP,
			TopK:        localTopK,
			NumPredict:  localMaxTokens,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal generate payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "create generate request")
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.DebugContext(ctx, "querying local model runtime",
		slog.String("model", c.model),
		slog.Int("prompt_length", len(prompt)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "execute generate request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read generate response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.New("local generate failed: " + truncateBody(body))
	}

	var parsed localGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "decode generate response")
	}
	if parsed.Response == "" {
		return "", errors.New("local runtime returned an empty response")
	}
	return parsed.Response, nil
}

// truncateBody keeps error messages readable when the runtime returns a
// large error payload.
func truncateBody(body []byte) string {
	const limit = 200
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
