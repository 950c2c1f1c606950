package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stigtools/stig-rag/internal/infrastructure/resilience"
)

// Per-operation deadlines. The availability probe must answer fast, rerank is
// a short-output call, generation gets the longest budget.
const (
	probeTimeout    = 10 * time.Second
	generateTimeout = 30 * time.Second
	rerankTimeout   = 15 * time.Second
)

// Models with known ranking-format issues; reranking is skipped for them.
var problematicRerankModels = []string{"phi3:mini", "tinyllama", "gemma2:2b"}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
		executor:   executor,
	}
}

// IsAvailable probes the backend tag listing. Any transport failure or
// non-200 status means unavailable; the probe never returns an error.
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Generate produces an answer grounded in contextText. It never returns a Go
// error: transport failures, timeouts, and bad statuses come back as
// descriptive sentinel strings the composer recognizes.
func (c *Client) Generate(ctx context.Context, question, contextText string) string {
	payload := map[string]any{
		"model":  c.model,
		"prompt": buildAnswerPrompt(question, truncateContext(contextText)),
		"stream": false,
		"options": map[string]any{
			"temperature": 0.1,
			"top_p":       0.9,
			"num_predict": 150,
			"num_ctx":     1024,
		},
	}

	var response string
	call := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, generateTimeout)
		defer cancel()

		out, err := c.postGenerate(ctx, payload, "generate")
		if err != nil {
			return err
		}
		response = out
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return sentinelForError(err)
	}
	if response == "" {
		return "No response generated"
	}
	return response
}

// Rerank sends a ranking prompt with deterministic, short-output options. The
// caller treats any error as "keep the original order".
func (c *Client) Rerank(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": 0.0,
			"top_p":       0.1,
			"num_predict": 20,
			"num_ctx":     512,
		},
	}

	var response string
	call := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, rerankTimeout)
		defer cancel()

		out, err := c.postGenerate(ctx, payload, "rerank")
		if err != nil {
			return err
		}
		response = out
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.rerank", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("ollama rerank: %w", err)
	}
	return response, nil
}

func (c *Client) SupportsReranking() bool {
	model := strings.ToLower(c.model)
	for _, bad := range problematicRerankModels {
		if strings.Contains(model, bad) {
			return false
		}
	}
	return true
}
