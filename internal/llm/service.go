// Package llm narrates analysis results through a local Ollama server.
// It implements service.Answerer and is only wired in when enabled.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"samarth-go/internal/models"

	"github.com/rotisserie/eris"
)

// maxPromptRows caps how many result rows are quoted to the model
const maxPromptRows = 20

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Service struct {
	config Config
	client *http.Client
}

func NewService(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen3-vl:2b"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Service{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type GenerateResponse struct {
	Response string `json:"response"`
}

// Generate calls the Ollama generate endpoint without streaming
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := GenerateRequest{
		Model:  s.config.Model,
		Prompt: prompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "encode generate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", eris.Wrap(err, "build generate request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "call ollama")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("ollama API returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "read ollama response")
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", eris.Wrap(err, "decode ollama response")
	}

	return genResp.Response, nil
}

// reasoning models wrap their scratch work in think tags
var thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Answer turns an analysis into a short cited paragraph
func (s *Service) Answer(ctx context.Context, question string, result models.AnalysisResult) (string, error) {
	response, err := s.Generate(ctx, buildPrompt(question, result))
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(thinkRe.ReplaceAllString(response, ""))
	if answer == "" {
		return "", eris.New("empty answer from model")
	}
	return answer, nil
}

func buildPrompt(question string, result models.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an agricultural data analyst. Answer the question using ONLY the figures below.
Cite every figure with its source number in square brackets, e.g. [1]. Do not invent data.

Question: %s
Analysis: %s
`, question, result.Action)

	if len(result.Rows) > 0 {
		b.WriteString("\nResults:\n")
		for i, r := range result.Rows {
			if i == maxPromptRows {
				fmt.Fprintf(&b, "- ... %d more rows\n", len(result.Rows)-maxPromptRows)
				break
			}
			fmt.Fprintf(&b, "- %s: %s = %s (%d points, %s)", r.Label, r.Metric, formatFloat(r.Value), r.Count, r.Dataset)
			if r.Secondary != nil {
				fmt.Fprintf(&b, ", rainfall = %s", formatFloat(*r.Secondary))
			}
			b.WriteString("\n")
		}
	}

	if len(result.Aggregates) > 0 {
		keys := make([]string, 0, len(result.Aggregates))
		for k := range result.Aggregates {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nAggregates:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s = %s\n", k, formatFloat(result.Aggregates[k]))
		}
	}

	if stats := result.CorrelationStats; stats != nil {
		fmt.Fprintf(&b, "\nPearson correlation: %.3f across %d matched locations\n", stats.Coefficient, stats.SampleSize)
	}
	for _, n := range result.Notes {
		fmt.Fprintf(&b, "Note: %s\n", n)
	}

	if len(result.Citations) > 0 {
		b.WriteString("\nSources:\n")
		for _, line := range models.FormatCitations(result.Citations) {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
