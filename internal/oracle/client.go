// Package oracle is the LLM enrichment backend. It implements the
// annotation seams of the intel processors on top of the Anthropic API:
// article annotation for the policy and personnel feeds, topic and
// opportunity enrichment for the tech frontier, and the daily briefing
// narrative. Every call is best effort, callers treat failures as a skip.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/common"
)

// Client wraps the Anthropic API with the enrichment prompt set
type Client struct {
	config  *common.OracleConfig
	logger  arbor.ILogger
	client  anthropic.Client
	timeout time.Duration
}

// New creates the oracle client. The caller is expected to have checked
// config.OracleReady first; an empty key is still rejected here.
func New(config *common.OracleConfig, logger arbor.ILogger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("oracle API key is required (set ORACLE_API_KEY or ANTHROPIC_API_KEY)")
	}

	model := config.Model
	if model == "" {
		model = "claude-haiku-3-5-20241022"
	}
	config.Model = model

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid oracle timeout %q: %w", config.Timeout, err)
	}

	c := &Client{
		config:  config,
		logger:  logger,
		client:  anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		timeout: timeout,
	}

	logger.Debug().
		Str("model", model).
		Dur("timeout", timeout).
		Int("max_tokens", config.MaxTokens).
		Msg("Oracle client initialized")

	return c, nil
}

// complete sends one system+user exchange and returns the raw text reply
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if c.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.config.Temperature))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("oracle API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("oracle returned empty response")
	}

	c.logger.Debug().
		Int("response_length", text.Len()).
		Dur("duration", time.Since(start)).
		Msg("Oracle completion finished")

	return text.String(), nil
}

// completeJSON runs a completion and decodes the reply into out. Models
// sometimes fence the JSON or prepend prose; both are stripped before
// decoding.
func (c *Client) completeJSON(ctx context.Context, system, user string, maxTokens int, out any) error {
	raw, err := c.complete(ctx, system, user, maxTokens)
	if err != nil {
		return err
	}
	payload := extractJSON(raw)
	if payload == "" {
		return fmt.Errorf("no JSON found in oracle response")
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decoding oracle response: %w", err)
	}
	return nil
}

// extractJSON pulls the first JSON object or array out of a model reply
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if fenced := strings.Index(raw, "```"); fenced >= 0 {
		rest := raw[fenced+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			raw = strings.TrimSpace(rest[:end])
		}
	}

	objStart := strings.IndexByte(raw, '{')
	arrStart := strings.IndexByte(raw, '[')
	start := objStart
	open, close := byte('{'), byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		open, close = '[', ']'
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
