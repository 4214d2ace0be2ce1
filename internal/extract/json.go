package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawTask mirrors the JSON shape providers are instructed to emit.
type rawTask struct {
	Title      string  `json:"title"`
	Due        string  `json:"due"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

type rawResponse struct {
	Tasks []rawTask `json:"tasks"`
}

// cleanJSON strips markdown code fences and preamble from a model response,
// keeping the first top-level JSON object.
func cleanJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// parseItems decodes a model response into raw items. A response parsing to
// an empty task list is a valid success; undecodable output is a
// MalformedResponse failure.
func parseItems(provider, text string) ([]Item, error) {
	var resp rawResponse
	if err := json.Unmarshal([]byte(cleanJSON(text)), &resp); err != nil {
		return nil, &ProviderError{
			Provider: provider,
			Class:    MalformedResponse,
			Err:      fmt.Errorf("failed to decode response: %w", err),
		}
	}

	items := make([]Item, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		items = append(items, Item{
			Provider:   provider,
			Title:      t.Title,
			Due:        t.Due,
			Priority:   t.Priority,
			Confidence: t.Confidence,
		})
	}
	return items, nil
}
