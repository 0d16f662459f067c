package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/srishtiii28/alphascan/internal/domain"
)

// StripReasoning drops a leading chain-of-thought block emitted by reasoning
// models (everything up to and including a closing </think> tag).
func StripReasoning(content string) string {
	if idx := strings.LastIndex(content, "</think>"); idx != -1 {
		return strings.TrimSpace(content[idx+len("</think>"):])
	}
	return strings.TrimSpace(content)
}

// ExtractJSON pulls the JSON payload out of a completion, tolerating markdown
// code fences and surrounding prose.
func ExtractJSON(content string) string {
	content = StripReasoning(content)

	if fenced := extractFromCodeBlock(content, "```json"); fenced != "" {
		return fenced
	}
	if fenced := extractFromCodeBlock(content, "```"); fenced != "" {
		return fenced
	}

	// Fall back to the outermost bracket pair
	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(content, pair[0])
		end := strings.LastIndexByte(content, pair[1])
		if start != -1 && end > start {
			return content[start : end+1]
		}
	}

	return content
}

func extractFromCodeBlock(content, startMarker string) string {
	startIdx := strings.Index(content, startMarker)
	if startIdx == -1 {
		return ""
	}

	contentStart := startIdx + len(startMarker)
	if contentStart < len(content) && content[contentStart] == '\n' {
		contentStart++
	}

	endIdx := strings.Index(content[contentStart:], "```")
	if endIdx == -1 {
		return ""
	}

	return strings.TrimSpace(content[contentStart : contentStart+endIdx])
}

// ParseCandidates decodes the signal-extraction response into candidates.
// Entries with an unknown sentiment or empty token symbol are dropped.
func ParseCandidates(content string) ([]domain.AlphaCandidate, error) {
	var raw []domain.AlphaCandidate
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}

	candidates := make([]domain.AlphaCandidate, 0, len(raw))
	for _, c := range raw {
		if c.Token == "" || !c.Sentiment.Valid() {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// ParsePosts decodes the generated social posts response.
func ParsePosts(content string) ([]string, error) {
	var resp struct {
		Tweets []string `json:"tweets"`
	}
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return resp.Tweets, nil
}

// ParseSentiment decodes the sentiment re-derivation response.
func ParseSentiment(content string) (domain.Sentiment, error) {
	var resp struct {
		Sentiment domain.Sentiment `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &resp); err != nil {
		return "", fmt.Errorf("failed to decode sentiment: %w", err)
	}
	if !resp.Sentiment.Valid() {
		return "", fmt.Errorf("unexpected sentiment value: %q", resp.Sentiment)
	}
	return resp.Sentiment, nil
}
