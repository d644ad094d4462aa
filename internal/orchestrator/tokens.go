package orchestrator

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/codefionn/concierge/internal/llm"
	"github.com/codefionn/concierge/internal/logger"
)

// TokenCounter counts prompt tokens for the context budget.
type TokenCounter interface {
	Count(text string) int
}

type estimateCounter struct{}

func (estimateCounter) Count(text string) int {
	return llm.EstimateTokenCount(text)
}

type tiktokenCounter struct {
	once    sync.Once
	encoder *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Warn("tiktoken unavailable, estimating tokens: %v", err)
			return
		}
		c.encoder = enc
	})
	if c.encoder == nil {
		return llm.EstimateTokenCount(text)
	}
	return len(c.encoder.Encode(text, nil, nil))
}

// NewTokenCounter returns the counter for a tokenizer name. Unknown names
// estimate from the character count.
func NewTokenCounter(name string) TokenCounter {
	if strings.EqualFold(strings.TrimSpace(name), "tiktoken") {
		return &tiktokenCounter{}
	}
	return estimateCounter{}
}
