// Package companion answers chat widget messages in the voice of the
// studio's helper, 厚厚小幫手, using a text generation model.
package companion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrUnavailable is returned whenever a reply cannot be produced. Its text is
// shown to visitors as is.
var ErrUnavailable = errors.New("無法連接到厚厚小幫手")

// TiredReply is sent when the model answers with no text.
const TiredReply = "抱歉，我現在有點累，請稍後再試。"

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Turn is one line of chat history.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Companion builds prompts and turns generator output into visitor replies.
type Companion struct {
	gen    Generator
	logger *slog.Logger
}

// New returns a Companion. A nil gen yields a Companion that is always
// unavailable, used when no API key is configured.
func New(gen Generator, logger *slog.Logger) *Companion {
	if logger == nil {
		logger = slog.Default()
	}
	return &Companion{gen: gen, logger: logger}
}

// Enabled reports whether a generator is configured.
func (c *Companion) Enabled() bool {
	return c.gen != nil
}

// Reply answers message given the earlier turns of the conversation.
func (c *Companion) Reply(ctx context.Context, history []Turn, message string) (string, error) {
	if c.gen == nil {
		return "", ErrUnavailable
	}
	text, err := c.gen.Generate(ctx, BuildPrompt(history, message))
	if err != nil {
		c.logger.Error("companion generation failed", "error", err)
		return "", ErrUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return TiredReply, nil
	}
	return strings.TrimSpace(text), nil
}
