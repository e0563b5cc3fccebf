// Package assistant talks to the generative model: it writes first drafts,
// performs inline actions on selected text and proposes edits.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/alimasry/lumina/i18n"
	"github.com/alimasry/lumina/ot"
	"github.com/alimasry/lumina/suggest"
)

const (
	DefaultDraftModel      = "gemini-3-pro-preview"
	DefaultActionModel     = "gemini-3-flash-preview"
	DefaultSuggestionModel = "gemini-3-flash-preview"
)

// Generator is the part of the genai client the assistant uses.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config selects models and limits for each kind of request.
type Config struct {
	DraftModel      string
	ActionModel     string
	SuggestionModel string
	// Timeout bounds every remote call; zero leaves the caller's deadline.
	Timeout time.Duration
	// MinSuggestionLength is the content length, in characters, that must
	// be exceeded before suggestions are requested.
	MinSuggestionLength int
}

func (c Config) withDefaults() Config {
	if c.DraftModel == "" {
		c.DraftModel = DefaultDraftModel
	}
	if c.ActionModel == "" {
		c.ActionModel = DefaultActionModel
	}
	if c.SuggestionModel == "" {
		c.SuggestionModel = DefaultSuggestionModel
	}
	if c.MinSuggestionLength <= 0 {
		c.MinSuggestionLength = 50
	}
	return c
}

// Client issues draft, action and suggestion requests.
type Client struct {
	gen    Generator
	cfg    Config
	logger *zap.Logger
}

func New(gen Generator, cfg Config, logger *zap.Logger) *Client {
	return &Client{gen: gen, cfg: cfg.withDefaults(), logger: logger.Named("assistant")}
}

// NewGemini connects to the Gemini API with apiKey.
func NewGemini(ctx context.Context, apiKey string, cfg Config, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return New(gc.Models, cfg, logger), nil
}

// generate runs one request under the configured timeout and returns the
// response text.
func (c *Client) generate(ctx context.Context, kind, model string, parts []*genai.Part, config *genai.GenerateContentConfig) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.gen.GenerateContent(ctx, model, contents, config)
	log := c.logger.With(
		zap.String("kind", kind),
		zap.String("model", model),
		zap.Duration("took", time.Since(start)),
	)
	if err != nil {
		log.Warn("generate failed", zap.Error(err))
		return "", fmt.Errorf("%s: %w", kind, err)
	}
	text := resp.Text()
	log.Debug("generated", zap.Int("chars", ot.Len(text)))
	return text, nil
}

// GenerateDraft writes a first draft from prompt, reading the attachments
// as context. Failures are returned; the caller decides what to show.
func (c *Client) GenerateDraft(ctx context.Context, prompt string, attachments []FileAttachment, lang i18n.Language) (string, error) {
	parts := make([]*genai.Part, 0, len(attachments)+1)
	for _, a := range attachments {
		data, err := a.Bytes()
		if err != nil {
			return "", fmt.Errorf("attachment %q: %w", a.Name, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, a.MimeType))
	}

	text, err := render("draft.tmpl", struct{ Language, Prompt string }{lang.Name(), prompt})
	if err != nil {
		return "", err
	}
	parts = append(parts, genai.NewPartFromText(text))

	return c.generate(ctx, "draft", c.cfg.DraftModel, parts, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
		TopP:        genai.Ptr[float32](0.95),
	})
}

// PerformAction returns the replacement for the selected text. A failed
// request or an empty answer yields the selection unchanged; only an
// invalid request is an error.
func (c *Client) PerformAction(ctx context.Context, req ActionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	text, err := render("action.tmpl", struct{ Context, Selected, Instruction string }{
		req.Context, req.Selected, req.Kind.Instruction(req.Instruction),
	})
	if err != nil {
		return "", err
	}

	out, err := c.generate(ctx, "action", c.cfg.ActionModel, []*genai.Part{genai.NewPartFromText(text)}, nil)
	if err != nil {
		return req.Selected, nil
	}
	if out = strings.TrimSpace(out); out == "" {
		return req.Selected, nil
	}
	return out, nil
}

var suggestionSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"originalText":  {Type: genai.TypeString},
			"suggestedText": {Type: genai.TypeString},
			"reason":        {Type: genai.TypeString},
		},
		Required: []string{"originalText", "suggestedText", "reason"},
	},
}

// Suggest asks for a couple of improvements to content. Short content, a
// failed request and unparseable output all give no suggestions. Returned
// suggestions carry fresh ids and the position of their original text.
func (c *Client) Suggest(ctx context.Context, content string, lang i18n.Language) []suggest.Suggestion {
	if ot.Len(content) <= c.cfg.MinSuggestionLength {
		return nil
	}
	text, err := render("suggest.tmpl", struct{ Content, Language string }{content, lang.Name()})
	if err != nil {
		c.logger.Error("render suggestion prompt", zap.Error(err))
		return nil
	}

	out, err := c.generate(ctx, "suggest", c.cfg.SuggestionModel, []*genai.Part{genai.NewPartFromText(text)}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   suggestionSchema,
	})
	if err != nil {
		return nil
	}

	var raw []suggest.Suggestion
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		c.logger.Warn("malformed suggestions", zap.Error(err))
		return nil
	}
	for i := range raw {
		raw[i].ID = uuid.NewString()
	}
	return suggest.Locate(content, raw)
}
