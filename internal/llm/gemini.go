package llm

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	genai "google.golang.org/genai"

	"civicdiff/internal/digest"
)

// Gemini is a thin wrapper around the official genai client.
type Gemini struct {
	cli   *genai.Client
	model string
	log   *zap.Logger
}

// NewGemini builds the provider client. An empty API key is a
// configuration error, reported at construction rather than per call.
func NewGemini(ctx context.Context, cfg Config, log *zap.Logger) (*Gemini, error) {
	if !cfg.HasKey() {
		return nil, &FatalError{Err: errors.New("GEMINI_API_KEY is not set")}
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gemini{cli: cli, model: cfg.Model, log: log}, nil
}

func (g *Gemini) Name() string { return "Gemini:" + g.model }
func (g *Gemini) Close() error { return nil }

func responseSchema(shape Shape) *genai.Schema {
	switch shape {
	case ShapeDigest:
		return digest.DigestResponseSchema()
	case ShapeSelfcheck:
		return digest.SelfcheckResponseSchema()
	default:
		return nil
	}
}

// GenerateJSON issues one structured-output call. The reply text must be
// JSON; anything else is ErrInvalidJSON wrapped as fatal.
func (g *Gemini) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if s := responseSchema(req.Shape); s != nil {
		cfg.ResponseSchema = s
	}

	g.log.Debug("provider request",
		zap.String("model", model),
		zap.Int("prompt_bytes", len(req.Prompt)),
		zap.Float32("temperature", req.Temperature),
	)

	resp, err := g.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}, Role: genai.RoleUser}},
		cfg,
	)
	if err != nil {
		return nil, Classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &TransientError{Err: ErrInvalidJSON}
	}
	txt := resp.Candidates[0].Content.Parts[0].Text
	if !json.Valid([]byte(txt)) {
		return nil, malformed(errors.New("non-JSON reply"))
	}
	return json.RawMessage(txt), nil
}
