package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"stockmeta/internal/fileprep"
	"stockmeta/internal/logging"
	"stockmeta/internal/metadata"
	"stockmeta/internal/platform"
	"stockmeta/internal/services"
	"stockmeta/internal/services/gemini"
)

var (
	// ErrMissingCredential is returned when no API key is available.
	ErrMissingCredential = fmt.Errorf("%w: missing api key", services.ErrConfiguration)
	// ErrEmptyResponse is returned when metadata mode gets no text back.
	ErrEmptyResponse = errors.New("no response text generated")
)

// FallbackPrompt is recorded when prompt mode returns no text.
const FallbackPrompt = "Failed to generate prompt."

// MaxDescriptionChars bounds the generated description.
const MaxDescriptionChars = 200

const (
	metadataTemperature = 0.3
	promptTemperature   = 0.7

	defaultRetryAttempts = 3
	defaultRetryBase     = 2 * time.Second
)

// Model is the slice of the Gemini client the generator needs.
type Model interface {
	GenerateContent(ctx context.Context, req gemini.Request) (gemini.Response, error)
}

// Input is one generation request.
type Input struct {
	Payload  fileprep.Payload
	Mode     metadata.Mode
	Platform platform.Platform
	Settings metadata.Settings
	APIKey   string
	// Name is used only for logging.
	Name string
}

// Option customizes a Generator.
type Option func(*Generator)

// WithRetryAttempts sets the total number of attempts for rate-limited calls.
func WithRetryAttempts(attempts int) Option {
	return func(g *Generator) {
		if attempts > 0 {
			g.attempts = attempts
		}
	}
}

// WithRetryBase sets the first backoff delay; later delays double.
func WithRetryBase(base time.Duration) Option {
	return func(g *Generator) {
		if base >= 0 {
			g.base = base
		}
	}
}

// WithSleeper overrides how backoff waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(g *Generator) {
		g.sleeper = sleeper
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithModelName overrides the model name sent with each request.
func WithModelName(name string) Option {
	return func(g *Generator) {
		g.modelName = strings.TrimSpace(name)
	}
}

// Generator produces metadata or prompt results.
type Generator struct {
	model     Model
	modelName string
	attempts  int
	base      time.Duration
	sleeper   func(time.Duration)
	logger    *slog.Logger
}

// New constructs a Generator over model.
func New(model Model, opts ...Option) *Generator {
	g := &Generator{
		model:    model,
		attempts: defaultRetryAttempts,
		base:     defaultRetryBase,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "generator")
	return g
}

// Generate runs one item through the model. A missing key fails before any
// network call. The returned Result matches in.Mode.
func (g *Generator) Generate(ctx context.Context, in Input) (metadata.Result, error) {
	if strings.TrimSpace(in.APIKey) == "" {
		return nil, ErrMissingCredential
	}
	if in.Payload == nil {
		return nil, services.Wrap(services.ErrValidation, "generator", "generate", "payload required", nil)
	}
	if in.Mode == metadata.ModeImageToPrompt {
		return g.generatePrompt(ctx, in)
	}
	return g.generateMetadata(ctx, in)
}

func (g *Generator) generateMetadata(ctx context.Context, in Input) (metadata.Result, error) {
	req := gemini.Request{
		APIKey:           in.APIKey,
		Model:            g.modelName,
		Parts:            []gemini.Part{payloadPart(in.Payload), {Text: BuildMetadataInstruction(in.Platform, in.Settings, fileprep.IsVectorPayload(in.Payload))}},
		Temperature:      gemini.Temperature(metadataTemperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   metadataSchema,
	}
	resp, err := g.call(ctx, in, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, ErrEmptyResponse
	}

	var decoded struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
	}
	if err := gemini.DecodeJSON(resp.Text, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "generator", "decode metadata", in.Name, err)
	}
	result := metadata.MetadataResult{
		Title:       strings.TrimSpace(decoded.Title),
		Description: ClampDescription(strings.TrimSpace(decoded.Description), MaxDescriptionChars),
		Keywords:    cleanKeywords(decoded.Keywords),
	}
	g.logger.Debug("metadata generated",
		logging.String(logging.FieldItemID, in.Name),
		logging.Int("keywords", len(result.Keywords)),
		logging.Int("description_chars", len([]rune(result.Description))),
	)
	return result, nil
}

func (g *Generator) generatePrompt(ctx context.Context, in Input) (metadata.Result, error) {
	req := gemini.Request{
		APIKey:      in.APIKey,
		Model:       g.modelName,
		Parts:       []gemini.Part{payloadPart(in.Payload), {Text: PromptInstruction}},
		Temperature: gemini.Temperature(promptTemperature),
	}
	resp, err := g.call(ctx, in, req)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		text = FallbackPrompt
	}
	return metadata.PromptResult{Text: text}, nil
}

func (g *Generator) call(ctx context.Context, in Input, req gemini.Request) (gemini.Response, error) {
	return withRateLimitRetry(ctx, g, func() (gemini.Response, error) {
		// Give the UI-facing goroutines a turn before each blocking call.
		runtime.Gosched()
		return g.model.GenerateContent(ctx, req)
	}, in.Name)
}

func payloadPart(p fileprep.Payload) gemini.Part {
	switch v := p.(type) {
	case fileprep.InlinePayload:
		return gemini.Part{InlineData: &gemini.InlineData{MIMEType: v.MIMEType, Data: v.Data}}
	case fileprep.TextPayload:
		return gemini.Part{Text: v.Text}
	default:
		return gemini.Part{}
	}
}

var metadataSchema = &gemini.Schema{
	Type: "OBJECT",
	Properties: map[string]*gemini.Schema{
		"title":       {Type: "STRING", Description: "SEO optimized title for the image"},
		"description": {Type: "STRING", Description: "Detailed description for the image, under 200 characters"},
		"keywords": {
			Type:        "ARRAY",
			Items:       &gemini.Schema{Type: "STRING"},
			Description: "List of relevant keywords, sorted by relevance",
		},
	},
	Required: []string{"title", "description", "keywords"},
}

func cleanKeywords(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// ClampDescription shortens s to at most limit runes, cutting at the last
// word boundary when one exists in the kept prefix.
func ClampDescription(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(strings.TrimSpace(cut), ",;:-")
}
