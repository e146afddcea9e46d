package ai

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"

	"mspro-labs/eco-buddy/internal/config"
)

var (
	ErrMissingKey    = eris.New("ai: GEMINI_API_KEY is required")
	ErrEmptyResponse = eris.New("ai: model returned no content")
)

// Client wraps the GenAI client with one embedding model and one chat model.
type Client struct {
	genaiClient *genai.Client
	embedder    *genai.EmbeddingModel
	chat        *genai.GenerativeModel
}

// NewClient creates a connected AI client.
func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingKey
	}

	c, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, eris.Wrap(err, "ai: create client")
	}

	chat := c.GenerativeModel(cfg.ChatModel)
	chat.SetTemperature(cfg.Temperature)

	return &Client{
		genaiClient: c,
		embedder:    c.EmbeddingModel(cfg.EmbeddingModel),
		chat:        chat,
	}, nil
}

// Close terminates the connection.
func (c *Client) Close() {
	if c.genaiClient != nil {
		c.genaiClient.Close()
	}
}

// EmbedString generates a vector for the given text and returns it as a byte slice (for DB storage).
// It also returns the raw []float32 if needed immediately.
func (c *Client) EmbedString(ctx context.Context, text string) ([]byte, []float32, error) {
	res, err := c.embedder.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, nil, eris.Wrap(err, "ai: embed")
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, nil, ErrEmptyResponse
	}

	blob, err := FloatsToBytes(res.Embedding.Values)
	if err != nil {
		return nil, nil, err
	}
	return blob, res.Embedding.Values, nil
}

// Generate sends a single-turn prompt to the chat model and returns its text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chat.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", eris.Wrap(err, "ai: generate")
	}
	return ResponseText(resp)
}

// ResponseText joins the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// --- Vector Math Helpers ---

// CosineSimilarity calculates the similarity between two vectors (0.0 to 1.0).
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dotProduct, magA, magB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dotProduct / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB))))
}

// FloatsToBytes converts a []float32 slice to a []byte slice (BLOB) for SQLite.
func FloatsToBytes(floats []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, floats); err != nil {
		return nil, eris.Wrap(err, "ai: encode vector")
	}
	return buf.Bytes(), nil
}

// BytesToFloats converts the stored byte slice back to []float32.
func BytesToFloats(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, eris.Errorf("ai: invalid vector length %d", len(b))
	}
	floats := make([]float32, len(b)/4)
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &floats)
	return floats, err
}
