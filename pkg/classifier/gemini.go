package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"time"

	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"google.golang.org/genai"
)

//GeminiID is the registry id of the Gemini classifier.
const GeminiID = "gemini"

const defaultGeminiModel = "gemini-2.0-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

//GeminiConfig configures the Gemini classifier. Delay is the minimum time between two calls.
type GeminiConfig struct {
	APIKey string
	Model  string
	Delay  time.Duration
}

//Gemini asks a multimodal LLM to label a shot from its crops.
type Gemini struct {
	models contentGenerator
	model  string
	delay  time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

//NewGemini connects to the Gemini API. A missing API key fails with shot.ErrClassifierUnavailable.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", shot.ErrClassifierUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shot.ErrClassifierUnavailable, err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(models contentGenerator, cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	return &Gemini{models: models, model: cfg.Model, delay: cfg.Delay}
}

func (g *Gemini) Name() string {
	return GeminiID
}

func (g *Gemini) Classify(ctx context.Context, role shot.RoleContext, crops shot.Crops) (shot.Prediction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.wait(ctx); err != nil {
		return shot.Prediction{}, err
	}

	parts := []*genai.Part{{Text: buildPrompt(role)}}
	for _, img := range []image.Image{crops.Player, crops.Partner, crops.PlayerAhead} {
		if img == nil {
			continue
		}
		data, err := encodeJPEG(img)
		if err != nil {
			return shot.Prediction{}, fmt.Errorf("%w: %v", shot.ErrClassifierUnavailable, err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: data}})
	}

	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	g.lastCall = time.Now()
	if err != nil {
		return shot.Prediction{}, fmt.Errorf("%w: %v", shot.ErrClassifierUnavailable, err)
	}

	return parsePrediction(responseText(resp))
}

//wait sleeps until the configured delay has passed since the previous call
func (g *Gemini) wait(ctx context.Context) error {
	if g.delay <= 0 || g.lastCall.IsZero() {
		return nil
	}

	remaining := g.delay - time.Since(g.lastCall)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func buildPrompt(role shot.RoleContext) string {
	var b strings.Builder
	b.WriteString("You are labelling one shot of a doubles tennis rally.\n")
	fmt.Fprintf(&b, "Shot %d of %d, frame %d, hit by %s (%s handed) from the %s court position.\n",
		role.Index+1, role.Total, role.Frame, role.PlayerID, role.Handedness, role.CourtPosition)

	b.WriteString("Images: the hitting player")
	b.WriteString(", then the partner of the hitting player, then the hitting player shortly after the shot, when present.\n")

	switch {
	case role.IsServe:
		b.WriteString("This shot is the serve. Give direction as one of t, b, w and formation as one of conventional, i-formation, australian.\n")
	case role.IsReturn:
		b.WriteString("This shot is the return of serve. Give direction as one of cc, dl.\n")
	default:
		b.WriteString("Give shot_type as one of volley, lob, smash, swing and direction as one of cc, dl.\n")
	}
	b.WriteString("Give side as one of forehand, backhand.\n")
	if role.IsLast {
		b.WriteString("This is the last shot of the rally. Give outcome as win when the shot won the point, err otherwise.\n")
	}

	b.WriteString(`Answer with a single JSON object with the keys "side", "shot_type", "direction", "formation", "outcome". Leave out keys you cannot tell.`)
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

//parsePrediction reads the model's JSON answer, bare or inside a ```json fence. Values are lowercased, vocabulary is checked by the Labeler.
func parsePrediction(text string) (shot.Prediction, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" {
		return shot.Prediction{}, fmt.Errorf("%w: empty response", shot.ErrClassifierUnavailable)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(bytes.NewReader([]byte(text))).Decode(&raw); err != nil {
		return shot.Prediction{}, fmt.Errorf("%w: could not parse response, got '%v'", shot.ErrClassifierUnavailable, err)
	}

	value := func(key string) string {
		v, _ := raw[key].(string) //numbers and nested objects are ignored
		return strings.ToLower(strings.TrimSpace(v))
	}
	return shot.Prediction{
		Side:      label.Side(value("side")),
		ShotType:  label.ShotType(value("shot_type")),
		Direction: label.Direction(value("direction")),
		Formation: label.Formation(value("formation")),
		Outcome:   label.Outcome(value("outcome")),
	}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
