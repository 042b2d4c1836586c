package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/upload"
)

const (
	fullMaxOutputTokens = 4000
	fullThinkingBudget  = 2000
)

// ProviderSubmitter calls the generative provider directly with the media
// inlined. It is used when no backend analysis service is configured.
type ProviderSubmitter struct {
	api      gateway.Doer
	endpoint string
	model    string
	apiKey   string
	readFile func(string) ([]byte, error)
}

var _ Submitter = (*ProviderSubmitter)(nil)

// NewProviderSubmitter builds a submitter for the generateContent REST API.
func NewProviderSubmitter(api gateway.Doer, endpoint, model, apiKey string) (*ProviderSubmitter, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("provider endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("parse provider endpoint: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("provider model is required")
	}
	return &ProviderSubmitter{
		api:      api,
		endpoint: endpoint,
		model:    strings.TrimSpace(model),
		apiKey:   strings.TrimSpace(apiKey),
		readFile: os.ReadFile,
	}, nil
}

// Submit sends one generateContent request. Full mode reserves an output
// and thinking budget; degraded mode leaves both to the provider defaults.
func (p *ProviderSubmitter) Submit(ctx context.Context, ref upload.MediaReference, mode Mode) (any, error) {
	if p.apiKey == "" {
		return nil, gateway.Validation("provider API key is not configured")
	}
	if ref.LocalPath == "" {
		return nil, gateway.Validation("provider analysis needs a local media file")
	}
	media, err := p.readFile(ref.LocalPath)
	if err != nil {
		return nil, gateway.Validation("read media: %v", err)
	}
	mimeType := ref.MIMEType
	if mimeType == "" {
		mimeType = upload.MIMEType(ref.Filename)
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	body := buildGenerateRequest(media, mimeType, ref.Trim, mode)
	var resp generateResponse
	req := gateway.Request{
		Method: http.MethodPost,
		URL:    p.endpoint + "/v1beta/models/" + url.PathEscape(p.model) + ":generateContent",
		JSON:   body,
		Header: http.Header{"X-Goog-Api-Key": []string{p.apiKey}},
	}
	if err := p.api.Do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("generate content (%s): %w", mode, err)
	}

	text := resp.text()
	if text == "" {
		if reason := resp.blockReason(); reason != "" {
			return nil, fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, reason)
		}
		return nil, ErrEmptyResponse
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(stripFence(text))))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &gateway.Error{Kind: gateway.KindServer, Endpoint: "generateContent", Detail: "provider returned malformed JSON", Err: err}
	}
	return raw, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text          string         `json:"text,omitempty"`
	Thought       bool           `json:"thought,omitempty"`
	InlineData    *inlineData    `json:"inlineData,omitempty"`
	VideoMetadata *videoMetadata `json:"videoMetadata,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type videoMetadata struct {
	StartOffset string `json:"startOffset,omitempty"`
	EndOffset   string `json:"endOffset,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType"`
	ResponseSchema   map[string]any  `json:"responseSchema"`
	MaxOutputTokens  int             `json:"maxOutputTokens,omitempty"`
	ThinkingConfig   *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

func (r generateResponse) blockReason() string {
	return r.PromptFeedback.BlockReason
}

func buildGenerateRequest(media []byte, mimeType string, trim *upload.TrimWindow, mode Mode) generateRequest {
	mediaPart := part{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(media)}}
	if trim != nil {
		mediaPart.VideoMetadata = &videoMetadata{StartOffset: seconds(trim.Start), EndOffset: seconds(trim.End)}
	}
	cfg := generationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   reportSchema(),
	}
	if mode == ModeFull {
		cfg.MaxOutputTokens = fullMaxOutputTokens
		cfg.ThinkingConfig = &thinkingConfig{ThinkingBudget: fullThinkingBudget}
	}
	return generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{mediaPart, {Text: analysisPrompt}}}},
		GenerationConfig: cfg,
	}
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "s"
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

const analysisPrompt = `You are a badminton sports scientist and biomechanics analyst. Quantify the smash in this clip precisely and conservatively.

1. Distance and physics: use court references (a standard court is 13.40 m long and 6.10 m wide, the net is 1.55 m high) to estimate the shuttle's flight from the impact point to the landing point, estimate the time of flight, and derive the initial speed in km/h.
2. Biomechanics: check the kinetic chain from leg drive through hip rotation, chest, upper arm, forearm, wrist and fingers, and whether contact is at the highest point in front of the body.
3. Plausibility: amateur beginners are below 150 km/h, intermediate to advanced amateurs 150 to 250 km/h, professionals above 250 km/h. Never report a speed the footage cannot support.

Return only the structured JSON report. Write every text field in Simplified Chinese.`

func reportSchema() map[string]any {
	integer := func(desc string) map[string]any { return map[string]any{"type": "INTEGER", "description": desc} }
	str := func(desc string) map[string]any { return map[string]any{"type": "STRING", "description": desc} }
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"speed":        integer("Smash speed in km/h derived from the flight physics"),
			"rank":         integer("Percentile rank from 0 to 100"),
			"rankPosition": integer("Top X percent, e.g. 5 for the top 5%"),
			"level":        str("Skill level label"),
			"technique": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"power":        integer("Explosive power 0-100 based on the kinetic chain"),
					"angle":        integer("Smash angle 0-100"),
					"coordination": integer("Body coordination 0-100"),
				},
				"required": []string{"power", "angle", "coordination"},
			},
			"score": map[string]any{"type": "NUMBER", "description": "Overall score out of 10.0"},
			"suggestions": map[string]any{
				"type": "ARRAY",
				"items": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"title":     str("Technical suggestion title"),
						"desc":      str("Biomechanical correction advice"),
						"icon":      str("Material symbol name"),
						"highlight": str("Key data point, e.g. 15° or 0.2s"),
					},
					"required": []string{"title", "desc", "icon", "highlight"},
				},
			},
		},
		"required": []string{"speed", "level", "technique", "score", "suggestions"},
	}
}
