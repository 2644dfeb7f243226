package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/"
	DefaultGeminiModel    = "gemini-2.5-flash"

	geminiAPIVersion = "v1beta"
)

const detectionPrompt = `You analyse dermoscopic (trichoscopy) images of the human scalp.
Work only inside the central, brightly lit circular region of the scalp. The dark ring around it is the
instrument viewport: never place annotations there.
For every individual hair shaft inside the region:
- classify it as 'Terminal Hair' (thick, coarse, dark) or 'Vellus Hair' (noticeably thinner, shorter, lighter);
- give the (x, y) pixel coordinates of its centre relative to the image you received, origin at the top-left corner;
- suggest a radius between 3 and 8 pixels matching the hair thickness.
Return only a JSON array that follows the response schema, with no other text.`

// proposalSchema структура одного элемента ответа детектора.
// Модель не всегда соблюдает responseSchema, поэтому элементы проверяются повторно.
const proposalSchema = `{
	"type": "object",
	"required": ["x", "y", "type", "radius"],
	"properties": {
		"x": {"type": "number"},
		"y": {"type": "number"},
		"type": {"type": "string"},
		"radius": {"type": "number"}
	}
}`

// responseSchema то же описание в терминах Gemini API
var responseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"x":      {Type: genai.TypeNumber, Description: "The x-coordinate of the hair's center."},
			"y":      {Type: genai.TypeNumber, Description: "The y-coordinate of the hair's center."},
			"type":   {Type: genai.TypeString, Description: "The type of the hair ('Vellus Hair' or 'Terminal Hair')."},
			"radius": {Type: genai.TypeNumber, Description: "A suggested radius for the annotation circle."},
		},
		Required:         []string{"x", "y", "type", "radius"},
		PropertyOrdering: []string{"x", "y", "type", "radius"},
	},
}

// GeminiDetector размечает снимки через Gemini generateContent
type GeminiDetector struct {
	Model string

	client *genai.Client
	schema *jsonschema.Schema
}

// NewGeminiDetector создаёт детектор. Пустой ключ допустим: клиент тогда
// не создаётся и каждый вызов завершается ErrExternalService, как при отказе сервиса.
func NewGeminiDetector(ctx context.Context, apiKey, model, endpoint string, timeout time.Duration) (*GeminiDetector, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	if endpoint == "" {
		endpoint = DefaultGeminiEndpoint
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("proposal.json", strings.NewReader(proposalSchema)); err != nil {
		return nil, fmt.Errorf("add proposal schema: %w", err)
	}
	schema, err := compiler.Compile("proposal.json")
	if err != nil {
		return nil, fmt.Errorf("compile proposal schema: %w", err)
	}

	d := &GeminiDetector{Model: model, schema: schema}
	if apiKey == "" {
		return d, nil
	}

	d.client, err = genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    endpoint,
			APIVersion: geminiAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return d, nil
}

// Detect отправляет снимок и разбирает JSON-массив отметок.
// Пустой или некорректный ответ даёт пустой результат без ошибки.
func (d *GeminiDetector) Detect(ctx context.Context, imageData []byte, mimeType string) ([]entity.ProposedAnnotation, error) {
	if d.client == nil {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", entity.ErrExternalService)
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			{Text: detectionPrompt},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	}

	resp, err := d.client.Models.GenerateContent(ctx, d.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", entity.ErrExternalService, err)
	}
	return d.parseProposals(resp.Text()), nil
}

// parseProposals разбирает текст ответа. Элементы, не прошедшие схему, отбрасываются по одному.
func (d *GeminiDetector) parseProposals(text string) []entity.ProposedAnnotation {
	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		log.Printf("gemini: empty response")
		return nil
	}
	if !gjson.Valid(text) {
		log.Printf("gemini: response is not valid JSON")
		return nil
	}
	parsed := gjson.Parse(text)
	if !parsed.IsArray() {
		log.Printf("gemini: response is not a JSON array")
		return nil
	}

	var out []entity.ProposedAnnotation
	parsed.ForEach(func(key, value gjson.Result) bool {
		var doc any
		if err := json.Unmarshal([]byte(value.Raw), &doc); err != nil {
			log.Printf("gemini: item %d: %v", key.Int(), err)
			return true
		}
		if err := d.schema.Validate(doc); err != nil {
			log.Printf("gemini: item %d does not match schema: %v", key.Int(), err)
			return true
		}
		out = append(out, entity.ProposedAnnotation{
			X:      value.Get("x").Float(),
			Y:      value.Get("y").Float(),
			Type:   value.Get("type").String(),
			Radius: value.Get("radius").Float(),
		})
		return true
	})
	return out
}

// stripCodeFence убирает обёртку ```json ... ```, которую модель иногда добавляет
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// Проверка реализации интерфейса
var _ port.AnnotationDetector = (*GeminiDetector)(nil)
