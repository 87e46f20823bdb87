package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// --- Alt-Text Model Prompts ---
const AltTextSystemPrompt = "You are an accessibility specialist writing alternative text for figures in PDF documents. Your descriptions must let a screen-reader user understand exactly what each image conveys."
const AltTextUserPrompt = `You will be provided with a tagged PDF document fragment.

For every figure in the fragment, write concise alternative text:

Describe the information the image conveys, not its appearance. Charts and diagrams get their key data points or relationships spelled out.
Decorative images get the single word "decorative".
Do not start descriptions with "image of" or "picture of".
Keep each description under 250 characters.

Return the descriptions as plain text, one per line, in the order the figures appear in the document.`

// --- Link-Text Model Prompts ---
const LinkTextSystemPrompt = "You are an accessibility specialist rewriting link text in PDF documents. Ambiguous link text such as 'click here' or a bare URL must become text that describes the link target."
const LinkTextUserPrompt = `You will be provided with a tagged PDF document fragment.

For every hyperlink in the fragment, produce descriptive link text:

State where the link leads or what the reader gets by following it.
Never output "here", "click here", "read more", or a raw URL.
Keep each link text under 80 characters.

Return the link texts as plain text, one per line, in the order the links appear in the document.`

// --- Title Model Prompts ---
const TitleSystemPrompt = "You are a document analyst. Your task is to produce the single best title for a PDF document."
const TitleUserPrompt = `You will be provided with a PDF document.

Produce one concise, descriptive title for the document:

Prefer the document's own title page or heading if one exists.
Otherwise derive a title from the document's subject and content.
Maximum 120 characters. No quotes, no trailing punctuation.

Return ONLY the title text. Do not include any preamble like "Here is the title".`

// VertexClient holds all pre-configured generative models for the pipeline.
type VertexClient struct {
	AltTextModel  *genai.GenerativeModel
	LinkTextModel *genai.GenerativeModel
	TitleModel    *genai.GenerativeModel
	baseClient    *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	altTextModel := baseClient.GenerativeModel("gemini-1.5-pro")
	altTextModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(AltTextSystemPrompt)},
	}

	linkTextModel := baseClient.GenerativeModel("gemini-1.5-pro")
	linkTextModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(LinkTextSystemPrompt)},
	}

	titleModel := baseClient.GenerativeModel("gemini-1.5-pro")
	titleModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TitleSystemPrompt)},
	}
	titleModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0), // Low temp for a stable, reproducible title
	}

	return &VertexClient{
		AltTextModel:  altTextModel,
		LinkTextModel: linkTextModel,
		TitleModel:    titleModel,
		baseClient:    baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// Generate runs the model for the given kind over a PDF payload and returns
// the generated text. It satisfies services.GenerativeService.
func (c *VertexClient) Generate(ctx context.Context, content []byte, kind models.GenerationKind) (string, error) {
	var (
		model  *genai.GenerativeModel
		prompt string
	)
	switch kind {
	case models.GenerateAltText:
		model, prompt = c.AltTextModel, AltTextUserPrompt
	case models.GenerateLinkText:
		model, prompt = c.LinkTextModel, LinkTextUserPrompt
	case models.GenerateTitle:
		model, prompt = c.TitleModel, TitleUserPrompt
	default:
		return "", fmt.Errorf("unknown generation kind %q", kind)
	}

	filePart := genai.Blob{
		MIMEType: "application/pdf",
		Data:     content,
	}
	resp, err := model.GenerateContent(ctx, filePart, genai.Text(prompt))
	if err != nil {
		// Availability and quota problems on the model endpoint are the
		// normal failure mode here; let the caller's retry budget absorb them.
		return "", models.NewError(models.KindTransientService, "vertex", fmt.Errorf("failed to generate %s content: %w", kind, err))
	}

	text := ExtractText(resp)
	if refused(text) {
		return "", fmt.Errorf("gemini response indicates refusal for %s generation", kind)
	}
	return text, nil
}

// ExtractText parses the model's response and robustly extracts text content,
// concatenating multiple text parts and stripping markdown fences.
func ExtractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}

	content := strings.TrimSpace(b.String())
	content = strings.TrimPrefix(content, "```markdown")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// Sanity check for LLM refusal. A refusal must fail fast instead of being
// written into a document.
func refused(content string) bool {
	refusalPhrases := []string{
		"i am unable to",
		"i cannot fulfill",
		"i cannot answer",
		"i cannot provide",
		"as a large language model",
	}
	lower := strings.ToLower(content)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
