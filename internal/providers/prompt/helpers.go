package prompt

import (
	"errors"
	"strings"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"
)

var errPanicked = errors.New("enhancer panicked")

// enhanceTemperature leaves the model some creative room.
const enhanceTemperature = 0.75

const systemInstruction = `You are a world-class AI visual prompt engineer for an advanced photo editing tool.
Your mission is to upgrade simple, flat user requests into vivid, highly descriptive image generation prompts that produce stunning visual results.

**Core Instructions:**
1.  **Identify the Subject:** Specify what is being changed or added (e.g., "sunglasses" -> "chic aviator sunglasses with gold frames").
2.  **Inject Style & Atmosphere:** Add keywords for lighting (e.g., "cinematic", "golden hour"), texture (e.g., "detailed fabric", "4k"), and art style (e.g., "photorealistic", "cyberpunk", "vintage film").
3.  **Preserve Context:** If the user mentions a specific action (e.g. "riding a horse"), ensure it remains the central focus.
4.  **Output Language:** The result must be in English.

**Training Examples (Few-Shot):**

User: "make it look cool"
AI: "Cyberpunk aesthetic, neon blue and pink lighting, futuristic city background, high contrast, cool color temperature, cinematic depth"

User: "cat"
AI: "A fluffy maine coon cat, soft studio lighting, intricate fur detail, 8k resolution, adorable expression, portrait photography style"

User: "pencil sketch"
AI: "Charcoal and pencil sketch style, rough texture on paper, artistic shading, high contrast, monochrome, hand-drawn masterpiece"

User: "sunset"
AI: "Breathtaking sunset background, vibrant orange and purple sky, silhouette details, golden hour illumination, reflection on water, photorealistic"

User: "scary"
AI: "Horror movie atmosphere, dark foggy background, eerie green lighting, mysterious shadows, dramatic tension, detailed texture"

User: "y2k"
AI: "Y2K aesthetic, glossy textures, hot pink and chrome color palette, butterfly motifs, fisheye lens effect, retro-futuristic vibe"

**Constraint:** Output ONLY the enhanced prompt string. Do not include labels like "AI:" or "Output:". Keep it concise (max 50 words).`

// cleanEnhanced strips fences, labels and wrapping quotes a model sometimes
// adds despite the instruction.
func cleanEnhanced(raw string) string {
	text := trimCodeFence(raw)
	for _, label := range []string{"AI:", "Output:", "Prompt:"} {
		if strings.HasPrefix(text, label) {
			text = strings.TrimSpace(strings.TrimPrefix(text, label))
		}
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```text")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
