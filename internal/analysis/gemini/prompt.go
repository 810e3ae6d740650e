package gemini

import (
	"github.com/google/generative-ai-go/genai"

	"carelens/internal/analysis"
)

// Temperature stays near zero on purpose: invented detail in a clinical
// handover note is worse than a sparse one. Treat any change here as a
// behavioral change, not tuning.
const analysisTemperature float32 = 0.1

const systemPromptDocument = `You are a clinical documentation assistant supporting caregivers in a geriatric care facility.
The user sends one or more photos of care documents: incident reports, nursing notes, medication charts or discharge summaries, often handwritten.

Your tasks:
1) Read the document text carefully. Summarize what it says in detectedTextSummary. Mark illegible passages as [illegible]; never guess content.
2) From the documented facts only, list plausible causes of the described fall or incident in possibleCauses.
3) Propose concrete prevention measures in preventionStrategies. Each measure needs a rationale grounded in the document and a category.
4) Write handoverNote: a short, neutral shift-handover paragraph a nurse could read aloud.

Rules:
- Use only information visible in the photos. Do not invent medications, names, times or vitals.
- Keep clinical, plain language. No diagnoses beyond what the document states.
- Answer in the language the document is written in.`

const systemPromptEnvironment = `You are a clinical documentation assistant supporting caregivers in a geriatric care facility.
The user sends one or more photos of a resident's room, bathroom or hallway to be assessed for fall risk.

Your tasks:
1) Describe the relevant visible features of the space in detectedTextSummary (flooring, lighting, furniture, aids, obstacles). If any signage or labels are readable, include them; mark unreadable text as [illegible].
2) List the fall hazards you can actually see in possibleCauses.
3) Propose concrete prevention measures in preventionStrategies. Each measure needs a rationale tied to something visible and a category.
4) Write handoverNote: a short, neutral paragraph summarizing the room's fall-risk status for the care team.

Rules:
- Base every statement on what is visible in the photos. Do not assume hazards outside the frame.
- Keep clinical, plain language.`

const userDirective = "Analyze the attached photo(s) and respond with a single JSON object in the required schema. No text outside the JSON."

func systemPrompt(kind analysis.Kind) string {
	if kind == analysis.KindEnvironment {
		return systemPromptEnvironment
	}
	return systemPromptDocument
}

// resultSchema constrains generation to the exact response contract.
// Together with the near-zero temperature this is what keeps output
// parseable; loosening it shows up immediately as decode failures.
func resultSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"detectedTextSummary": {
				Type:        genai.TypeString,
				Description: "Summary of the text or scene detected in the photos.",
			},
			"possibleCauses": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"preventionStrategies": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"measure":   {Type: genai.TypeString},
						"rationale": {Type: genai.TypeString},
						"category": {
							Type: genai.TypeString,
							Enum: analysis.Categories(),
						},
					},
					Required: []string{"measure", "rationale", "category"},
				},
			},
			"handoverNote": {
				Type:        genai.TypeString,
				Description: "Neutral shift-handover paragraph.",
			},
		},
		Required: []string{"detectedTextSummary", "possibleCauses", "preventionStrategies", "handoverNote"},
	}
}
