// Package analysis defines the incident-analysis contract shared by the
// proxy, the model engines and the client surfaces.
package analysis

import "encoding/json"

// Kind selects which of the two photo situations the model is briefed for.
type Kind string

const (
	// KindDocument is a photographed care note, discharge summary or
	// medication chart whose text should be read and summarized.
	KindDocument Kind = "document"
	// KindEnvironment is a room or hallway photo assessed for fall hazards.
	KindEnvironment Kind = "environment"
)

// Category classifies a prevention measure.
type Category string

const (
	CategoryEnvironment Category = "Environment"
	CategoryPhysical    Category = "Physical"
	CategoryMedication  Category = "Medication"
	CategoryCare        Category = "Care"
	CategoryOther       Category = "Other"
)

// Categories lists the admissible category values in schema order.
func Categories() []string {
	return []string{
		string(CategoryEnvironment),
		string(CategoryPhysical),
		string(CategoryMedication),
		string(CategoryCare),
		string(CategoryOther),
	}
}

// PreventionMeasure is one recommended intervention.
type PreventionMeasure struct {
	Measure   string   `json:"measure"`
	Rationale string   `json:"rationale"`
	Category  Category `json:"category"` // "Environment" | "Physical" | "Medication" | "Care" | "Other"
}

// Result is the analysis response contract. The model must return exactly
// this shape; the schema sent with the request enforces it upstream and
// the strict decode enforces it here.
type Result struct {
	DetectedTextSummary  string              `json:"detectedTextSummary"`
	PossibleCauses       []string            `json:"possibleCauses"`
	PreventionStrategies []PreventionMeasure `json:"preventionStrategies"`
	HandoverNote         string              `json:"handoverNote"`
}

// Image is one inline photo attached to a request.
type Image struct {
	Data []byte
	MIME string
}

// Request carries the decoded photos and the situation kind for one
// analysis call.
type Request struct {
	Images []Image
	Kind   Kind
}

// Response pairs the decoded result with the raw model text. Raw is what
// the proxy relays on 200 so clients see the model's own bytes, not a
// re-marshal.
type Response struct {
	Result Result
	Raw    json.RawMessage
}
