package entities

import "time"

// Recommendation is the hiring verdict produced by interview summarization.
type Recommendation string

const (
	RecommendationStrongHire  Recommendation = "Strong Hire"
	RecommendationHire        Recommendation = "Hire"
	RecommendationLeaningHire Recommendation = "Leaning Hire"
	RecommendationNeutral     Recommendation = "Neutral"
	RecommendationLeaningNo   Recommendation = "Leaning No"
	RecommendationNoHire      Recommendation = "No Hire"
)

// Valid reports whether r is one of the six known verdicts.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationStrongHire, RecommendationHire, RecommendationLeaningHire,
		RecommendationNeutral, RecommendationLeaningNo, RecommendationNoHire:
		return true
	}
	return false
}

// InterviewSummary is the structured model reply for a transcript. When the
// model answers with non-JSON text, Summary carries the raw text and Error
// explains the parse failure.
type InterviewSummary struct {
	Summary               string         `json:"summary" bson:"summary"`
	KeyStrengths          []string       `json:"key_strengths" bson:"key_strengths"`
	Concerns              []string       `json:"concerns" bson:"concerns"`
	SkillsMentioned       []string       `json:"skills_mentioned" bson:"skills_mentioned"`
	NotableQuotes         []string       `json:"notable_quotes" bson:"notable_quotes"`
	OverallRecommendation Recommendation `json:"overall_recommendation,omitempty" bson:"overall_recommendation,omitempty"`
	Error                 string         `json:"error,omitempty" bson:"error,omitempty"`
}

// ResumeAnalysis is the structured model reply for resume text.
type ResumeAnalysis struct {
	Summary     string   `json:"summary"`
	Skills      []string `json:"skills"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	RawAnalysis string   `json:"raw_analysis,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Usage reports token consumption of a model call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExtractedDocument is the plain text of an uploaded resume.
type ExtractedDocument struct {
	Text  string            `json:"text"`
	Pages int               `json:"pages"`
	Info  map[string]string `json:"info"`
}

// Guidelines holds organization-specific onboarding guidance used by the
// onboarding assistant.
type Guidelines struct {
	Text      string    `json:"text" bson:"text"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
