package models

// ComplexityLevel grades a complexity factor.
type ComplexityLevel string

const (
	ComplexityLow    ComplexityLevel = "low"
	ComplexityMedium ComplexityLevel = "medium"
	ComplexityHigh   ComplexityLevel = "high"
)

// ComplexityBreakdown holds the per-category sub-scores. Each category has a
// fixed cap: frontend <= 3, backend <= 4, infrastructure <= 3.
type ComplexityBreakdown struct {
	Frontend       int `json:"frontend"`
	Backend        int `json:"backend"`
	Infrastructure int `json:"infrastructure"`
}

// ComplexityFactors are the qualitative factors derived alongside the score.
type ComplexityFactors struct {
	CustomCode               bool            `json:"custom_code"`
	FrameworkComplexity      ComplexityLevel `json:"framework_complexity"`
	InfrastructureComplexity ComplexityLevel `json:"infrastructure_complexity"`
	TechnologyCount          int             `json:"technology_count"`
	LicensingComplexity      bool            `json:"licensing_complexity"`
}

// ComplexityResult is the deterministic complexity assessment of a detected
// technology list. Identical inputs always produce identical results.
type ComplexityResult struct {
	Score       int                 `json:"score"` // 1-10
	Breakdown   ComplexityBreakdown `json:"breakdown"`
	Factors     ComplexityFactors   `json:"factors"`
	Explanation string              `json:"explanation"`
}

// ClonabilityRating is the human-facing band derived from the score.
type ClonabilityRating string

const (
	ClonabilityVeryEasy      ClonabilityRating = "very-easy"
	ClonabilityEasy          ClonabilityRating = "easy"
	ClonabilityModerate      ClonabilityRating = "moderate"
	ClonabilityDifficult     ClonabilityRating = "difficult"
	ClonabilityVeryDifficult ClonabilityRating = "very-difficult"
)

// ClonabilityComponent is one weighted input to the composite score.
type ClonabilityComponent struct {
	Score  int     `json:"score"` // 1-10
	Weight float64 `json:"weight"`
}

// ClonabilityComponents holds the four weighted components. The weights sum
// to exactly 1.0.
type ClonabilityComponents struct {
	TechnicalComplexity  ClonabilityComponent `json:"technical_complexity"`
	MarketOpportunity    ClonabilityComponent `json:"market_opportunity"`
	ResourceRequirements ClonabilityComponent `json:"resource_requirements"`
	TimeToMarket         ClonabilityComponent `json:"time_to_market"`
}

// ClonabilityScore is the composite feasibility estimate for replicating a
// business's technical and market profile.
type ClonabilityScore struct {
	Score          int                   `json:"score"` // 1-10
	Rating         ClonabilityRating     `json:"rating"`
	Components     ClonabilityComponents `json:"components"`
	Confidence     float64               `json:"confidence"` // 0.0-1.0
	Recommendation string                `json:"recommendation"`
}
