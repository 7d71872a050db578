package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// Component weights. They sum to exactly 1.0.
const (
	WeightTechnicalComplexity  = 0.4
	WeightMarketOpportunity    = 0.3
	WeightResourceRequirements = 0.2
	WeightTimeToMarket         = 0.1
)

// Fallback values used when cost or duration strings carry no digits.
const (
	defaultDevelopmentCost = 50_000
	defaultDurationWeeks   = 24
)

// MarketSignals summarizes the market analysis available for the business.
type MarketSignals struct {
	Strengths       int
	Weaknesses      int
	Opportunities   int
	Threats         int
	CompetitorCount int

	HasMarketData     bool
	HasCompetitorData bool
}

// SWOTItemCount returns the total number of SWOT items present.
func (m *MarketSignals) SWOTItemCount() int {
	if m == nil {
		return 0
	}
	return m.Strengths + m.Weaknesses + m.Opportunities + m.Threats
}

// ResourceEstimates summarizes what cloning the business is expected to
// cost. Cost fields are free-text estimates such as "$25,000-$40,000".
type ResourceEstimates struct {
	DevelopmentCost    string
	InfrastructureCost string // monthly
	MinTeamSize        int
}

// ClonabilityInput is everything the clonability scorer consumes.
type ClonabilityInput struct {
	Complexity        *models.ComplexityResult
	Market            *MarketSignals
	Resources         *ResourceEstimates
	RealisticTimeline string // free-text duration, e.g. "12-16 weeks"
}

// ComputeClonability combines complexity, market signals and resource/time
// estimates into a weighted 1-10 composite score with a confidence value.
// Malformed cost or duration strings never fail; they fall back to fixed
// defaults.
func ComputeClonability(input ClonabilityInput) *models.ClonabilityScore {
	technical := technicalScore(input.Complexity)
	market := marketScore(input.Market)
	resources := resourceScore(input.Resources)
	timeToMarket := timeScore(input.RealisticTimeline)

	weighted := float64(technical)*WeightTechnicalComplexity +
		float64(market)*WeightMarketOpportunity +
		float64(resources)*WeightResourceRequirements +
		float64(timeToMarket)*WeightTimeToMarket
	score := clampScore(int(math.Round(weighted)))

	rating := ratingFor(score)

	return &models.ClonabilityScore{
		Score:  score,
		Rating: rating,
		Components: models.ClonabilityComponents{
			TechnicalComplexity:  models.ClonabilityComponent{Score: technical, Weight: WeightTechnicalComplexity},
			MarketOpportunity:    models.ClonabilityComponent{Score: market, Weight: WeightMarketOpportunity},
			ResourceRequirements: models.ClonabilityComponent{Score: resources, Weight: WeightResourceRequirements},
			TimeToMarket:         models.ClonabilityComponent{Score: timeToMarket, Weight: WeightTimeToMarket},
		},
		Confidence:     confidenceFor(input),
		Recommendation: recommendationFor(rating, technical),
	}
}

// technicalScore inverts complexity: simpler stacks are easier to clone.
func technicalScore(complexity *models.ComplexityResult) int {
	if complexity == nil {
		return 11 - 5 // neutral midpoint when no detection ran
	}
	return 11 - complexity.Score
}

// marketScore starts at a baseline of 5 and is adjusted by SWOT balance and
// competitor saturation.
func marketScore(m *MarketSignals) int {
	score := 5
	if m == nil {
		return score
	}

	if m.Opportunities > m.Threats {
		score++
	} else if m.Threats > m.Opportunities {
		score--
	}
	if m.Weaknesses > m.Strengths {
		// Weak incumbents leave room to out-execute.
		score++
	}

	if m.HasCompetitorData {
		switch {
		case m.CompetitorCount == 0:
			score += 2
		case m.CompetitorCount <= 3:
			score++
		case m.CompetitorCount > 5:
			score--
		}
	}

	return clampScore(score)
}

// resourceScore starts at a baseline of 5 and is adjusted by cost bands and
// minimum team size.
func resourceScore(r *ResourceEstimates) int {
	score := 5
	if r == nil {
		return score
	}

	devCost := parseCost(r.DevelopmentCost, defaultDevelopmentCost)
	switch {
	case devCost <= 10_000:
		score += 2
	case devCost <= 50_000:
		score++
	case devCost >= 250_000:
		score -= 2
	case devCost >= 100_000:
		score--
	}

	if r.InfrastructureCost != "" {
		infraCost := parseCost(r.InfrastructureCost, 500)
		switch {
		case infraCost <= 100:
			score++
		case infraCost >= 2_000:
			score--
		}
	}

	switch {
	case r.MinTeamSize > 5:
		score -= 2
	case r.MinTeamSize > 3:
		score--
	case r.MinTeamSize == 1:
		score++
	}

	return clampScore(score)
}

// timeScore bands the realistic duration: four weeks or less scores 10,
// anything beyond 48 weeks scores 2.
func timeScore(timeline string) int {
	weeks := parseDurationWeeks(timeline, defaultDurationWeeks)
	switch {
	case weeks <= 4:
		return 10
	case weeks <= 8:
		return 8
	case weeks <= 16:
		return 6
	case weeks <= 24:
		return 5
	case weeks <= 36:
		return 4
	case weeks <= 48:
		return 3
	default:
		return 2
	}
}

func ratingFor(score int) models.ClonabilityRating {
	switch {
	case score >= 9:
		return models.ClonabilityVeryEasy
	case score >= 7:
		return models.ClonabilityEasy
	case score >= 5:
		return models.ClonabilityModerate
	case score >= 3:
		return models.ClonabilityDifficult
	default:
		return models.ClonabilityVeryDifficult
	}
}

// Confidence increments for each class of available evidence.
const (
	baseConfidence           = 0.5
	confidenceMarketData     = 0.15
	confidenceRichSWOT       = 0.1
	confidenceCompetitorData = 0.15
	confidenceResourceData   = 0.1
	richSWOTItemCount        = 12
)

func confidenceFor(input ClonabilityInput) float64 {
	confidence := baseConfidence
	if input.Market != nil && input.Market.HasMarketData {
		confidence += confidenceMarketData
	}
	if input.Market.SWOTItemCount() >= richSWOTItemCount {
		confidence += confidenceRichSWOT
	}
	if input.Market != nil && input.Market.HasCompetitorData {
		confidence += confidenceCompetitorData
	}
	if input.Resources != nil {
		confidence += confidenceResourceData
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

var recommendationTemplates = map[models.ClonabilityRating]string{
	models.ClonabilityVeryEasy:      "Highly clonable: a small team can replicate this business quickly with off-the-shelf tooling.",
	models.ClonabilityEasy:          "Good clone candidate: the stack and market leave room for a fast follower.",
	models.ClonabilityModerate:      "Feasible with focus: expect meaningful engineering and go-to-market investment.",
	models.ClonabilityDifficult:     "Hard to clone: significant technical depth or market saturation works against a copy.",
	models.ClonabilityVeryDifficult: "Not recommended: replicating this business requires resources few teams can commit.",
}

func recommendationFor(rating models.ClonabilityRating, technical int) string {
	rec := recommendationTemplates[rating]
	if technical <= 3 {
		rec += " The technical build alone is a major undertaking."
	}
	return rec
}

var numberPattern = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

// parseCost extracts a dollar amount from a free-text estimate. A "k"/"m"
// suffix scales the amount; ranges use the upper bound. Strings with no
// digits fall back to the given default rather than failing.
func parseCost(s string, fallback float64) float64 {
	locs := numberPattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return fallback
	}

	last := locs[len(locs)-1]
	raw := s[last[0]:last[1]]
	amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return fallback
	}

	rest := strings.ToLower(s[last[1]:])
	if strings.HasPrefix(rest, "k") {
		amount *= 1_000
	} else if strings.HasPrefix(rest, "m") {
		amount *= 1_000_000
	}
	return amount
}

// parseDurationWeeks extracts a week count from a free-text duration.
// Month-denominated durations convert at four weeks per month; ranges use
// the upper bound. Strings with no digits fall back to the default.
func parseDurationWeeks(s string, fallback int) int {
	matches := numberPattern.FindAllString(s, -1)
	if len(matches) == 0 {
		return fallback
	}

	raw := strings.ReplaceAll(matches[len(matches)-1], ",", "")
	n, err := strconv.Atoi(strings.SplitN(raw, ".", 2)[0])
	if err != nil {
		return fallback
	}

	if strings.Contains(strings.ToLower(s), "month") {
		n *= 4
	}
	return n
}
