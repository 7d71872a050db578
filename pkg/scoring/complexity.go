// Package scoring derives deterministic complexity and clonability scores
// from detected technology lists.
package scoring

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// Category caps per spec: frontend <= 3, backend <= 4, infrastructure <= 3.
const (
	maxFrontendScore       = 3
	maxBackendScore        = 4
	maxInfrastructureScore = 3
)

// bucket groups technology keywords under a fixed point value. The matcher
// is a substring check over the lowercased technology name, so "Next.js" and
// "nextjs" both hit the "next" keyword.
type bucket struct {
	points   int
	keywords []string
}

var frontendBuckets = []bucket{
	{points: 1, keywords: []string{"wordpress", "wix", "squarespace", "webflow", "weebly", "shopify"}},            // no-code
	{points: 1, keywords: []string{"jekyll", "hugo", "gatsby", "eleventy", "bootstrap", "tailwind"}},             // static
	{points: 2, keywords: []string{"react", "vue", "svelte", "next", "nuxt", "remix", "astro"}},                  // modern framework
	{points: 3, keywords: []string{"angular", "ember", "backbone", "three.js", "webgl", "webassembly", "flutter"}}, // complex framework
}

var backendBuckets = []bucket{
	{points: 1, keywords: []string{"netlify functions", "cloudflare workers", "firebase", "supabase", "lambda", "serverless"}}, // serverless
	{points: 2, keywords: []string{"php", "express", "node", "flask", "sinatra", "laravel"}},                                   // simple
	{points: 3, keywords: []string{"django", "rails", "spring", "asp.net", ".net", "java", "golang", "elixir"}},                // complex
	{points: 4, keywords: []string{"kafka", "rabbitmq", "grpc", "microservice", "consul", "istio"}},                            // microservices
}

var infrastructureBuckets = []bucket{
	{points: 1, keywords: []string{"github pages", "cpanel", "shared hosting", "netlify", "vercel"}}, // managed
	{points: 1, keywords: []string{"nginx", "apache", "digitalocean", "linode", "heroku"}},           // simple hosting
	{points: 2, keywords: []string{"aws", "amazon", "gcp", "google cloud", "azure", "cloudflare", "fastly", "cloudfront"}}, // cloud
	{points: 3, keywords: []string{"kubernetes", "docker", "terraform", "nomad", "openshift"}},       // orchestration
}

// commercialLicenseKeywords mark technologies that imply paid licensing.
var commercialLicenseKeywords = []string{
	"oracle", "sap", "salesforce", "adobe experience", "sitecore",
	"dynamics", "atlassian", "splunk", "datadog",
}

// Volume penalties.
const (
	volumePenaltyThreshold  = 10
	volumePenaltyHighCutoff = 20
)

// ComputeComplexity maps a detected technology list to a 1-10 complexity
// score with a per-category breakdown. The function is pure: identical
// inputs always produce identical results.
func ComputeComplexity(technologies []models.DetectedTechnology) *models.ComplexityResult {
	names := make([]string, 0, len(technologies))
	for _, t := range technologies {
		names = append(names, strings.ToLower(t.Name))
	}

	frontend := categoryScore(names, frontendBuckets, maxFrontendScore)
	backend := categoryScore(names, backendBuckets, maxBackendScore)
	infrastructure := categoryScore(names, infrastructureBuckets, maxInfrastructureScore)

	score := frontend + backend + infrastructure

	count := len(technologies)
	if count > volumePenaltyHighCutoff {
		score += 2
	} else if count > volumePenaltyThreshold {
		score++
	}

	licensing := hasCommercialLicense(names)
	if licensing {
		score++
	}

	score = clampScore(score)

	factors := models.ComplexityFactors{
		CustomCode:               frontend >= 2 || backend >= 2,
		FrameworkComplexity:      levelFor(frontend, maxFrontendScore),
		InfrastructureComplexity: levelFor(infrastructure, maxInfrastructureScore),
		TechnologyCount:          count,
		LicensingComplexity:      licensing,
	}

	return &models.ComplexityResult{
		Score: score,
		Breakdown: models.ComplexityBreakdown{
			Frontend:       frontend,
			Backend:        backend,
			Infrastructure: infrastructure,
		},
		Factors:     factors,
		Explanation: buildExplanation(score, frontend, backend, infrastructure, count, licensing),
	}
}

// categoryScore returns the highest bucket hit by any technology name,
// capped at the category maximum.
func categoryScore(names []string, buckets []bucket, limit int) int {
	best := 0
	for _, b := range buckets {
		for _, name := range names {
			if matchesBucket(name, b) && b.points > best {
				best = b.points
			}
		}
	}
	if best > limit {
		return limit
	}
	return best
}

func matchesBucket(name string, b bucket) bool {
	for _, kw := range b.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func hasCommercialLicense(names []string) bool {
	for _, name := range names {
		for _, kw := range commercialLicenseKeywords {
			if strings.Contains(name, kw) {
				return true
			}
		}
	}
	return false
}

func levelFor(score, max int) models.ComplexityLevel {
	switch {
	case score >= max:
		return models.ComplexityHigh
	case score >= 2:
		return models.ComplexityMedium
	default:
		return models.ComplexityLow
	}
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// explanation phrase templates keyed off each sub-score.
var (
	frontendPhrases = map[int]string{
		0: "no identifiable frontend stack",
		1: "a simple or no-code frontend",
		2: "a modern frontend framework",
		3: "a complex custom frontend",
	}
	backendPhrases = map[int]string{
		0: "no identifiable backend",
		1: "a serverless backend",
		2: "a conventional backend stack",
		3: "a heavyweight backend framework",
		4: "a microservices backend",
	}
	infrastructurePhrases = map[int]string{
		0: "no identifiable infrastructure",
		1: "managed or simple hosting",
		2: "cloud infrastructure",
		3: "orchestrated infrastructure",
	}
)

func buildExplanation(score, frontend, backend, infrastructure, count int, licensing bool) string {
	noun := "technology"
	if count != 1 {
		noun = inflection.Plural(noun)
	}

	parts := []string{
		fmt.Sprintf("Complexity %d/10 across %d detected %s", score, count, noun),
		frontendPhrases[frontend],
		backendPhrases[backend],
		infrastructurePhrases[infrastructure],
	}
	if licensing {
		parts = append(parts, "commercially licensed software is in use")
	}
	return strings.Join(parts, "; ") + "."
}
