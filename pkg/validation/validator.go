// Package validation scores AI-generated stage content before it is
// accepted into a cloning plan.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// BusinessContext carries what is known about the analyzed business so
// specificity can be checked against it.
type BusinessContext struct {
	URL          string
	BusinessName string
}

// Check is the outcome of one validation dimension.
type Check struct {
	Name   string   `json:"name"`
	Score  float64  `json:"score"`
	Passed bool     `json:"passed"`
	Errors []string `json:"errors,omitempty"`
}

// Result is the aggregate validation outcome. Score is the arithmetic mean
// of the individual check scores.
type Result struct {
	Valid  bool     `json:"valid"`
	Score  float64  `json:"score"`
	Checks []Check  `json:"checks"`
	Errors []string `json:"errors,omitempty"`
}

// Config holds the acceptance thresholds. The thresholds are heuristic
// policy, not a hard contract, so they are configurable.
type Config struct {
	AcceptThreshold        float64 // overall mean score to accept (default 0.7)
	ActionabilityThreshold float64 // action-verb ratio to pass (default 0.7)
	RealismThreshold       float64 // plausible-estimate ratio to pass (default 0.8)
	MaxReportedErrors      int     // concrete errors surfaced on rejection (default 5)
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		AcceptThreshold:        0.7,
		ActionabilityThreshold: 0.7,
		RealismThreshold:       0.8,
		MaxReportedErrors:      5,
	}
}

// Validator runs the six quality checks over generated stage content.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator with the given thresholds.
func NewValidator(cfg Config) *Validator {
	if cfg.AcceptThreshold == 0 {
		cfg.AcceptThreshold = 0.7
	}
	if cfg.ActionabilityThreshold == 0 {
		cfg.ActionabilityThreshold = 0.7
	}
	if cfg.RealismThreshold == 0 {
		cfg.RealismThreshold = 0.8
	}
	if cfg.MaxReportedErrors == 0 {
		cfg.MaxReportedErrors = 5
	}
	return &Validator{cfg: cfg}
}

// requiredFields lists the fields each stage's content must carry.
var requiredFields = map[int][]string{
	2: {"scores", "total_score", "recommendation"},
	3: {"core_features", "tech_stack", "estimated_cost", "development_weeks"},
	4: {"validation_methods", "success_metrics", "budget"},
	5: {"growth_channels", "milestones", "infrastructure_cost"},
	6: {"automation_opportunities", "tooling", "manual_processes"},
}

// Validate scores the generated content for a stage. Acceptance requires the
// structural and required-field checks to pass and the mean score to reach
// the accept threshold.
func (v *Validator) Validate(stageNumber int, content map[string]any, biz BusinessContext) *Result {
	structural := v.checkStructure(stageNumber, content)
	required := v.checkRequiredFields(stageNumber, content)

	text := flattenText(content)
	specificity := v.checkSpecificity(text, biz)
	actionability := v.checkActionability(content)
	placeholders := v.checkPlaceholders(text)
	realism := v.checkRealism(text)

	checks := []Check{structural, required, specificity, actionability, placeholders, realism}

	var sum float64
	var errs []string
	for _, c := range checks {
		sum += c.Score
		errs = append(errs, c.Errors...)
	}
	mean := sum / float64(len(checks))

	if len(errs) > v.cfg.MaxReportedErrors {
		errs = errs[:v.cfg.MaxReportedErrors]
	}

	return &Result{
		Valid:  structural.Passed && required.Passed && mean >= v.cfg.AcceptThreshold,
		Score:  mean,
		Checks: checks,
		Errors: errs,
	}
}

func (v *Validator) checkStructure(stageNumber int, content map[string]any) Check {
	c := Check{Name: "structure"}
	if !models.IsValidStageNumber(stageNumber) || stageNumber < 2 {
		c.Errors = append(c.Errors, fmt.Sprintf("stage %d has no content schema", stageNumber))
		return c
	}
	if len(content) == 0 {
		c.Errors = append(c.Errors, "content is empty")
		return c
	}
	c.Passed = true
	c.Score = 1
	return c
}

func (v *Validator) checkRequiredFields(stageNumber int, content map[string]any) Check {
	c := Check{Name: "required_fields"}
	fields := requiredFields[stageNumber]
	if fields == nil {
		return c
	}

	missing := false
	for _, field := range fields {
		value, ok := content[field]
		if !ok || isEmptyValue(value) {
			missing = true
			c.Errors = append(c.Errors, fmt.Sprintf("missing required field %q for stage %d (%s)",
				field, stageNumber, models.StageName(stageNumber)))
		}
	}
	if !missing {
		c.Passed = true
		c.Score = 1
	}
	return c
}

// genericPhrases are wording that indicates content not tailored to the
// analyzed business.
var genericPhrases = []string{
	"your business",
	"your company",
	"the company",
	"this business",
	"acme",
	"example.com",
	"insert business",
}

func (v *Validator) checkSpecificity(text string, biz BusinessContext) Check {
	c := Check{Name: "business_specificity"}
	lower := strings.ToLower(text)

	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			c.Errors = append(c.Errors, fmt.Sprintf("content contains generic phrase %q", phrase))
			return c
		}
	}

	var keywords []string
	if biz.BusinessName != "" {
		keywords = append(keywords, strings.ToLower(biz.BusinessName))
	}
	if host := hostKeyword(biz.URL); host != "" {
		keywords = append(keywords, host)
	}
	if len(keywords) == 0 {
		// Nothing to match against; generic-phrase scan already passed.
		c.Passed = true
		c.Score = 1
		return c
	}

	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			c.Passed = true
			c.Score = 1
			return c
		}
	}
	c.Errors = append(c.Errors, "content never mentions the business name or domain")
	return c
}

// hostKeyword extracts the registrable part of the URL's host, e.g.
// "stripe" from "https://www.stripe.com/pricing".
func hostKeyword(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}
	return host
}

// actionVerbs open recommendation items that are considered actionable.
var actionVerbs = []string{
	"build", "create", "launch", "test", "measure", "validate", "run",
	"set up", "setup", "hire", "automate", "integrate", "deploy", "write",
	"interview", "survey", "publish", "configure", "design", "implement",
	"negotiate", "analyze", "track", "optimize", "develop", "add", "use",
	"start", "offer", "collect", "research", "define", "identify",
}

// recommendationKeys mark list fields whose items should be actionable.
var recommendationKeys = []string{
	"recommendation", "action", "step", "method", "opportunit", "feature",
	"channel", "milestone", "metric",
}

func (v *Validator) checkActionability(content map[string]any) Check {
	c := Check{Name: "actionability"}

	var total, actionable int
	for key, value := range content {
		if !isRecommendationKey(key) {
			continue
		}
		for _, item := range stringItems(value) {
			total++
			if containsActionVerb(item) {
				actionable++
			}
		}
	}

	if total == 0 {
		// No recommendation-like items to judge.
		c.Passed = true
		c.Score = 1
		return c
	}

	ratio := float64(actionable) / float64(total)
	c.Score = ratio
	if ratio >= v.cfg.ActionabilityThreshold {
		c.Passed = true
	} else {
		c.Errors = append(c.Errors, fmt.Sprintf(
			"only %d of %d recommendation items are actionable (need %.0f%%)",
			actionable, total, v.cfg.ActionabilityThreshold*100))
	}
	return c
}

func isRecommendationKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range recommendationKeys {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func containsActionVerb(item string) bool {
	lower := strings.ToLower(item)
	for _, verb := range actionVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

// placeholderPattern matches bracketed template slots, TBD/TODO markers and
// lorem-ipsum filler.
var placeholderPattern = regexp.MustCompile(`(?i)(\[[^\]]{1,60}\]|\bTBD\b|\bTODO\b|\bFIXME\b|\bXXX\b|lorem ipsum|<[a-z_ ]+>)`)

func (v *Validator) checkPlaceholders(text string) Check {
	c := Check{Name: "placeholder_freedom"}
	if match := placeholderPattern.FindString(text); match != "" {
		c.Score = 0.5
		c.Errors = append(c.Errors, fmt.Sprintf("content contains placeholder %q", strings.TrimSpace(match)))
		return c
	}
	c.Passed = true
	c.Score = 1
	return c
}

var (
	dollarPattern   = regexp.MustCompile(`\$\s?([\d,]+(?:\.\d+)?)\s?(k|K|m|M)?`)
	durationPattern = regexp.MustCompile(`(\d+)\s*(?:-\s*\d+\s*)?(week|month)s?`)
)

// checkRealism verifies the numeric and dollar estimates found in the
// content fall into plausible bands. Content without applicable numbers
// passes vacuously.
func (v *Validator) checkRealism(text string) Check {
	c := Check{Name: "estimate_realism"}

	var total, plausible int

	for _, m := range dollarPattern.FindAllStringSubmatch(text, -1) {
		total++
		if amount, ok := parseDollars(m[1], m[2]); ok && amount >= 100 && amount <= 10_000_000 {
			plausible++
		} else {
			c.Errors = append(c.Errors, fmt.Sprintf("implausible cost estimate %q", strings.TrimSpace(m[0])))
		}
	}

	for _, m := range durationPattern.FindAllStringSubmatch(text, -1) {
		total++
		n, err := strconv.Atoi(m[1])
		weeks := n
		if m[2] == "month" {
			weeks = n * 4
		}
		if err == nil && weeks >= 1 && weeks <= 104 {
			plausible++
		} else {
			c.Errors = append(c.Errors, fmt.Sprintf("implausible duration estimate %q", strings.TrimSpace(m[0])))
		}
	}

	if total == 0 {
		c.Passed = true
		c.Score = 1
		c.Errors = nil
		return c
	}

	ratio := float64(plausible) / float64(total)
	c.Score = ratio
	if ratio >= v.cfg.RealismThreshold {
		c.Passed = true
		c.Errors = nil
	}
	return c
}

func parseDollars(number, suffix string) (float64, bool) {
	amount, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(suffix) {
	case "k":
		amount *= 1_000
	case "m":
		amount *= 1_000_000
	}
	return amount, true
}

// flattenText walks the content payload and joins every string it finds.
func flattenText(value any) string {
	var sb strings.Builder
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			sb.WriteString(t)
			sb.WriteString("\n")
		case []any:
			for _, item := range t {
				walk(item)
			}
		case []string:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			for _, item := range t {
				walk(item)
			}
		case float64:
			sb.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
			sb.WriteString("\n")
		case int:
			sb.WriteString(strconv.Itoa(t))
			sb.WriteString("\n")
		}
	}
	walk(value)
	return sb.String()
}

// stringItems extracts the string entries from a list-valued field.
func stringItems(value any) []string {
	var items []string
	switch t := value.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	case []string:
		items = t
	case string:
		if t != "" {
			items = []string{t}
		}
	}
	return items
}

func isEmptyValue(value any) bool {
	switch t := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
