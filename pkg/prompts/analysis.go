// Package prompts builds the LLM prompt contracts used across the analysis
// pipeline. Every provider in the chain receives the identical prompt.
package prompts

import (
	"fmt"
	"strings"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// AnalysisSystemMessage frames the model as a business analyst for all
// analysis prompts.
const AnalysisSystemMessage = "You are a business analyst specializing in evaluating online businesses for cloning feasibility. Be specific and concrete. Respond only with what is asked, no preamble."

// BuildSummaryPrompt creates the prompt for the initial business summary.
// First-party page metadata is included when the scrape produced any.
func BuildSummaryPrompt(targetURL, goal string, meta *models.PageMetadata) string {
	var prompt strings.Builder

	prompt.WriteString("# Business Analysis\n\n")
	prompt.WriteString(fmt.Sprintf("Analyze the business at %s and produce a concise summary of what it does, who it serves, and how it likely makes money.\n\n", targetURL))

	if goal != "" {
		prompt.WriteString(fmt.Sprintf("The reader's goal: %s\n\n", goal))
	}

	if meta.HasContent() {
		prompt.WriteString("## Page Data\n\n")
		if meta.Title != "" {
			prompt.WriteString(fmt.Sprintf("Title: %s\n", meta.Title))
		}
		if meta.Description != "" {
			prompt.WriteString(fmt.Sprintf("Description: %s\n", meta.Description))
		}
		prompt.WriteString("\nGround the summary in this page data. Do not invent details it contradicts.\n")
	} else {
		prompt.WriteString("No page data could be collected. Base the summary on the URL and domain name, and say so where uncertain.\n")
	}

	return prompt.String()
}

// BuildStructuredPrompt creates the prompt for the multi-section structured
// analysis. The response format is JSON with fixed section keys.
func BuildStructuredPrompt(targetURL, goal, summary string) string {
	var prompt strings.Builder

	prompt.WriteString("# Structured Business Analysis\n\n")
	prompt.WriteString(fmt.Sprintf("Target: %s\n", targetURL))
	if goal != "" {
		prompt.WriteString(fmt.Sprintf("Goal: %s\n", goal))
	}
	prompt.WriteString(fmt.Sprintf("\nSummary of the business:\n%s\n\n", summary))

	prompt.WriteString("Produce a structured analysis as JSON with exactly these keys:\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "overview": "what the business is and does",
  "market": "market position, competitors, demand signals",
  "technical": "how the product is likely built and operated",
  "data": "what data the business collects and depends on",
  "synthesis": "overall cloning assessment tying the sections together",
  "sources": ["optional list of referenced URLs"]
}`)
	prompt.WriteString("\n```\n\nRespond with the JSON object only.\n")

	return prompt.String()
}

// stageInstructions maps each generatable stage to its content contract.
// Keys mirror the validator's required fields for that stage.
var stageInstructions = map[int]string{
	2: `Score the business opportunity. Respond as JSON:
{
  "scores": {"market_demand": 1-10, "competition": 1-10, "feasibility": 1-10, "profitability": 1-10},
  "total_score": <sum>,
  "recommendation": "proceed | caution | avoid, with one sentence of reasoning"
}`,
	3: `Plan the minimum viable product. Respond as JSON:
{
  "core_features": ["3-6 features, each a concrete capability"],
  "tech_stack": ["specific technologies to build with"],
  "estimated_cost": "dollar estimate, e.g. $15,000",
  "development_weeks": <integer weeks>
}`,
	4: `Design demand testing before full build-out. Respond as JSON:
{
  "validation_methods": ["concrete experiments, e.g. landing page with ad traffic"],
  "success_metrics": ["measurable thresholds, e.g. 5% signup conversion"],
  "budget": "dollar estimate for the tests"
}`,
	5: `Plan scaling past the MVP. Respond as JSON:
{
  "growth_channels": ["ranked acquisition channels"],
  "milestones": ["revenue or usage milestones with rough timing"],
  "infrastructure_cost": "monthly dollar estimate at scale"
}`,
	6: `Map automation opportunities. Respond as JSON:
{
  "automation_opportunities": ["processes worth automating, most valuable first"],
  "tooling": ["specific tools or services per opportunity"],
  "manual_processes": ["what stays manual and why"]
}`,
}

// BuildStagePrompt creates the prompt for generating one workflow stage.
// It layers the analysis context, any prior completed stages, and the
// stage-specific response contract.
func BuildStagePrompt(analysis *models.Analysis, stageNumber int) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("# Stage %d: %s\n\n", stageNumber, models.StageName(stageNumber)))
	prompt.WriteString(fmt.Sprintf("Business: %s\n", analysis.URL))
	if analysis.Goal != "" {
		prompt.WriteString(fmt.Sprintf("Goal: %s\n", analysis.Goal))
	}
	prompt.WriteString(fmt.Sprintf("\nSummary:\n%s\n", analysis.Summary))

	if analysis.Insights != nil && len(analysis.Insights.Technologies) > 0 {
		prompt.WriteString(fmt.Sprintf("\nDetected technologies: %s\n",
			strings.Join(models.TechnologyNames(analysis.Insights.Technologies), ", ")))
	}

	for n := models.FirstStage; n < stageNumber; n++ {
		stage, ok := analysis.Stages[n]
		if !ok || !stage.IsCompleted() || len(stage.Content) == 0 {
			continue
		}
		prompt.WriteString(fmt.Sprintf("\nCompleted stage %d (%s) findings are available and must stay consistent with this stage.\n", n, stage.StageName))
	}

	prompt.WriteString("\n")
	prompt.WriteString(stageInstructions[stageNumber])
	prompt.WriteString("\n\nRespond with the JSON object only.\n")

	return prompt.String()
}
