package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"siteqa/internal/application/port/output"
)

// Build renders the prompt for one advisory request. Candidate lists and
// observations are serialized as compact JSON so the model sees exactly
// what the engine sees.
func Build(req output.AdvisoryRequest) (string, error) {
	switch req.Task {
	case output.TaskIdentifyFlows:
		return render("identify_flows", IdentifyFlowsPrompt, map[string]any{
			"SiteType":     req.SiteType,
			"GraphSummary": req.GraphSummary,
		})
	case output.TaskResolveElement:
		candidates, err := json.MarshalIndent(req.Candidates, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal candidates: %w", err)
		}
		return render("resolve_element", ResolveElementPrompt, map[string]any{
			"StepDescription": req.StepDescription,
			"Candidates":      string(candidates),
		})
	case output.TaskVerifyOutcome:
		observation, err := json.MarshalIndent(req.Observation, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal observation: %w", err)
		}
		return render("verify_outcome", VerifyOutcomePrompt, map[string]any{
			"ExpectedOutcome": req.ExpectedOutcome,
			"Observation":     string(observation),
		})
	case output.TaskClassifyField:
		return render("classify_field", ClassifyFieldPrompt, map[string]any{
			"FieldContext": req.FieldContext,
		})
	case output.TaskReviewPage:
		return render("review_page", ReviewPagePrompt, map[string]any{
			"PageURL": req.PageURL,
		})
	default:
		return "", fmt.Errorf("unknown advisory task: %s", req.Task)
	}
}

func render(name, tmpl string, data map[string]any) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return buf.String(), nil
}
