package executor

import (
	"context"
	"fmt"
	"strings"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
)

// maxFormFields caps how many inputs one step will fill. Forms bigger
// than this are almost always the wrong target.
const maxFormFields = 12

// fillForm fills every visible field with classified test data and
// submits. Checkbox-style consent fields and hidden inputs are left
// alone; selects get their first real option.
func (e *Executor) fillForm(ctx context.Context, data *TestData, fctx *entity.FlowContext, res *entity.FlowStepResult) error {
	fields, err := e.browser.Candidates(ctx, "fillable")
	if err != nil {
		return fmt.Errorf("list form fields: %w", err)
	}
	if len(fields) == 0 {
		return fmt.Errorf("no fillable fields on page")
	}
	if len(fields) > maxFormFields {
		fields = fields[:maxFormFields]
	}

	data.ResetEmail()
	filled := 0
	for _, field := range fields {
		switch field.Type {
		case "checkbox", "radio", "file", "submit", "button", "hidden":
			continue
		}

		if field.Tag == "select" {
			// any concrete choice will do
			if err := e.browser.SelectOption(ctx, field.Selector, ""); err != nil {
				e.logger.Debug("select skipped", "selector", field.Selector, "error", err)
			}
			continue
		}

		kind := ClassifyField(field.Type, field.Name, field.ID, field.Placeholder, field.AriaLabel)
		if kind == "other" {
			kind = e.classifyWithAdvisory(ctx, field, res)
		}

		value := data.ValueFor(kind)
		if err := e.browser.Fill(ctx, field.Selector, value); err != nil {
			e.logger.Debug("field fill failed", "selector", field.Selector, "error", err)
			continue
		}
		fctx.Set("field:"+fieldLabel(field), kind)
		filled++
	}

	if filled == 0 {
		return fmt.Errorf("could not fill any of %d fields", len(fields))
	}

	return e.submitForm(ctx)
}

// classifyWithAdvisory asks the model for a field the heuristics could
// not place. Failures just mean generic test input.
func (e *Executor) classifyWithAdvisory(ctx context.Context, field entity.Candidate, res *entity.FlowStepResult) string {
	if e.advisory == nil {
		return "other"
	}
	resp, err := e.advisory.Decide(ctx, output.AdvisoryRequest{
		Task: output.TaskClassifyField,
		FieldContext: fmt.Sprintf("tag=%s type=%s name=%s id=%s placeholder=%s aria-label=%s",
			field.Tag, field.Type, field.Name, field.ID, field.Placeholder, field.AriaLabel),
	})
	if err != nil {
		return "other"
	}
	res.AdvisoryUsed = true
	return resp.FieldKind
}

// submitForm clicks the form's submit control, or falls back to Enter.
func (e *Executor) submitForm(ctx context.Context) error {
	clickables, err := e.browser.Candidates(ctx, "clickable")
	if err == nil {
		for _, c := range clickables {
			if c.Type == "submit" {
				if err := e.browser.Click(ctx, c.Selector); err == nil {
					return e.browser.WaitStable(ctx)
				}
			}
		}
		submitWords := []string{"submit", "send", "sign in", "log in", "register", "subscribe", "continue", "search"}
		for _, c := range clickables {
			label := strings.ToLower(c.Text + " " + c.AriaLabel)
			for _, w := range submitWords {
				if strings.Contains(label, w) {
					if err := e.browser.Click(ctx, c.Selector); err == nil {
						return e.browser.WaitStable(ctx)
					}
				}
			}
		}
	}

	if err := e.browser.Press(ctx, "enter"); err != nil {
		return fmt.Errorf("form submit: %w", err)
	}
	return e.browser.WaitStable(ctx)
}

func fieldLabel(field entity.Candidate) string {
	for _, l := range []string{field.Name, field.ID, field.Placeholder, field.AriaLabel} {
		if l != "" {
			return l
		}
	}
	return field.Selector
}
