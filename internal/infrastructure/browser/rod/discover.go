package rod

import (
	"context"
	"fmt"

	"siteqa/internal/domain/entity"
	"siteqa/internal/infrastructure/browser/structure"
)

func (b *BrowserAdapter) DiscoverElements(ctx context.Context) ([]entity.PageElement, error) {
	obj, err := b.page.Context(ctx).Eval(jsDiscoverElements)
	if err != nil {
		return nil, fmt.Errorf("element discovery failed: %w", err)
	}

	var raw []struct {
		Role        string `json:"role"`
		Priority    int    `json:"priority"`
		Text        string `json:"text"`
		Href        string `json:"href"`
		Selector    string `json:"selector"`
		TestID      string `json:"test_id"`
		AriaLabel   string `json:"aria_label"`
		Name        string `json:"name"`
		ID          string `json:"id"`
		Placeholder string `json:"placeholder"`
		SemRole     string `json:"sem_role"`
	}
	if err := unmarshalEval(obj, &raw); err != nil {
		return nil, err
	}

	elements := make([]entity.PageElement, 0, len(raw))
	for _, r := range raw {
		elements = append(elements, entity.PageElement{
			Role:     entity.ElementRole(r.Role),
			Text:     r.Text,
			Href:     r.Href,
			Priority: r.Priority,
			Locator: entity.Locator{
				Selector:    r.Selector,
				TestID:      r.TestID,
				AriaLabel:   r.AriaLabel,
				Name:        r.Name,
				ID:          r.ID,
				Placeholder: r.Placeholder,
				SemRole:     r.SemRole,
			},
		})
	}
	return elements, nil
}

func (b *BrowserAdapter) Candidates(ctx context.Context, kind string) ([]entity.Candidate, error) {
	obj, err := b.page.Context(ctx).Eval(jsCandidates, kind)
	if err != nil {
		return nil, fmt.Errorf("candidate listing failed: %w", err)
	}
	var candidates []entity.Candidate
	if err := unmarshalEval(obj, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (b *BrowserAdapter) Observe(ctx context.Context) (*entity.PageObservation, error) {
	obj, err := b.page.Context(ctx).Eval(jsObserve)
	if err != nil {
		return nil, fmt.Errorf("page observation failed: %w", err)
	}
	var raw struct {
		URL              string `json:"url"`
		Title            string `json:"title"`
		WordCount        int    `json:"word_count"`
		ResultCount      int    `json:"result_count"`
		NoResultsText    bool   `json:"no_results_text"`
		ErrorRegionText  string `json:"error_region_text"`
		SuccessText      string `json:"success_text"`
		HasPasswordField bool   `json:"has_password_field"`
		HasCaptcha       bool   `json:"has_captcha"`
		LoginFormVisible bool   `json:"login_form_visible"`
	}
	if err := unmarshalEval(obj, &raw); err != nil {
		return nil, err
	}
	return &entity.PageObservation{
		URL:              raw.URL,
		Title:            raw.Title,
		WordCount:        raw.WordCount,
		ResultCount:      raw.ResultCount,
		NoResultsText:    raw.NoResultsText,
		ErrorRegionText:  raw.ErrorRegionText,
		SuccessText:      raw.SuccessText,
		HasPasswordField: raw.HasPasswordField,
		HasCaptcha:       raw.HasCaptcha,
		LoginFormVisible: raw.LoginFormVisible,
	}, nil
}

func (b *BrowserAdapter) Probe(ctx context.Context) (*entity.PageProbe, error) {
	obj, err := b.page.Context(ctx).Eval(jsProbe)
	if err != nil {
		return nil, fmt.Errorf("page probe failed: %w", err)
	}
	var raw struct {
		URL                string   `json:"url"`
		BrokenImages       []string `json:"broken_images"`
		HasViewportMeta    bool     `json:"has_viewport_meta"`
		MixedContent       []string `json:"mixed_content"`
		HorizontalOverflow bool     `json:"horizontal_overflow"`
		SmallTouchTargets  int      `json:"small_touch_targets"`
		ImagesMissingAlt   int      `json:"images_missing_alt"`
		InputsMissingLabel int      `json:"inputs_missing_label"`
		HasLangAttr        bool     `json:"has_lang_attr"`
		HasTitle           bool     `json:"has_title"`
		BodyFontPx         float64  `json:"body_font_px"`
	}
	if err := unmarshalEval(obj, &raw); err != nil {
		return nil, err
	}
	return &entity.PageProbe{
		URL:                raw.URL,
		BrokenImages:       raw.BrokenImages,
		HasViewportMeta:    raw.HasViewportMeta,
		MixedContent:       raw.MixedContent,
		HorizontalOverflow: raw.HorizontalOverflow,
		SmallTouchTargets:  raw.SmallTouchTargets,
		ImagesMissingAlt:   raw.ImagesMissingAlt,
		InputsMissingLabel: raw.InputsMissingLabel,
		HasLangAttr:        raw.HasLangAttr,
		HasTitle:           raw.HasTitle,
		BodyFontPx:         raw.BodyFontPx,
	}, nil
}

func (b *BrowserAdapter) Metrics(ctx context.Context) (*entity.PageMetrics, error) {
	obj, err := b.page.Context(ctx).Eval(jsMetrics)
	if err != nil {
		return nil, fmt.Errorf("metrics collection failed: %w", err)
	}
	var raw struct {
		LoadTimeMS   int `json:"load_time_ms"`
		TTFBMS       int `json:"ttfb_ms"`
		FCPMS        int `json:"fcp_ms"`
		DOMNodeCount int `json:"dom_node_count"`
	}
	if err := unmarshalEval(obj, &raw); err != nil {
		return nil, err
	}

	b.mu.Lock()
	requests := b.requestCount
	transfer := b.transferBytes
	b.mu.Unlock()

	return &entity.PageMetrics{
		URL:           b.CurrentURL(),
		LoadTimeMS:    raw.LoadTimeMS,
		TTFBMS:        raw.TTFBMS,
		FCPMS:         raw.FCPMS,
		DOMNodeCount:  raw.DOMNodeCount,
		RequestCount:  requests,
		TransferBytes: transfer,
	}, nil
}

func (b *BrowserAdapter) DismissOverlays(ctx context.Context) (int, error) {
	obj, err := b.page.Context(ctx).Eval(jsDismissOverlays)
	if err != nil {
		return 0, fmt.Errorf("overlay dismissal failed: %w", err)
	}
	return obj.Value.Int(), nil
}

// StructuralFingerprint hashes the tag and attribute skeleton of the
// rendered DOM, ignoring text. Stable across content changes, sensitive
// to layout changes, which is what SPA route detection needs.
func (b *BrowserAdapter) StructuralFingerprint(ctx context.Context) (*entity.DOMFingerprint, error) {
	html, err := b.page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("dom read failed: %w", err)
	}
	fp, err := structure.Fingerprint(html)
	if err != nil {
		return nil, fmt.Errorf("fingerprint failed: %w", err)
	}
	return fp, nil
}
