package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"siteqa/internal/domain/entity"
)

func TestVerifyURLHintPasses(t *testing.T) {
	step := entity.FlowStep{Action: entity.ActionNavigate, URLHint: "/products"}
	obs := &entity.PageObservation{URL: "https://shop.test/products?sort=new", WordCount: 200}

	v := VerifyStep(step, "https://shop.test/", obs, false)
	assert.Equal(t, entity.StepPassed, v.Status)
	assert.Equal(t, "url", v.Method)
}

func TestVerifyNavigateWrongPageFails(t *testing.T) {
	step := entity.FlowStep{Action: entity.ActionNavigate, URLHint: "/checkout"}
	obs := &entity.PageObservation{URL: "https://shop.test/404", WordCount: 50}

	v := VerifyStep(step, "https://shop.test/", obs, false)
	assert.Equal(t, entity.StepFailed, v.Status)
}

func TestVerifySearchResults(t *testing.T) {
	step := entity.FlowStep{Action: entity.ActionSearch, Target: "search box"}

	withResults := &entity.PageObservation{URL: "https://shop.test/s?q=shoes", ResultCount: 8, WordCount: 400}
	assert.Equal(t, entity.StepPassed, VerifyStep(step, "", withResults, false).Status)

	// an explicit empty state for an everyday query is still a failure,
	// decided without the advisory fallback
	emptyState := &entity.PageObservation{URL: "https://shop.test/s?q=zzz", NoResultsText: true, WordCount: 60}
	empty := VerifyStep(step, "", emptyState, false)
	assert.Equal(t, entity.StepFailed, empty.Status)
	assert.Equal(t, "results", empty.Method)

	silentEmpty := &entity.PageObservation{URL: "https://shop.test/s?q=zzz", WordCount: 5}
	assert.Equal(t, entity.StepFailed, VerifyStep(step, "", silentEmpty, false).Status)
}

func TestVerifyLoginWallBlocksNotFails(t *testing.T) {
	step := entity.FlowStep{Action: entity.ActionClick, Target: "account settings"}
	obs := &entity.PageObservation{URL: "https://shop.test/login", LoginFormVisible: true, WordCount: 80}

	v := VerifyStep(step, "https://shop.test/", obs, false)
	assert.Equal(t, entity.StepBlocked, v.Status)
}

func TestVerifyLoginWallExpectedForAuthFlow(t *testing.T) {
	step := entity.FlowStep{Action: entity.ActionFillForm, Target: "login form", Verify: "logged in or a clear validation message is shown"}
	obs := &entity.PageObservation{URL: "https://shop.test/account", WordCount: 150}

	v := VerifyStep(step, "https://shop.test/login", obs, true)
	assert.Equal(t, entity.StepPassed, v.Status)
}

func TestVerifyCaptchaBlocks(t *testing.T) {
	step := entity.FlowStep{Action: entity.ActionClick, Target: "next page"}
	obs := &entity.PageObservation{URL: "https://shop.test/x", HasCaptcha: true}

	assert.Equal(t, entity.StepBlocked, VerifyStep(step, "", obs, false).Status)
}

func TestVerifyExpectationContent(t *testing.T) {
	step := entity.FlowStep{Action: entity.ActionVerify, Verify: "page renders with visible content and no error"}

	rich := &entity.PageObservation{URL: "https://shop.test/", WordCount: 500}
	assert.Equal(t, entity.StepPassed, VerifyStep(step, "", rich, false).Status)

	withError := &entity.PageObservation{URL: "https://shop.test/", WordCount: 500, ErrorRegionText: "Something went wrong"}
	assert.Equal(t, entity.StepFailed, VerifyStep(step, "", withError, false).Status)
}

func TestVerifyFormValidationCountsAsResponse(t *testing.T) {
	step := entity.FlowStep{Action: entity.ActionFillForm, Target: "contact form"}
	obs := &entity.PageObservation{URL: "https://shop.test/contact", ErrorRegionText: "Email is required", WordCount: 120}

	v := VerifyStep(step, "https://shop.test/contact", obs, false)
	assert.Equal(t, entity.StepPassed, v.Status)
}

func TestVerifyInconclusiveWithoutSignal(t *testing.T) {
	step := entity.FlowStep{Action: entity.ActionClick, Target: "mystery toggle", Verify: "the widget animates"}
	obs := &entity.PageObservation{URL: "https://shop.test/", WordCount: 40}

	v := VerifyStep(step, "https://shop.test/", obs, false)
	assert.Equal(t, entity.StepInconclusive, v.Status)
}

func TestVerifyNilObservation(t *testing.T) {
	v := VerifyStep(entity.FlowStep{Action: entity.ActionVerify}, "", nil, false)
	assert.Equal(t, entity.StepInconclusive, v.Status)
}
