package prompts

import (
	_ "embed"
)

//go:embed identify_flows.txt
var IdentifyFlowsPrompt string

//go:embed resolve_element.txt
var ResolveElementPrompt string

//go:embed verify_outcome.txt
var VerifyOutcomePrompt string

//go:embed classify_field.txt
var ClassifyFieldPrompt string

//go:embed review_page.txt
var ReviewPagePrompt string
