package prompts

type PromptName string

const (
	PromptAudienceQueryInitial PromptName = "audience_query_initial"
	PromptAudienceQueryRefine  PromptName = "audience_query_refine"
)
