package prompts

// Input is the flat render context for audience prompts. Every field is pre-rendered text;
// missing values are filled with NoneProvided before rendering.
type Input struct {
	FreeFormContacts  string
	AdditionalContext string

	Table           string
	RowLimit        int
	RequiredColumns string
	Schema          string
	Statistics      string
	WhereExamples   string
	OrderByExamples string
	ExampleRequest  string
	ExampleQuery    string

	// Refinement only
	PriorQuery      string
	PriorSummary    string
	OverallFeedback string
	RowFeedback     string
}
