package prompts

func init() {
	RegisterAll()
}

const systemText = `
You are an assistant that writes ClickHouse SQL to find contacts in a B2B contact warehouse.
You only ever write read-only SELECT statements.`

const groundingText = `
Warehouse table: {{.Table}}

Schema:
{{.Schema}}

Common values (illustrative, not exhaustive):
{{.Statistics}}

Useful WHERE fragments:
{{.WhereExamples}}

Useful ORDER BY fragments:
{{.OrderByExamples}}

Worked example.
Request: {{.ExampleRequest}}
Query:
{{.ExampleQuery}}`

const outputRules = `
Output rules:
- Write a single SELECT statement against {{.Table}}. Never write INSERT, UPDATE, DELETE, ALTER, DROP or any other statement that changes data.
- Always select these columns: {{.RequiredColumns}}.
- End the query with LIMIT {{.RowLimit}}.
- Return only the query text. No commentary and no markdown code fences.`

// RegisterAll registers every audience prompt.
func RegisterAll() {
	RegisterSpec(Spec{
		Name:    PromptAudienceQueryInitial,
		Version: 1,
		System:  systemText,
		User: `
The user has described the contacts they want to reach.

Free Form Contacts: {{.FreeFormContacts}}
Additional Context: {{.AdditionalContext}}

Write a query that finds contacts similar to this description. Prefer, in order:
- exact company domain matches when a domain is given,
- similar company names when no domain is given,
- company and contact locations,
- job titles, seniority, departments and industries.
` + groundingText + "\n" + outputRules,
		Validators: append(grounded(),
			RequireText("FreeFormContacts", func(in Input) string { return in.FreeFormContacts }),
			RequireText("AdditionalContext", func(in Input) string { return in.AdditionalContext }),
		),
	})

	RegisterSpec(Spec{
		Name:    PromptAudienceQueryRefine,
		Version: 1,
		System:  systemText,
		User: `
The user has described the contacts they want to reach.

Free Form Contacts: {{.FreeFormContacts}}
Additional Context: {{.AdditionalContext}}

A previous query was run for this description.

Previous query:
{{.PriorQuery}}

Distribution of the previous results (value (count, share of all rows)):
{{.PriorSummary}}

Overall feedback on the previous results: {{.OverallFeedback}}

Feedback on individual contacts (approve means more like this, reject means fewer like this):
{{.RowFeedback}}

Write an improved query. Keep what the approved contacts have in common, exclude what the rejected
contacts have in common, and act on the overall feedback. If there is no feedback, tighten the
previous query toward the description.
` + groundingText + "\n" + outputRules,
		Validators: append(grounded(),
			RequireText("PriorQuery", func(in Input) string { return in.PriorQuery }),
			RequireText("PriorSummary", func(in Input) string { return in.PriorSummary }),
		),
	})
}
