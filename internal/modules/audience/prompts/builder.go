package prompts

import (
	"fmt"
	"strings"

	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/domain/audience"
)

// NoneProvided stands in for any absent input so the model never sees a silent gap.
const NoneProvided = "None provided"

// DefaultRowLimit caps every generated query.
const DefaultRowLimit = 5000

// Profile is the user's description of the contacts they want.
type Profile struct {
	FreeFormContacts  string
	AdditionalContext string
}

// RowJudgement is one per-row verdict with the row's frozen descriptive fields.
type RowJudgement struct {
	RowID     string
	Judgement string
	Snapshot  types.ContactSnapshot
}

// History is what a refinement round knows about the round it refines.
type History struct {
	PriorQuery      string
	PriorSummary    types.Summary
	OverallFeedback string
	Rows            []RowJudgement
}

// Options tunes values that depend on deployment rather than on the request.
type Options struct {
	Table    string
	RowLimit int
}

// BuildAudienceQuery renders the initial prompt when history is nil and the refinement prompt otherwise.
func BuildAudienceQuery(profile Profile, history *History, opts Options) (Prompt, error) {
	g, err := LoadGrounding()
	if err != nil {
		return Prompt{}, err
	}
	in := Input{
		FreeFormContacts:  orNone(profile.FreeFormContacts),
		AdditionalContext: orNone(profile.AdditionalContext),
		Table:             firstNonEmpty(opts.Table, g.Table, "contacts"),
		RowLimit:          opts.RowLimit,
		RequiredColumns:   strings.Join(append([]string{audience.RowIDField}, audience.SummaryFields...), ", "),
		Schema:            g.schemaText(),
		Statistics:        g.statisticsText(),
		WhereExamples:     bulleted(g.WhereExamples),
		OrderByExamples:   bulleted(g.OrderByExamples),
		ExampleRequest:    strings.TrimSpace(g.Example.Request),
		ExampleQuery:      strings.TrimSpace(g.Example.Query),
	}
	if in.RowLimit <= 0 {
		in.RowLimit = DefaultRowLimit
	}
	if history == nil {
		return Build(PromptAudienceQueryInitial, in)
	}

	in.PriorQuery = orNone(history.PriorQuery)
	in.PriorSummary = RenderSummary(history.PriorSummary)
	in.OverallFeedback = orNone(history.OverallFeedback)
	in.RowFeedback = RenderRowFeedback(history.Rows)
	return Build(PromptAudienceQueryRefine, in)
}

// RenderSummary writes one line per summary field in fixed order. A field with no entries,
// including every field of an absent summary, renders as "none".
func RenderSummary(s types.Summary) string {
	lines := make([]string, 0, len(audience.SummaryFields))
	for _, field := range audience.SummaryFields {
		dist := s[field]
		if len(dist) == 0 {
			lines = append(lines, "- "+field+": none")
			continue
		}
		parts := make([]string, 0, len(dist))
		for _, e := range dist {
			parts = append(parts, fmt.Sprintf("%s (%d, %s%%)", e.Value, e.Count, e.Percentage))
		}
		lines = append(lines, "- "+field+": "+strings.Join(parts, "; "))
	}
	return strings.Join(lines, "\n")
}

// RenderRowFeedback writes one line per judged row, or NoneProvided when there are none.
func RenderRowFeedback(rows []RowJudgement) string {
	if len(rows) == 0 {
		return NoneProvided
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("- contact %s: %s | %s", r.RowID, r.Judgement, snapshotText(r.Snapshot)))
	}
	return strings.Join(lines, "\n")
}

func snapshotText(s types.ContactSnapshot) string {
	pairs := []struct{ k, v string }{
		{"job_title", s.JobTitle},
		{"seniority", s.Seniority},
		{"company_name", s.CompanyName},
		{"company_industry", s.CompanyIndustry},
		{"location_city", s.LocationCity},
		{"location_state", s.LocationState},
		{"location_country", s.LocationCountry},
		{"departments", strings.Join(s.Departments, ", ")},
		{"sub_departments", strings.Join(s.SubDepartments, ", ")},
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if strings.TrimSpace(p.v) == "" {
			continue
		}
		out = append(out, p.k+"="+p.v)
	}
	if len(out) == 0 {
		return "no details"
	}
	return strings.Join(out, "; ")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoneProvided
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
