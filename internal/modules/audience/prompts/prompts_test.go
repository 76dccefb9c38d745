package prompts

import (
	"strings"
	"testing"

	types "github.com/yungbote/audience-backend/internal/domain"
)

func TestInitialPromptSubstitutesNoneProvided(t *testing.T) {
	p, err := BuildAudienceQuery(Profile{FreeFormContacts: "  ", AdditionalContext: ""}, nil, Options{})
	if err != nil {
		t.Fatalf("BuildAudienceQuery: %v", err)
	}
	if p.Name != string(PromptAudienceQueryInitial) || p.Version != 1 {
		t.Fatalf("unexpected prompt identity %s v%d", p.Name, p.Version)
	}
	for _, want := range []string{
		"Free Form Contacts: None provided",
		"Additional Context: None provided",
		"LIMIT 5000",
		"never write insert",
		"no markdown code fences",
	} {
		if !strings.Contains(strings.ToLower(p.User), strings.ToLower(want)) {
			t.Fatalf("user prompt missing %q:\n%s", want, p.User)
		}
	}
	if !strings.Contains(p.User, "id UInt32") || !strings.Contains(p.User, "departments Array(String)") {
		t.Fatalf("schema not embedded:\n%s", p.User)
	}
	if !strings.Contains(p.User, "Always select these columns: id, location_country") {
		t.Fatalf("required columns missing:\n%s", p.User)
	}
	if strings.Contains(p.User, "Previous query") {
		t.Fatalf("initial prompt must not mention a previous query")
	}
}

func TestInitialPromptCarriesProfileText(t *testing.T) {
	p, err := BuildAudienceQuery(Profile{FreeFormContacts: "CFOs at fintechs", AdditionalContext: "EU only"}, nil, Options{Table: "people", RowLimit: 100})
	if err != nil {
		t.Fatalf("BuildAudienceQuery: %v", err)
	}
	if !strings.Contains(p.User, "Free Form Contacts: CFOs at fintechs") || !strings.Contains(p.User, "Additional Context: EU only") {
		t.Fatalf("profile text missing:\n%s", p.User)
	}
	if !strings.Contains(p.User, "Warehouse table: people") || !strings.Contains(p.User, "LIMIT 100") {
		t.Fatalf("options not applied:\n%s", p.User)
	}
}

func TestRefinePromptWithoutFeedback(t *testing.T) {
	p, err := BuildAudienceQuery(Profile{FreeFormContacts: "CTOs"}, &History{PriorQuery: "SELECT id FROM contacts LIMIT 5000"}, Options{})
	if err != nil {
		t.Fatalf("BuildAudienceQuery: %v", err)
	}
	if p.Name != string(PromptAudienceQueryRefine) {
		t.Fatalf("expected refine prompt, got %s", p.Name)
	}
	for _, want := range []string{
		"SELECT id FROM contacts LIMIT 5000",
		"Overall feedback on the previous results: None provided",
		"- job_title: none",
		"- company_industry: none",
	} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("refine prompt missing %q:\n%s", want, p.User)
		}
	}
	rowSection := p.User[strings.Index(p.User, "Feedback on individual contacts"):]
	if !strings.Contains(rowSection, NoneProvided) {
		t.Fatalf("row feedback should default to %q:\n%s", NoneProvided, rowSection)
	}
}

func TestRefinePromptRendersSummaryAndJudgements(t *testing.T) {
	h := &History{
		PriorQuery: "SELECT 1",
		PriorSummary: types.Summary{
			"job_title": {
				{Value: "CTO", Count: 3, Percentage: "60.00"},
				{Value: "Other", Count: 2, Percentage: "40.00"},
			},
		},
		OverallFeedback: "Too many consultants",
		Rows: []RowJudgement{
			{RowID: "17", Judgement: "reject", Snapshot: types.ContactSnapshot{JobTitle: "Consultant", CompanyName: "Big4", Departments: []string{"consulting"}}},
			{RowID: "18", Judgement: "approve"},
		},
	}
	p, err := BuildAudienceQuery(Profile{FreeFormContacts: "CTOs"}, h, Options{})
	if err != nil {
		t.Fatalf("BuildAudienceQuery: %v", err)
	}
	for _, want := range []string{
		"- job_title: CTO (3, 60.00%); Other (2, 40.00%)",
		"Overall feedback on the previous results: Too many consultants",
		"- contact 17: reject | job_title=Consultant; company_name=Big4; departments=consulting",
		"- contact 18: approve | no details",
	} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("refine prompt missing %q:\n%s", want, p.User)
		}
	}
}

func TestFingerprintIsStable(t *testing.T) {
	a, _ := BuildAudienceQuery(Profile{FreeFormContacts: "x"}, nil, Options{})
	b, _ := BuildAudienceQuery(Profile{FreeFormContacts: "x"}, nil, Options{})
	c, _ := BuildAudienceQuery(Profile{FreeFormContacts: "y"}, nil, Options{})
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("same input should fingerprint the same")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("different input should fingerprint differently")
	}
	if len(a.Fingerprint()) != 64 {
		t.Fatalf("expected hex sha256, got %q", a.Fingerprint())
	}
}

func TestBuildUnknownPrompt(t *testing.T) {
	if _, err := Build("nope", Input{}); err == nil {
		t.Fatalf("expected error for unknown prompt")
	}
}

func TestMakeTemplateRejectsBadSpecs(t *testing.T) {
	if _, err := MakeTemplate(Spec{Name: "", Version: 1}); err == nil {
		t.Fatalf("expected missing name error")
	}
	if _, err := MakeTemplate(Spec{Name: "x", Version: 0}); err == nil {
		t.Fatalf("expected version error")
	}
	if _, err := MakeTemplate(Spec{Name: "x", Version: 1, User: "{{.Broken"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseGrounding(t *testing.T) {
	g, err := LoadGrounding()
	if err != nil {
		t.Fatalf("LoadGrounding: %v", err)
	}
	if g.Table != "contacts" || len(g.Statistics) == 0 || len(g.WhereExamples) == 0 {
		t.Fatalf("unexpected grounding %+v", g)
	}
	if _, err := parseGrounding([]byte("schema: []")); err == nil {
		t.Fatalf("expected error for empty schema")
	}
}

func TestBuildRejectsUngroundedInput(t *testing.T) {
	in := Input{FreeFormContacts: "CTOs", AdditionalContext: "None provided", Table: "contacts", RequiredColumns: "id"}
	if _, err := Build(PromptAudienceQueryInitial, in); err == nil || !strings.Contains(err.Error(), "RowLimit") {
		t.Fatalf("expected RowLimit error, got %v", err)
	}
	in.RowLimit = 10
	in.Table = " "
	if _, err := Build(PromptAudienceQueryInitial, in); err == nil || !strings.Contains(err.Error(), "Table") {
		t.Fatalf("expected Table error, got %v", err)
	}
	in.Table = "contacts"
	if _, err := Build(PromptAudienceQueryInitial, in); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestRegisteredNames(t *testing.T) {
	names := Names()
	if len(names) < 2 || names[0] != PromptAudienceQueryInitial || names[1] != PromptAudienceQueryRefine {
		t.Fatalf("Names() = %v", names)
	}
}

func TestTemplateRenderTrimsAndValidates(t *testing.T) {
	tpl, err := MakeTemplate(Spec{
		Name:       "probe",
		Version:    2,
		System:     "  sys {{.Table}}  ",
		User:       "\nuser {{.RowLimit}}\n",
		Validators: []Validator{nil, RequirePositive("RowLimit", func(in Input) int { return in.RowLimit })},
	})
	if err != nil {
		t.Fatalf("MakeTemplate: %v", err)
	}
	p, err := tpl.Render(Input{Table: "contacts", RowLimit: 7})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if p.System != "sys contacts" || p.User != "user 7" || p.Version != 2 {
		t.Fatalf("unexpected prompt %+v", p)
	}
	if _, err := tpl.Render(Input{Table: "contacts"}); err == nil {
		t.Fatalf("expected validator to reject zero RowLimit")
	}
	if _, err := (Template{Name: "empty"}).Render(Input{}); err == nil {
		t.Fatalf("uncompiled template should not render")
	}
}
