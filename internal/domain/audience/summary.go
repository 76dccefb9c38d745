package audience

// Fields every round summarises, in presentation order.
var SummaryFields = []string{
	"location_country",
	"location_state",
	"location_city",
	"job_title",
	"seniority",
	"departments",
	"sub_departments",
	"company_name",
	"company_industry",
}

// RowIDField is the warehouse column carrying the stable contact identifier.
const RowIDField = "id"

// OtherValue labels the bucket that folds everything below the top K.
const OtherValue = "Other"

type DistributionEntry struct {
	Value      string `json:"value"`
	Count      int    `json:"count"`
	Percentage string `json:"percentage"`
}

type Distribution []DistributionEntry

// Summary maps a field name to its distribution.
type Summary map[string]Distribution
