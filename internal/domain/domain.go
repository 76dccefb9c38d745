package domain

import (
	"github.com/yungbote/audience-backend/internal/domain/audience"
	"github.com/yungbote/audience-backend/internal/domain/jobs"
)

type AudienceProfile = audience.AudienceProfile
type QueryRound = audience.QueryRound
type ResultAssociation = audience.ResultAssociation
type Feedback = audience.Feedback
type RowFeedback = audience.RowFeedback
type ContactRow = audience.ContactRow
type ContactSnapshot = audience.ContactSnapshot

type Summary = audience.Summary
type Distribution = audience.Distribution
type DistributionEntry = audience.DistributionEntry

type JobRun = jobs.JobRun

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&AudienceProfile{},
		&QueryRound{},
		&ResultAssociation{},
		&Feedback{},
		&RowFeedback{},
		&JobRun{},
	}
}
