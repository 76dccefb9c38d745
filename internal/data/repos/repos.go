package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos/audience"
	"github.com/yungbote/audience-backend/internal/data/repos/jobs"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type AudienceProfileRepo = audience.AudienceProfileRepo
type QueryRoundRepo = audience.QueryRoundRepo
type ResultAssociationRepo = audience.ResultAssociationRepo
type FeedbackRepo = audience.FeedbackRepo

type JobRunRepo = jobs.JobRunRepo

func NewAudienceProfileRepo(db *gorm.DB, baseLog *logger.Logger) AudienceProfileRepo {
	return audience.NewAudienceProfileRepo(db, baseLog)
}

func NewQueryRoundRepo(db *gorm.DB, baseLog *logger.Logger) QueryRoundRepo {
	return audience.NewQueryRoundRepo(db, baseLog)
}

func NewResultAssociationRepo(db *gorm.DB, baseLog *logger.Logger) ResultAssociationRepo {
	return audience.NewResultAssociationRepo(db, baseLog)
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return audience.NewFeedbackRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
