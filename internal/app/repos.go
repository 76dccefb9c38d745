package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type Repos struct {
	Profile     repos.AudienceProfileRepo
	Round       repos.QueryRoundRepo
	Association repos.ResultAssociationRepo
	Feedback    repos.FeedbackRepo
	JobRun      repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Profile:     repos.NewAudienceProfileRepo(db, log),
		Round:       repos.NewQueryRoundRepo(db, log),
		Association: repos.NewResultAssociationRepo(db, log),
		Feedback:    repos.NewFeedbackRepo(db, log),
		JobRun:      repos.NewJobRunRepo(db, log),
	}
}
