package round_execute

import (
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/services"
)

type Pipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	rounds       repos.QueryRoundRepo
	associations repos.ResultAssociationRepo
	execution    services.ExecutionGateway
	topK         int
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	rounds repos.QueryRoundRepo,
	associations repos.ResultAssociationRepo,
	execution services.ExecutionGateway,
	topK int,
) *Pipeline {
	return &Pipeline{
		db:           db,
		log:          baseLog.With("job", services.JobTypeRoundExecute),
		rounds:       rounds,
		associations: associations,
		execution:    execution,
		topK:         topK,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeRoundExecute }
