package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/http"
	httpH "github.com/yungbote/audience-backend/internal/http/handlers"
	httpMW "github.com/yungbote/audience-backend/internal/http/middleware"
	"github.com/yungbote/audience-backend/internal/observability"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health        *httpH.HealthHandler
	AudienceList  *httpH.AudienceListHandler
	AudienceQuery *httpH.AudienceQueryHandler
	Result        *httpH.AudienceResultHandler
	Feedback      *httpH.FeedbackHandler
	Job           *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:        httpH.NewHealthHandler(db),
		AudienceList:  httpH.NewAudienceListHandler(services.Profiles),
		AudienceQuery: httpH.NewAudienceQueryHandler(services.Queries),
		Result:        httpH.NewAudienceResultHandler(services.Results),
		Feedback:      httpH.NewFeedbackHandler(services.Feedback),
		Job:           httpH.NewJobHandler(services.Jobs),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:                   log,
		ServiceName:           cfg.ServiceName,
		AllowedOrigins:        cfg.AllowedOrigins,
		Metrics:               metrics,
		AuthMiddleware:        middleware.Auth,
		AudienceListHandler:   handlers.AudienceList,
		AudienceQueryHandler:  handlers.AudienceQuery,
		AudienceResultHandler: handlers.Result,
		FeedbackHandler:       handlers.Feedback,
		JobHandler:            handlers.Job,
		HealthHandler:         handlers.Health,
	})
}
