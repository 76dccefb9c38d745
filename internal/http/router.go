package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/audience-backend/internal/http/handlers"
	httpMW "github.com/yungbote/audience-backend/internal/http/middleware"
	"github.com/yungbote/audience-backend/internal/observability"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	AudienceListHandler   *httpH.AudienceListHandler
	AudienceQueryHandler  *httpH.AudienceQueryHandler
	AudienceResultHandler *httpH.AudienceResultHandler
	FeedbackHandler       *httpH.FeedbackHandler
	JobHandler            *httpH.JobHandler
	HealthHandler         *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log, "/healthcheck", "/metrics"))
	r.Use(httpMW.Metrics(cfg.Metrics, "/metrics"))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Audience lists
		if h := cfg.AudienceListHandler; h != nil {
			protected.POST("/audience-lists", h.Create)
			protected.GET("/audience-lists", h.List)
			protected.GET("/audience-lists/:id", h.Get)
			protected.PUT("/audience-lists/:id", h.Update)
			protected.DELETE("/audience-lists/:id", h.Delete)
		}

		// Query rounds
		if h := cfg.AudienceQueryHandler; h != nil {
			protected.POST("/audience-queries", h.Create)
			protected.GET("/audience-queries/:id", h.Get)
			protected.POST("/audience-queries/:id/refine", h.Refine)
			protected.GET("/audience-queries/:id/job", h.Job)
			// Older clients ask for the latest round under the query prefix, keyed by list id.
			protected.GET("/audience-queries/:id/latest", h.Latest)
			protected.GET("/audience-lists/:id/queries", h.List)
			protected.GET("/audience-lists/:id/queries/latest", h.Latest)
		}

		// Result rows
		if h := cfg.AudienceResultHandler; h != nil {
			protected.GET("/query-to-contacts/:queryId", h.Page)
		}

		// Feedback
		if h := cfg.FeedbackHandler; h != nil {
			protected.POST("/audience-feedback/overall", h.SaveOverall)
			protected.POST("/audience-feedback/contacts", h.SaveContacts)
			protected.GET("/audience-feedback/:queryId", h.Get)
		}

		// Jobs
		if h := cfg.JobHandler; h != nil {
			protected.GET("/jobs/:id", h.GetJob)
		}
	}

	return r
}
