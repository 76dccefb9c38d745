package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	"github.com/yungbote/audience-backend/internal/data/repos/testutil"
	"github.com/yungbote/audience-backend/internal/modules/audience/prompts"
	"github.com/yungbote/audience-backend/internal/platform/ctxutil"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type fakeGenerator struct {
	mu         sync.Mutex
	out        string
	err        error
	block      bool
	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, system string, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	out, err, block := f.out, f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return out, err
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) user() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUser
}

type fakeRowSource struct {
	rows  []map[string]any
	err   error
	block bool
}

func (f *fakeRowSource) Query(ctx context.Context, query string) ([]map[string]any, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.rows, f.err
}

type harness struct {
	db           *gorm.DB
	log          *logger.Logger
	profileRepo  repos.AudienceProfileRepo
	roundRepo    repos.QueryRoundRepo
	assocRepo    repos.ResultAssociationRepo
	feedbackRepo repos.FeedbackRepo
	jobRepo      repos.JobRunRepo
	jobs         JobService
	gen          *fakeGenerator
	queries      AudienceQueryService
	profiles     AudienceProfileService
	feedback     FeedbackService
	results      AudienceResultService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{
		db:           db,
		log:          log,
		profileRepo:  repos.NewAudienceProfileRepo(db, log),
		roundRepo:    repos.NewQueryRoundRepo(db, log),
		assocRepo:    repos.NewResultAssociationRepo(db, log),
		feedbackRepo: repos.NewFeedbackRepo(db, log),
		jobRepo:      repos.NewJobRunRepo(db, log),
		gen:          &fakeGenerator{out: "SELECT id FROM contacts LIMIT 5000"},
	}
	h.jobs = NewJobService(db, log, h.jobRepo, NewJobNotifier(log, nil), nil, "")
	h.queries = NewAudienceQueryService(db, log, h.profileRepo, h.roundRepo, h.feedbackRepo,
		NewGenerationService(log, h.gen, 0), h.jobs, prompts.Options{})
	h.profiles = NewAudienceProfileService(db, log, h.profileRepo)
	h.feedback = NewFeedbackService(db, log, h.profileRepo, h.roundRepo, h.assocRepo, h.feedbackRepo)
	h.results = NewAudienceResultService(db, log, h.profileRepo, h.roundRepo, h.assocRepo)
	return h
}

func asUser(userID string) dbctx.Context {
	return dbctx.Context{Ctx: ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID})}
}
