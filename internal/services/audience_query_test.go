package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/audience-backend/internal/data/repos/testutil"
	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/domain/audience"
	jobstatus "github.com/yungbote/audience-backend/internal/domain/jobs"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
)

func TestCreateRoundInitial(t *testing.T) {
	h := newHarness(t)
	user := asUser("user-1")
	profile, err := h.profiles.Create(user)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	h.gen.out = "```sql\nSELECT id FROM contacts LIMIT 5000\n```"

	round, err := h.queries.CreateRound(user, profile.ID, nil)
	if err != nil {
		t.Fatalf("CreateRound: %v", err)
	}
	if round.Status != audience.RoundStatusCreated || round.Query != "SELECT id FROM contacts LIMIT 5000" {
		t.Fatalf("unexpected round %+v", round)
	}
	if round.PriorID != nil || round.PromptHash == "" || round.Model != "fake-model" {
		t.Fatalf("unexpected round metadata %+v", round)
	}
	if round.Summary != nil || round.TotalCount != nil {
		t.Fatalf("fresh round must not carry results")
	}

	prompt := h.gen.user()
	for _, want := range []string{"Free Form Contacts: None provided", "Additional Context: None provided"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}

	job, err := h.jobRepo.GetLatestByEntity(dbctx.Context{Ctx: user.Ctx}, EntityTypeQueryRound, round.ID, JobTypeRoundExecute)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job == nil || job.Status != jobstatus.StatusQueued || job.OwnerUserID != "user-1" {
		t.Fatalf("expected a queued job for the round, got %+v", job)
	}
	if !strings.Contains(string(job.Payload), round.ID.String()) {
		t.Fatalf("job payload missing round id: %s", job.Payload)
	}

	stored, err := h.queries.GetRound(user, round.ID)
	if err != nil || stored.ID != round.ID {
		t.Fatalf("GetRound: %v %+v", err, stored)
	}
}

func TestCreateRoundEmptyCompletionPersistsNothing(t *testing.T) {
	h := newHarness(t)
	user := asUser("user-1")
	profile, err := h.profiles.Create(user)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	h.gen.out = "```\n```"

	_, err = h.queries.CreateRound(user, profile.ID, nil)
	if !errors.Is(err, apierr.ErrGenerationUnavailable) {
		t.Fatalf("expected generation unavailable, got %v", err)
	}
	var rounds, jobs int64
	h.db.Model(&types.QueryRound{}).Count(&rounds)
	h.db.Model(&types.JobRun{}).Count(&jobs)
	if rounds != 0 || jobs != 0 {
		t.Fatalf("expected nothing persisted, got %d rounds %d jobs", rounds, jobs)
	}
}

func TestCreateRoundGenerationErrorPersistsNothing(t *testing.T) {
	h := newHarness(t)
	user := asUser("user-1")
	profile := testutil.SeedProfile(t, user.Ctx, h.db, "user-1")
	h.gen.err = errors.New("rate limited")

	if _, err := h.queries.CreateRound(user, profile.ID, nil); !errors.Is(err, apierr.ErrGenerationUnavailable) {
		t.Fatalf("expected generation unavailable, got %v", err)
	}
	latest, err := h.roundRepo.GetLatestByProfile(dbctx.Context{Ctx: user.Ctx}, profile.ID)
	if err != nil || latest != nil {
		t.Fatalf("expected no round, got %+v err=%v", latest, err)
	}
}

func TestCreateRoundOwnership(t *testing.T) {
	h := newHarness(t)
	owner := asUser("owner")
	profile := testutil.SeedProfile(t, owner.Ctx, h.db, "owner")
	other := testutil.SeedProfile(t, owner.Ctx, h.db, "owner")
	foreignPrior := testutil.SeedRound(t, owner.Ctx, h.db, other.ID, nil, audience.RoundStatusCompleted, time.Now().UTC())

	if _, err := h.queries.CreateRound(asUser("intruder"), profile.ID, nil); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
	if _, err := h.queries.CreateRound(dbctx.Context{Ctx: context.Background()}, profile.ID, nil); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := h.queries.CreateRound(owner, profile.ID, &foreignPrior.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("expected not found for prior round of another profile, got %v", err)
	}
	missing := uuid.New()
	if _, err := h.queries.CreateRound(owner, profile.ID, &missing); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("expected not found for missing prior round, got %v", err)
	}
	if h.gen.calls != 0 {
		t.Fatalf("generator must not run when validation fails, ran %d times", h.gen.calls)
	}
}

func TestRefineWithoutFeedback(t *testing.T) {
	h := newHarness(t)
	user := asUser("user-1")
	profile := testutil.SeedProfile(t, user.Ctx, h.db, "user-1")
	prior := testutil.SeedRound(t, user.Ctx, h.db, profile.ID, nil, audience.RoundStatusCompleted, time.Now().UTC().Add(-time.Minute))

	round, err := h.queries.Refine(user, prior.ID)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if round.PriorID == nil || *round.PriorID != prior.ID || round.ProfileID != profile.ID {
		t.Fatalf("refinement not linked to prior round: %+v", round)
	}
	prompt := h.gen.user()
	for _, want := range []string{
		"Previous query:\n" + prior.Query,
		"Overall feedback on the previous results: None provided",
		"fewer like this):\nNone provided",
		"- job_title: none",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("refine prompt missing %q:\n%s", want, prompt)
		}
	}

	latest, err := h.queries.GetLatestRound(user, profile.ID)
	if err != nil || latest.ID != round.ID {
		t.Fatalf("latest round should be the refinement, got %+v err=%v", latest, err)
	}
	all, err := h.queries.ListRounds(user, profile.ID)
	if err != nil || len(all) != 2 || all[0].ID != round.ID {
		t.Fatalf("ListRounds: %v %d", err, len(all))
	}
}

func TestRefineCarriesFeedback(t *testing.T) {
	h := newHarness(t)
	user := asUser("user-1")
	profile := testutil.SeedProfile(t, user.Ctx, h.db, "user-1")
	prior := testutil.SeedRound(t, user.Ctx, h.db, profile.ID, nil, audience.RoundStatusCompleted, time.Now().UTC().Add(-time.Minute))
	if err := h.assocRepo.ReplaceForRound(dbctx.Context{Ctx: user.Ctx}, prior.ID, testutil.Associations(t, testutil.ContactRows(3))); err != nil {
		t.Fatalf("seed associations: %v", err)
	}
	if _, err := h.feedback.SaveOverall(user, profile.ID, prior.ID, "  more VPs please "); err != nil {
		t.Fatalf("SaveOverall: %v", err)
	}
	if _, err := h.feedback.SaveRow(user, profile.ID, prior.ID, "2", "upvote"); err != nil {
		t.Fatalf("SaveRow: %v", err)
	}
	if _, err := h.feedback.SaveRow(user, profile.ID, prior.ID, "3", "reject"); err != nil {
		t.Fatalf("SaveRow: %v", err)
	}

	if _, err := h.queries.CreateRound(user, profile.ID, &prior.ID); err != nil {
		t.Fatalf("CreateRound: %v", err)
	}
	prompt := h.gen.user()
	for _, want := range []string{
		"Overall feedback on the previous results: more VPs please",
		"- contact 2: approve | job_title=Title 2; seniority=director; company_name=Acme",
		"- contact 3: reject | job_title=Title 0",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("refine prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGetLatestRoundWithoutRounds(t *testing.T) {
	h := newHarness(t)
	user := asUser("user-1")
	profile := testutil.SeedProfile(t, user.Ctx, h.db, "user-1")
	if _, err := h.queries.GetLatestRound(user, profile.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	rounds, err := h.queries.ListRounds(user, profile.ID)
	if err != nil || len(rounds) != 0 {
		t.Fatalf("expected no rounds, got %d err=%v", len(rounds), err)
	}
}

func TestRoundJob(t *testing.T) {
	h := newHarness(t)
	user := asUser("user-1")
	profile := testutil.SeedProfile(t, user.Ctx, h.db, "user-1")
	round, err := h.queries.CreateRound(user, profile.ID, nil)
	if err != nil {
		t.Fatalf("CreateRound: %v", err)
	}

	job, err := h.queries.RoundJob(user, round.ID)
	if err != nil {
		t.Fatalf("RoundJob: %v", err)
	}
	if job.JobType != JobTypeRoundExecute || job.EntityID == nil || *job.EntityID != round.ID {
		t.Fatalf("unexpected job %+v", job)
	}
	if _, err := h.queries.RoundJob(asUser("user-2"), round.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
}
