package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/domain/audience"
)

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string) *types.AudienceProfile {
	tb.Helper()
	p := &types.AudienceProfile{
		ID:                uuid.New(),
		UserID:            userID,
		Name:              "profile",
		FreeFormContacts:  "Heads of sales at mid-size SaaS companies in Texas",
		AdditionalContext: "",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedRound(tb testing.TB, ctx context.Context, tx *gorm.DB, profileID uuid.UUID, prior *uuid.UUID, status string, createdAt time.Time) *types.QueryRound {
	tb.Helper()
	r := &types.QueryRound{
		ID:        uuid.New(),
		ProfileID: profileID,
		PriorID:   prior,
		Query:     "SELECT * FROM contacts LIMIT 5000",
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed round: %v", err)
	}
	return r
}

// ContactRows builds n warehouse-shaped rows with ids "1".."n".
func ContactRows(n int) []types.ContactRow {
	out := make([]types.ContactRow, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, types.ContactRow{
			audience.RowIDField: fmt.Sprintf("%d", i),
			"job_title":         fmt.Sprintf("Title %d", i%3),
			"company_name":      "Acme",
			"location_city":     "Austin",
			"location_state":    "TX",
			"location_country":  "US",
			"seniority":         "director",
			"company_industry":  "Software",
			"departments":       []any{"sales"},
			"sub_departments":   []any{},
		})
	}
	return out
}

// Associations converts rows into association records in row order.
func Associations(tb testing.TB, rows []types.ContactRow) []*types.ResultAssociation {
	tb.Helper()
	out := make([]*types.ResultAssociation, 0, len(rows))
	for i, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			tb.Fatalf("marshal row: %v", err)
		}
		out = append(out, &types.ResultAssociation{
			RowID:    row.ID(),
			Position: i,
			Payload:  datatypes.JSON(b),
		})
	}
	return out
}
