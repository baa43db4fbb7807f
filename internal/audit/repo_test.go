package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	"github.com/arjunmehra/swiftkart-backend/pkg/pagination"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  event_type TEXT NOT NULL,
  event_key TEXT NOT NULL,
  awb_code TEXT,
  entity_id TEXT,
  outcome TEXT NOT NULL,
  error TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func recordEvent(t *testing.T, repo Repository, source enums.WebhookSource, key string, created time.Time) {
	t.Helper()
	event := &models.WebhookEvent{
		ID:        uuid.New(),
		Source:    source,
		EventType: "tracking",
		EventKey:  key,
		Outcome:   "applied",
		CreatedAt: created,
	}
	require.NoError(t, repo.Record(context.Background(), event))
}

func TestRecord_trimsOldestPastCap(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewRepository(db, 3)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		recordEvent(t, repo, enums.WebhookSourceShiprocket, fmt.Sprintf("evt-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	list, err := repo.List(context.Background(), pagination.Params{Limit: 10}, Filters{})
	require.NoError(t, err)
	require.Len(t, list.Events, 3)

	// the two oldest deliveries were dropped
	keys := make([]string, 0, len(list.Events))
	for _, event := range list.Events {
		keys = append(keys, event.EventKey)
	}
	assert.Equal(t, []string{"evt-4", "evt-3", "evt-2"}, keys)
}

func TestList_filtersBySource(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewRepository(db, 100)

	now := time.Now().UTC()
	recordEvent(t, repo, enums.WebhookSourceShiprocket, "track-1", now.Add(-2*time.Minute))
	recordEvent(t, repo, enums.WebhookSourceRazorpay, "refund-1", now.Add(-time.Minute))

	source := enums.WebhookSourceRazorpay
	list, err := repo.List(context.Background(), pagination.Params{Limit: 10}, Filters{Source: &source})
	require.NoError(t, err)
	require.Len(t, list.Events, 1)
	assert.Equal(t, "refund-1", list.Events[0].EventKey)
}

func TestClear_emptiesTheTrail(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewRepository(db, 100)

	now := time.Now().UTC()
	recordEvent(t, repo, enums.WebhookSourceShiprocket, "track-1", now.Add(-2*time.Minute))
	recordEvent(t, repo, enums.WebhookSourceShiprocket, "track-2", now.Add(-time.Minute))

	removed, err := repo.Clear(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
