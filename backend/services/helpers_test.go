package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"career-roadmap/backend/models"
	"career-roadmap/backend/repository"
	"career-roadmap/backend/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// scriptedOracle answers with queued replies and records every prompt.
type scriptedOracle struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
}

type reply struct {
	text string
	err  error
}

func (o *scriptedOracle) Name() string { return "scripted" }

func (o *scriptedOracle) Complete(ctx context.Context, prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prompts = append(o.prompts, prompt)
	if len(o.replies) == 0 {
		return "", fmt.Errorf("no scripted reply left")
	}
	r := o.replies[0]
	o.replies = o.replies[1:]
	return r.text, r.err
}

func (o *scriptedOracle) push(text string, err error) *scriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.replies = append(o.replies, reply{text: text, err: err})
	return o
}

func (o *scriptedOracle) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.prompts)
}

func stagesJSON(t *testing.T, n int, prefix string) string {
	t.Helper()
	out := make([]map[string]interface{}, n)
	for i := range out {
		out[i] = map[string]interface{}{
			"title":         fmt.Sprintf("%s week %d", prefix, i+1),
			"tasks":         []string{"study", "practice"},
			"daily_goal":    "2 hours",
			"why_important": "builds the base",
			"resources": []map[string]string{
				{"title": "Tour", "url": "https://example.com/tour", "type": "course"},
			},
		}
	}
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	return string(raw)
}

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=1"), utils.GormConfig(gormLogger.Silent))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, utils.Migrate(db))
	return repository.NewRoadmapRepository(db)
}

func testProfile() models.UserProfile {
	return models.UserProfile{
		EducationLevel:  "3rd Year BTech",
		Skills:          []string{"Python", "SQL"},
		TargetCompanies: []string{"Google"},
		Interests:       []string{"data"},
		Weeks:           4,
	}
}
