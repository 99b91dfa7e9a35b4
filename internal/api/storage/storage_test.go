package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/storetest"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	return NewStorage(storetest.New(t))
}

func seedUser(t *testing.T, s *Storage, username string) string {
	t.Helper()

	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user.ID
}

// seedFacts inserts n facts one minute apart, the last one newest
func seedFacts(t *testing.T, s *Storage, userID string, n int) []model.Fact {
	t.Helper()

	facts := make([]model.Fact, 0, n)
	for i := 0; i < n; i++ {
		f := model.Fact{
			ID:         fmt.Sprintf("fact-%02d", i),
			UserID:     userID,
			Content:    fmt.Sprintf("fact number %d", i),
			Category:   domain.FactProfessional,
			SourceType: domain.FactSourceUserProvided,
			Confidence: 1,
			CreatedAt:  baseTime.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.CreateFact(context.Background(), &f))
		facts = append(facts, f)
	}
	return facts
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}
