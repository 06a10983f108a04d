package book

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"prudentia/internal/basel"
	"prudentia/internal/config"
	"prudentia/internal/store"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	s, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	repo, err := NewRepository(s, zaptest.NewLogger(t))
	require.NoError(t, err)
	return repo
}

func samplePortfolio() basel.Portfolio {
	turnover := 12_000_000.0
	return basel.NewPortfolio([]basel.Loan{
		{ID: "C1", PD: 0.01, LGD: 0.45, EAD: 1_000_000, Maturity: 2.5, ExposureType: basel.ExposureCorporate},
		{ID: "S1", PD: 0.04, LGD: 0.4, EAD: 300_000, Maturity: 3, ExposureType: basel.ExposureSME, Turnover: &turnover},
		{ID: "R1", PD: 0.02, LGD: 0.3, EAD: 20_000, Maturity: 1, ExposureType: basel.ExposureRetail},
	})
}

func TestRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, "q3-book", samplePortfolio())
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	got, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "q3-book", got.Name)
	assert.Equal(t, samplePortfolio(), got.Portfolio)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestRepository_SaveRejectsInvalidLoans(t *testing.T) {
	repo := newTestRepository(t)

	bad := samplePortfolio()
	bad.Loans[1].LGD = 2
	_, err := repo.Save(context.Background(), "bad", bad)
	require.Error(t, err)

	list, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_ListAndDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.Save(ctx, "first", samplePortfolio())
	require.NoError(t, err)
	_, err = repo.Save(ctx, "empty", basel.Portfolio{})
	require.NoError(t, err)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byName := map[string]Summary{}
	for _, s := range list {
		byName[s.Name] = s
	}
	assert.Equal(t, 3, byName["first"].LoanCount)
	assert.Equal(t, 1_320_000.0, byName["first"].TotalExposure)
	assert.Equal(t, 0, byName["empty"].LoanCount)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), ErrNotFound)

	var orphans int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM portfolio_loans`).Scan(&orphans))
	assert.Equal(t, 0, orphans)
}

func TestRepository_GetUnknown(t *testing.T) {
	_, err := newTestRepository(t).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRepository_RequiresStore(t *testing.T) {
	_, err := NewRepository(nil, nil)
	assert.Error(t, err)
}
