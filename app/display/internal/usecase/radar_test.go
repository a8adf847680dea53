package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/signal_radar/app/display/internal/domain"
	dm "github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

// mockRadarRepo 模拟雷达仓库
type mockRadarRepo struct {
	date  string
	limit int
	since time.Time
}

func (m *mockRadarRepo) LatestReport(ctx context.Context) (*domain.Report, error) {
	return &domain.Report{Date: "2026-10-19"}, nil
}

func (m *mockRadarRepo) ReportByDate(ctx context.Context, date string) (*domain.Report, error) {
	m.date = date
	return &domain.Report{Date: date}, nil
}

func (m *mockRadarRepo) AccountTimeline(ctx context.Context, customerID int64, limit int) (*domain.AccountTimeline, error) {
	m.limit = limit
	return &domain.AccountTimeline{CustomerID: customerID}, nil
}

func (m *mockRadarRepo) AccountRisks(ctx context.Context, limit int) ([]dm.AccountRisk, error) {
	m.limit = limit
	return nil, nil
}

func (m *mockRadarRepo) Company(ctx context.Context, name string) (*domain.Company, error) {
	return &domain.Company{Name: name}, nil
}

func (m *mockRadarRepo) ArticleSignals(ctx context.Context, articleID int64) (*domain.ArticleSignals, error) {
	return &domain.ArticleSignals{ArticleID: articleID}, nil
}

func (m *mockRadarRepo) Status(ctx context.Context) (*domain.PipelineStatus, error) {
	return &domain.PipelineStatus{}, nil
}

func (m *mockRadarRepo) CompanyOverview(ctx context.Context, since time.Time, limit int) (*domain.CompanyOverview, error) {
	m.since = since
	m.limit = limit
	return &domain.CompanyOverview{}, nil
}

func TestRadarUseCase_ReportByDate(t *testing.T) {
	repo := &mockRadarRepo{}
	uc := NewRadarUseCase(repo, log.DefaultLogger)

	r, err := uc.ReportByDate(context.Background(), "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", r.Date)

	_, err = uc.ReportByDate(context.Background(), "18/10/2026")
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
	assert.Equal(t, "2026-10-18", repo.date)
}

func TestRadarUseCase_Limits(t *testing.T) {
	repo := &mockRadarRepo{}
	uc := NewRadarUseCase(repo, log.DefaultLogger)
	ctx := context.Background()

	_, err := uc.AccountTimeline(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, repo.limit)

	_, err = uc.AccountTimeline(ctx, 1, 10000)
	require.NoError(t, err)
	assert.Equal(t, maxLimit, repo.limit)

	_, err = uc.AccountTimeline(ctx, 0, 10)
	assert.True(t, errors.IsBadRequest(err))

	risks, err := uc.AccountRisks(ctx, 5)
	require.NoError(t, err)
	assert.NotNil(t, risks)
	assert.Equal(t, 5, repo.limit)
}

func TestRadarUseCase_CompanyOverview(t *testing.T) {
	repo := &mockRadarRepo{}
	uc := NewRadarUseCase(repo, log.DefaultLogger)
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	o, err := uc.CompanyOverview(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultWindowDays, o.WindowDays)
	assert.Equal(t, now.AddDate(0, 0, -30), repo.since)

	o, err = uc.CompanyOverview(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, o.WindowDays)
	assert.Equal(t, 3, repo.limit)
}

func TestRadarUseCase_LookupValidation(t *testing.T) {
	uc := NewRadarUseCase(&mockRadarRepo{}, log.DefaultLogger)
	ctx := context.Background()

	c, err := uc.Company(ctx, "  Acme ")
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)

	_, err = uc.Company(ctx, " ")
	assert.True(t, errors.IsBadRequest(err))

	_, err = uc.ArticleSignals(ctx, -1)
	assert.True(t, errors.IsBadRequest(err))
}
