package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/metrics"
)

func TestRegister(t *testing.T) {
	l, _ := test.NewNullLogger()
	s := New(context.Background(), l)

	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Register("scout", "*/10 * * * *", noop))
	require.NoError(t, s.Register("report", "@daily", noop))
	require.NoError(t, s.Register("crawl", "", noop))
	assert.Error(t, s.Register("scout", "@hourly", noop))
	assert.Error(t, s.Register("bad", "not a spec", noop))

	assert.Equal(t, []string{"report", "scout"}, s.Jobs())

	s.Start()
	next, ok := s.Next("scout")
	assert.True(t, ok)
	assert.True(t, next.After(time.Now()))
	s.Stop()
}

func TestSchedulesInUTC(t *testing.T) {
	l, _ := test.NewNullLogger()
	s := New(context.Background(), l)
	assert.Equal(t, time.UTC, s.cron.Location())

	require.NoError(t, s.Register("report", "0 8 * * *", func(context.Context) error { return nil }))
	s.Start()
	defer s.Stop()

	next, ok := s.Next("report")
	require.True(t, ok)
	assert.Equal(t, time.UTC, next.Location())
	assert.Equal(t, 8, next.Hour())
}

func TestWrapRecordsOutcome(t *testing.T) {
	l, hook := test.NewNullLogger()
	s := New(context.Background(), l)

	before := testutil.ToFloat64(metrics.PassTotal.WithLabelValues("unit-fail", "error"))
	s.wrap("unit-fail", func(context.Context) error { return errors.New("boom") })()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PassTotal.WithLabelValues("unit-fail", "error")))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestWrapSkipsAfterCancel(t *testing.T) {
	l, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, l)
	cancel()

	called := false
	s.wrap("unit-cancel", func(context.Context) error { called = true; return nil })()
	assert.False(t, called)
}
