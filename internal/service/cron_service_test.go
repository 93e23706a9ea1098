package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuehunt/venuehunt/internal/recommend"
)

type stubRefresher struct {
	n      int
	err    error
	forced []bool
}

func (s *stubRefresher) Refresh(_ context.Context, force bool) (int, error) {
	s.forced = append(s.forced, force)
	return s.n, s.err
}

type stubPurger struct {
	cutoff time.Time
	n      int64
}

func (s *stubPurger) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.n, nil
}

func TestCronRefreshJob(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := &stubRefresher{n: 12}
	s := NewCronService(r, nil, logger)
	s.Now = func() time.Time { return fixedNow }

	s.refreshSimilarityJob()
	assert.Equal(t, []bool{false}, r.forced)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "similarity refresh done", hook.LastEntry().Message)
	assert.Equal(t, 12, hook.LastEntry().Data["pairs"])

	r.err = recommend.ErrLockHeld
	s.refreshSimilarityJob()
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

	r.err = errors.New("database error")
	s.refreshSimilarityJob()
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestCronPurgeJob(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := &stubPurger{n: 3}
	s := NewCronService(nil, p, logger)
	s.Now = func() time.Time { return fixedNow }

	s.purgeTokensJob()
	assert.Equal(t, fixedNow, p.cutoff)
	assert.Equal(t, int64(3), hook.LastEntry().Data["deleted"])
}

func TestCronStartRejectsBadSchedule(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewCronService(&stubRefresher{}, nil, logger)
	s.RefreshSchedule = "every day"
	assert.Error(t, s.Start())

	ok := NewCronService(&stubRefresher{}, &stubPurger{}, logger)
	require.NoError(t, ok.Start())
	ok.Stop()
}
