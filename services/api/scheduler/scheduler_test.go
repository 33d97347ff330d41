package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/corrosight/internal/pipeline"
)

type fakeStarter struct {
	calls int
	err   error
}

func (f *fakeStarter) Start(context.Context) error {
	f.calls++
	return f.err
}

type fakeVersion struct {
	version string
	err     error
}

func (f *fakeVersion) Version(context.Context) (string, error) {
	return f.version, f.err
}

func TestTickSkipsUnchangedVersion(t *testing.T) {
	starter := &fakeStarter{}
	src := &fakeVersion{version: "line-7@1"}
	trig := NewTrigger(starter, src, nil)
	ctx := context.Background()

	assert.True(t, trig.Tick(ctx))
	assert.False(t, trig.Tick(ctx))
	assert.Equal(t, 1, starter.calls)

	src.version = "line-7@2"
	assert.True(t, trig.Tick(ctx))
	assert.Equal(t, 2, starter.calls)
}

func TestTickRetriesAfterBusy(t *testing.T) {
	starter := &fakeStarter{err: pipeline.ErrBusy}
	trig := NewTrigger(starter, &fakeVersion{version: "v1"}, nil)
	ctx := context.Background()

	assert.False(t, trig.Tick(ctx))

	starter.err = nil
	assert.True(t, trig.Tick(ctx))
	assert.Equal(t, 2, starter.calls)
}

func TestTickVersionError(t *testing.T) {
	starter := &fakeStarter{}
	trig := NewTrigger(starter, &fakeVersion{err: errors.New("db down")}, nil)

	assert.False(t, trig.Tick(context.Background()))
	assert.Zero(t, starter.calls)
}

func TestTickWithoutVersionAlwaysStarts(t *testing.T) {
	starter := &fakeStarter{}
	trig := NewTrigger(starter, nil, nil)

	assert.True(t, trig.Tick(context.Background()))
	assert.True(t, trig.Tick(context.Background()))
	assert.Equal(t, 2, starter.calls)
}

func TestSchedule(t *testing.T) {
	trig := NewTrigger(&fakeStarter{}, nil, nil)

	c, err := Schedule(context.Background(), "*/15 * * * *", trig)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = Schedule(context.Background(), "every tuesday", trig)
	assert.Error(t, err)
}
