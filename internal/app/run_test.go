package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"service-dispatch/internal/logx"
	testlog "service-dispatch/internal/testutil"
)

func runContainer(t *testing.T, ctx context.Context, addr string, logger logx.Logger, closed *atomic.Int32) *dig.Container {
	t.Helper()

	c := dig.New()
	require.NoError(t, c.Provide(func() context.Context { return ctx }))
	require.NoError(t, c.Provide(func() logx.Logger { return logger }))
	require.NoError(t, c.Provide(func() *http.Server {
		return &http.Server{Addr: addr, Handler: http.NewServeMux()}
	}))
	require.NoError(t, c.Provide(func() closer {
		return closer{name: "test", fn: func() error {
			closed.Add(1)
			return nil
		}}
	}, dig.Group("closers")))
	return c
}

func TestRun_StopsOnContextAndClosesResources(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closed atomic.Int32
	rec := testlog.New()
	c := runContainer(t, ctx, "127.0.0.1:0", rec.Logger(), &closed)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := run(c)
	require.ErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 1, closed.Load())
	require.True(t, rec.Has("service-dispatch listening"))
	require.True(t, rec.Has("shutting down service-dispatch"))
}

func TestRun_ListenErrorIsReturned(t *testing.T) {
	t.Parallel()

	var closed atomic.Int32
	c := runContainer(t, context.Background(), "127.0.0.1:-1", logx.Nop(), &closed)

	err := run(c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "listen")
	require.EqualValues(t, 1, closed.Load())
}

func TestGracefulShutdown_DoesNotPanic(t *testing.T) {
	t.Parallel()

	srv := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NewServeMux(),
	}

	require.NotPanics(t, func() {
		gracefulShutdown(srv, logx.Nop(), 100*time.Millisecond)
	})
}

func loggerContainer(t *testing.T, logger logx.Logger) *dig.Container {
	t.Helper()
	c := dig.New()
	require.NoError(t, c.Provide(func() logx.Logger { return logger }))
	return c
}

func TestRunner_MustRun_ShutdownRequested(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	r := &Runner{
		runFn: func(*dig.Container) error { return context.Canceled },
		exit:  func(int) { t.Fatal("exit must not be called") },
	}
	r.MustRun(loggerContainer(t, rec.Logger()))
	require.True(t, rec.Has("shutdown requested, exiting"))
}

func TestRunner_MustRun_StartupTimeout(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	r := &Runner{
		runFn: func(*dig.Container) error { return context.DeadlineExceeded },
		exit:  func(int) { t.Fatal("exit must not be called") },
	}
	r.MustRun(loggerContainer(t, rec.Logger()))
	require.True(t, rec.Has("startup aborted: startup timeout exceeded"))
}

func TestRunner_MustRun_ExitsOnFailure(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	code := -1
	r := &Runner{
		runFn: func(*dig.Container) error { return errors.New("boom") },
		exit:  func(c int) { code = c },
	}
	r.MustRun(loggerContainer(t, rec.Logger()))
	require.Equal(t, 1, code)
	e, ok := rec.Find("run error")
	require.True(t, ok)
	require.Equal(t, "error", e.Level)
}

func TestNewRunner_DefaultFields(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	require.NotNil(t, r.exit)
	require.Equal(t, fmt.Sprintf("%p", run), fmt.Sprintf("%p", r.runFn))
}

func TestCloseResources_AggregatesFailures(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	calls := 0
	err := closeResources([]closer{
		{name: "a", fn: func() error { calls++; return errors.New("a broke") }},
		{},
		{name: "b", fn: func() error { calls++; return nil }},
		{name: "c", fn: func() error { calls++; return errors.New("c broke") }},
	}, rec.Logger())

	require.Equal(t, 3, calls)
	require.ErrorContains(t, err, "close a: a broke")
	require.ErrorContains(t, err, "close c: c broke")
	require.Len(t, rec.Entries(), 2)
}

func withStubNewPool(t *testing.T, stub func(context.Context, string) (*pgxpool.Pool, error)) {
	t.Helper()
	orig := newPool
	newPool = stub
	t.Cleanup(func() { newPool = orig })
}

func TestConnectDbWithRetry_SuccessAfterFailures(t *testing.T) {
	want := &pgxpool.Pool{}
	calls := 0
	withStubNewPool(t, func(context.Context, string) (*pgxpool.Pool, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("refused")
		}
		return want, nil
	})

	rec := testlog.New()
	pool, err := connectDbWithRetry(context.Background(), rec.Logger(), "postgres://stub", 5, time.Millisecond)
	require.NoError(t, err)
	require.Same(t, want, pool)
	require.Equal(t, 3, calls)
	require.True(t, rec.Has("db connect failed"))
	require.True(t, rec.Has("db connected"))
}

func TestConnectDbWithRetry_GivesUp(t *testing.T) {
	withStubNewPool(t, func(context.Context, string) (*pgxpool.Pool, error) {
		return nil, errors.New("refused")
	})

	_, err := connectDbWithRetry(context.Background(), logx.Nop(), "postgres://stub", 2, time.Millisecond)
	require.ErrorContains(t, err, "after 2 attempts")
	require.ErrorContains(t, err, "refused")
}

func TestConnectDbWithRetry_ContextCancelled(t *testing.T) {
	withStubNewPool(t, func(context.Context, string) (*pgxpool.Pool, error) {
		return nil, errors.New("refused")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := connectDbWithRetry(ctx, logx.Nop(), "postgres://stub", 3, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
