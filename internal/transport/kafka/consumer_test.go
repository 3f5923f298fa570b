package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/service/trips"
	testlog "service-dispatch/internal/testutil"
)

type fakeGroup struct {
	consumeFn func(context.Context) error
	calls     int32
	closed    int32
}

func (g *fakeGroup) Consume(ctx context.Context, _ []string, _ sarama.ConsumerGroupHandler) error {
	atomic.AddInt32(&g.calls, 1)
	if g.consumeFn == nil {
		return nil
	}
	return g.consumeFn(ctx)
}
func (g *fakeGroup) Errors() <-chan error {
	ch := make(chan error)
	close(ch)
	return ch
}
func (g *fakeGroup) Close() error {
	atomic.AddInt32(&g.closed, 1)
	return nil
}
func (g *fakeGroup) Pause(map[string][]int32)  {}
func (g *fakeGroup) Resume(map[string][]int32) {}
func (g *fakeGroup) PauseAll()                 {}
func (g *fakeGroup) ResumeAll()                {}

func TestNewConsumer_SkipsWhenNoKafkaConfig(t *testing.T) {
	t.Parallel()

	rec := testlog.New()

	got, err := NewConsumer(rec.Logger(), nil, "gid", "topic", func(context.Context, trips.Event) error { return nil })
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = NewConsumer(rec.Logger(), []string{"b:9092"}, "", "topic", nil)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = NewConsumer(rec.Logger(), []string{"b:9092"}, "gid", "   ", nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestNewConsumer_ReturnsErrorWhenSaramaFails(t *testing.T) {
	orig := newConsumerGroup
	t.Cleanup(func() { newConsumerGroup = orig })

	sentinel := errors.New("boom")
	newConsumerGroup = func(_ []string, _ string, _ *sarama.Config) (sarama.ConsumerGroup, error) {
		return nil, sentinel
	}

	got, err := NewConsumer(testlog.New().Logger(), []string{"b:9092"}, "gid", "topic", nil)
	require.ErrorIs(t, err, sentinel)
	require.Nil(t, got)
}

func TestNewConsumer_OldestOffset(t *testing.T) {
	orig := newConsumerGroup
	t.Cleanup(func() { newConsumerGroup = orig })

	var gotCfg *sarama.Config
	newConsumerGroup = func(_ []string, _ string, cfg *sarama.Config) (sarama.ConsumerGroup, error) {
		gotCfg = cfg
		return &fakeGroup{}, nil
	}

	got, err := NewConsumer(nil, []string{"b:9092"}, "gid", "topic", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, sarama.OffsetOldest, gotCfg.Consumer.Offsets.Initial)
}

func TestConsumer_Run_RetriesAfterConsumeError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := testlog.New()
	g := &fakeGroup{}
	g.consumeFn = func(context.Context) error {
		if atomic.LoadInt32(&g.calls) == 1 {
			return errors.New("broker gone")
		}
		cancel()
		return nil
	}
	c := &Consumer{group: g, topic: "t", logger: rec.Logger(), retryDelay: time.Millisecond}

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 2, atomic.LoadInt32(&g.calls))
	require.True(t, rec.Has("kafka consume error"))
}

func TestConsumer_Run_StopsDuringRetryDelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	g := &fakeGroup{consumeFn: func(context.Context) error {
		cancel()
		return errors.New("broker gone")
	}}
	c := &Consumer{group: g, topic: "t", logger: testlog.New().Logger(), retryDelay: time.Hour}

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 1, atomic.LoadInt32(&g.calls))
}

func TestConsumer_NilIsNoop(t *testing.T) {
	t.Parallel()

	var c *Consumer
	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Close())
}

func TestConsumer_Close(t *testing.T) {
	t.Parallel()

	g := &fakeGroup{}
	c := &Consumer{group: g}
	require.NoError(t, c.Close())
	require.EqualValues(t, 1, atomic.LoadInt32(&g.closed))
}
