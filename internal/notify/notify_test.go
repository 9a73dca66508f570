package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxkey/voxkey/internal/settings"
)

func TestFanoutDeliversAroundFailingTarget(t *testing.T) {
	var first, third []settings.Settings
	boom := errors.New("target gone")

	fanout := NewFanout(
		Observer("one", func(_ context.Context, s settings.Settings) error {
			first = append(first, s)
			return nil
		}),
		Observer("two", func(context.Context, settings.Settings) error {
			return boom
		}),
		Observer("three", func(_ context.Context, s settings.Settings) error {
			third = append(third, s)
			return nil
		}),
	)

	snapshot := settings.Default()
	snapshot.Language = "de-DE"
	results := fanout.Broadcast(context.Background(), snapshot)

	require.Len(t, results, 3)
	require.Equal(t, []settings.Settings{snapshot}, first)
	require.Equal(t, []settings.Settings{snapshot}, third)

	byTarget := map[string]settings.DeliveryResult{}
	for _, r := range results {
		byTarget[r.Target] = r
	}
	require.True(t, byTarget["one"].OK)
	require.False(t, byTarget["two"].OK)
	require.ErrorIs(t, byTarget["two"].Err, boom)
	require.True(t, byTarget["three"].OK)
}

func TestFanoutContainsPanickingTarget(t *testing.T) {
	delivered := 0
	fanout := NewFanout(
		Observer("bad", func(context.Context, settings.Settings) error {
			panic("torn down")
		}),
		Observer("good", func(context.Context, settings.Settings) error {
			delivered++
			return nil
		}),
	)

	results := fanout.Broadcast(context.Background(), settings.Default())
	require.Len(t, results, 2)
	require.False(t, results[0].OK)
	require.Error(t, results[0].Err)
	require.True(t, results[1].OK)
	require.Equal(t, 1, delivered)
}

func TestFanoutSkipsNilTargets(t *testing.T) {
	fanout := NewFanout(Target{Name: "empty"})
	require.Empty(t, fanout.Broadcast(context.Background(), settings.Default()))
}
