package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veripass/veripass/backend/reader-services/internal/readings"
)

func TestMemoryRepoRecordAndGet(t *testing.T) {
	r := NewMemoryRepo()
	rec := &readings.Reading{
		DeviceID:       "kiosk-7",
		DocumentMasked: "L8*****36",
		Format:         "TD3",
		Protocol:       "bac",
		Outcome:        readings.OutcomeSuccess,
		DurationMs:     2100,
	}
	id, err := r.Create(rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := r.Get(id)
	require.NoError(t, err)
	require.Equal(t, "kiosk-7", got.DeviceID)
	require.Equal(t, "L8*****36", got.DocumentMasked)
	require.False(t, got.CreatedAt.IsZero())

	_, err = r.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoListFilters(t *testing.T) {
	r := NewMemoryRepo()
	seed := []*readings.Reading{
		{DeviceID: "kiosk-1", Protocol: "pace", Outcome: readings.OutcomeSuccess},
		{DeviceID: "kiosk-1", Protocol: "bac", Outcome: readings.OutcomeFailure, FailureCategory: "bac_denied"},
		{DeviceID: "kiosk-2", Protocol: "bac", Outcome: readings.OutcomeFailure, FailureCategory: "chip_unreachable"},
	}
	for _, rec := range seed {
		_, err := r.Create(rec)
		require.NoError(t, err)
	}

	list, err := r.List(readings.Filter{DeviceID: "kiosk-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = r.List(readings.Filter{Outcome: readings.OutcomeFailure, FailureCategory: "bac_denied"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "kiosk-1", list[0].DeviceID)

	list, err = r.List(readings.Filter{Since: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = r.List(readings.Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestMemoryRepoAttachArtifact(t *testing.T) {
	r := NewMemoryRepo()
	id, err := r.Create(&readings.Reading{DeviceID: "kiosk-1", Outcome: readings.OutcomeFailure})
	require.NoError(t, err)

	require.NoError(t, r.AttachArtifact(id, "traces/kiosk-1/abc.bin"))
	got, err := r.Get(id)
	require.NoError(t, err)
	require.Equal(t, "traces/kiosk-1/abc.bin", got.ArtifactKey)

	require.ErrorIs(t, r.AttachArtifact("missing", "x"), ErrNotFound)
}

func TestMemoryRepoStats(t *testing.T) {
	r := NewMemoryRepo()
	seed := []*readings.Reading{
		{DeviceID: "kiosk-1", Protocol: "bac", Outcome: readings.OutcomeSuccess},
		{DeviceID: "kiosk-1", Protocol: "bac", Outcome: readings.OutcomeSuccess},
		{DeviceID: "kiosk-1", Protocol: "bac", Outcome: readings.OutcomeFailure, FailureCategory: "bac_denied"},
		{DeviceID: "kiosk-2", Protocol: "pace", Outcome: readings.OutcomeFailure, FailureCategory: "pace_denied"},
	}
	for _, rec := range seed {
		_, err := r.Create(rec)
		require.NoError(t, err)
	}

	s, err := r.Stats(readings.Filter{})
	require.NoError(t, err)
	require.EqualValues(t, 4, s.Total)
	require.EqualValues(t, 2, s.Successes)
	require.EqualValues(t, 2, s.Failures)
	require.InDelta(t, 0.5, s.SuccessRate, 1e-9)
	require.EqualValues(t, 1, s.ByCategory["bac_denied"])
	require.EqualValues(t, 3, s.ByProtocol["bac"])

	s, err = r.Stats(readings.Filter{DeviceID: "kiosk-1"})
	require.NoError(t, err)
	require.EqualValues(t, 3, s.Total)
	require.InDelta(t, 2.0/3.0, s.SuccessRate, 1e-9)
}
