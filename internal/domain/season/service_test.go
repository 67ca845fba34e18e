package season_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padihub/internal/core/apperror"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/events"
	"padihub/internal/domain/season"
	"padihub/internal/infrastructure/storage/memory"
)

func newSeasonService() (*season.Service, *memory.SeasonRepo) {
	repo := memory.NewSeasonRepo()
	return season.NewService(repo, memory.NewTxManager(), events.NewBus()), repo
}

func mainHarvest() *season.Season {
	s := season.NewSeason("Main harvest 2026")
	s.Presets = season.PresetList{
		{
			Name: "standard",
			Deductions: deduction.List{
				{Name: "moisture", Percent: decimal.NewFromInt(3)},
				{Name: "dirt", Percent: decimal.NewFromInt(2)},
			},
		},
		{
			Name: "wet-paddy",
			Deductions: deduction.List{
				{Name: "moisture", Percent: decimal.NewFromInt(7)},
			},
		},
	}
	return s
}

func TestSeasonValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, mainHarvest().Validate(ctx))
	})

	t.Run("name required", func(t *testing.T) {
		s := season.NewSeason("")
		assert.Error(t, s.Validate(ctx))
	})

	t.Run("end before start", func(t *testing.T) {
		s := mainHarvest()
		end := s.StartDate.Add(-24 * time.Hour)
		s.EndDate = &end
		assert.Error(t, s.Validate(ctx))
	})

	t.Run("duplicate preset names", func(t *testing.T) {
		s := mainHarvest()
		s.Presets = append(s.Presets, deduction.Preset{Name: "standard"})
		assert.Error(t, s.Validate(ctx))
	})

	t.Run("negative preset percent", func(t *testing.T) {
		s := mainHarvest()
		s.Presets[0].Deductions[0].Percent = decimal.NewFromInt(-1)
		assert.Error(t, s.Validate(ctx))
	})
}

func TestSeasonActivateSwitchesExclusively(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSeasonService()

	first := mainHarvest()
	second := season.NewSeason("Off-season 2026")
	require.NoError(t, svc.Create(ctx, first))
	require.NoError(t, svc.Create(ctx, second))

	_, err := svc.GetActive(ctx)
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.Activate(ctx, first.ID))
	active, err := svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	require.NoError(t, svc.Activate(ctx, second.ID))
	active, err = svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	// The first season is deactivated, not deleted.
	demoted, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, demoted.Active)
}

func TestSeasonPresetStore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSeasonService()

	s := mainHarvest()
	require.NoError(t, svc.Create(ctx, s))
	require.NoError(t, svc.Activate(ctx, s.ID))

	presets, err := svc.ActivePresets(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "standard", presets[0].Name)

	preset, err := svc.PresetByName(ctx, "wet-paddy")
	require.NoError(t, err)
	require.Len(t, preset.Deductions, 1)
	assert.True(t, preset.Deductions[0].Percent.Equal(decimal.NewFromInt(7)))

	_, err = svc.PresetByName(ctx, "nonexistent")
	assert.True(t, apperror.IsNotFound(err))
}
