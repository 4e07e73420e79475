package main

import (
	"errors"

	"github.com/questx-lab/luckydraw/config"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startSeed(ct *cli.Context) error {
	if err := s.loadCommon(ct); err != nil {
		return err
	}
	defer s.stop()

	path := ct.String("file")
	if path == "" {
		path = xcontext.Configs(s.ctx).Wheel.SeedFile
	}

	if path == "" {
		return errors.New("no seed file, use --file or wheel.seed_file")
	}

	seed, err := config.LoadWheelSeed(path)
	if err != nil {
		return err
	}

	ctx := xcontext.WithActor(s.ctx, ct.String("actor"))
	_, err = s.wheelDomain.UpdateAppConfig(ctx, &model.UpdateAppConfigRequest{
		PremiumMultiplier:   seed.PremiumMultiplier,
		StreakWindowDays:    seed.StreakWindowDays,
		StreakBonusStandard: seed.StreakBonus.Standard,
		StreakBonusPremium:  seed.StreakBonus.Premium,
		Reason:              "seed " + path,
	})
	if err != nil {
		return err
	}

	segments := []model.WheelSegment{}
	for _, segment := range seed.Segments {
		segments = append(segments, model.WheelSegment{
			Index:          segment.Index,
			Label:          segment.Label,
			Icon:           segment.Icon,
			Outcome:        segment.Outcome,
			Category:       segment.Category,
			Quantity:       segment.Quantity,
			WeightStandard: segment.WeightStandard,
			WeightPremium:  segment.WeightPremium,
			Active:         segment.IsActive(),
		})
	}

	_, err = s.wheelDomain.UpdateSegments(ctx, &model.UpdateSegmentsRequest{
		Segments: segments,
		Reason:   "seed " + path,
	})
	if err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Loaded %d segments from %s", len(segments), path)
	return nil
}
