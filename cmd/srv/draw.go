package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

var (
	periodFlag = &cli.StringFlag{
		Name:     "period",
		Aliases:  []string{"p"},
		Usage:    "period key, e.g. 2026-02",
		Required: true,
	}

	actorFlag = &cli.StringFlag{
		Name:    "actor",
		Usage:   "operator recorded in the audit log",
		EnvVars: []string{"DRAW_ACTOR"},
		Value:   "system:cli",
	}
)

func (s *srv) drawCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "ensure",
			Usage:  "Create the draw of a period if it does not exist",
			Flags:  []cli.Flag{periodFlag, actorFlag},
			Action: s.drawAction(s.ensureDraw),
		},
		{
			Name:   "lock",
			Usage:  "Lock the draw of a period, later entries are not eligible",
			Flags:  []cli.Flag{periodFlag, actorFlag},
			Action: s.drawAction(s.lockDraw),
		},
		{
			Name:  "select",
			Usage: "Select the winner of a category, or re-roll it with --reason",
			Flags: []cli.Flag{
				periodFlag,
				actorFlag,
				&cli.StringFlag{Name: "category", Usage: "entry category, defaults to general"},
				&cli.StringFlag{Name: "reason", Usage: "re-roll the current winner for this reason"},
			},
			Action: s.drawAction(s.selectWinner),
		},
		{
			Name:   "publish",
			Usage:  "Publish the winners of a period",
			Flags:  []cli.Flag{periodFlag, actorFlag},
			Action: s.drawAction(s.publishDraw),
		},
		{
			Name:  "export",
			Usage: "Write the entries and winners of a period to an xlsx workbook",
			Flags: []cli.Flag{
				periodFlag,
				actorFlag,
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, defaults to lottery-<period>.xlsx"},
				&cli.BoolFlag{Name: "archive", Usage: "upload the workbook to the storage instead"},
			},
			Action: s.drawAction(s.exportDraw),
		},
	}
}

func (s *srv) drawAction(fn func(context.Context, *cli.Context) (any, error)) cli.ActionFunc {
	return func(ct *cli.Context) error {
		if err := s.loadCommon(ct); err != nil {
			return err
		}
		defer s.stop()

		ctx := xcontext.WithActor(s.ctx, ct.String("actor"))
		result, err := fn(ctx, ct)
		if err != nil {
			return err
		}

		if result == nil {
			return nil
		}

		b, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(ct.App.Writer, string(b))
		return nil
	}
}

func (s *srv) drawID(ctx context.Context, periodKey string) (string, error) {
	resp, err := s.drawDomain.GetDraw(ctx, &model.GetDrawRequest{PeriodKey: periodKey})
	if err != nil {
		return "", err
	}

	return resp.Draw.ID, nil
}

func (s *srv) ensureDraw(ctx context.Context, ct *cli.Context) (any, error) {
	return s.drawDomain.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: ct.String("period")})
}

func (s *srv) lockDraw(ctx context.Context, ct *cli.Context) (any, error) {
	drawID, err := s.drawID(ctx, ct.String("period"))
	if err != nil {
		return nil, err
	}

	return s.drawDomain.Lock(ctx, &model.LockDrawRequest{DrawID: drawID})
}

func (s *srv) selectWinner(ctx context.Context, ct *cli.Context) (any, error) {
	drawID, err := s.drawID(ctx, ct.String("period"))
	if err != nil {
		return nil, err
	}

	if reason := ct.String("reason"); reason != "" {
		return s.drawDomain.RerollWinner(ctx, &model.RerollWinnerRequest{
			DrawID:   drawID,
			Category: ct.String("category"),
			Reason:   reason,
		})
	}

	return s.drawDomain.SelectWinner(ctx, &model.SelectWinnerRequest{
		DrawID:   drawID,
		Category: ct.String("category"),
	})
}

func (s *srv) publishDraw(ctx context.Context, ct *cli.Context) (any, error) {
	drawID, err := s.drawID(ctx, ct.String("period"))
	if err != nil {
		return nil, err
	}

	return s.drawDomain.Publish(ctx, &model.PublishDrawRequest{DrawID: drawID})
}

func (s *srv) exportDraw(ctx context.Context, ct *cli.Context) (any, error) {
	periodKey := ct.String("period")
	if ct.Bool("archive") {
		return s.exportDomain.ArchiveExport(ctx, &model.ArchiveExportRequest{PeriodKey: periodKey})
	}

	out := ct.String("out")
	if out == "" {
		out = fmt.Sprintf("lottery-%s.xlsx", periodKey)
	}

	f, err := os.Create(out)
	if err != nil {
		return nil, err
	}

	if err := s.exportDomain.WriteWorkbook(ctx, periodKey, f); err != nil {
		return nil, errors.Join(err, f.Close(), os.Remove(out))
	}

	if err := f.Close(); err != nil {
		return nil, err
	}

	xcontext.Logger(ctx).Infof("Exported %s to %s", periodKey, out)
	return nil, nil
}
