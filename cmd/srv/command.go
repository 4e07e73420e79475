package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "luckydraw"
	app.Usage = "Reward wheel and monthly lottery draws"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to the toml config file",
			EnvVars: []string{"CONFIG_FILE"},
		},
	}

	app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start service api",
			Category:    "Api",
			Description: `Used to start the http api, it serves the wheel and the draw administration.`,
		},
		{
			Action:      s.startCron,
			Name:        "cron",
			Usage:       "Start cron jobs",
			Category:    "Worker",
			Description: `Used to start the job that creates, locks and optionally draws the monthly draws.`,
		},
		{
			Action:      s.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the database",
			Category:    "Database",
			Description: `Used to apply the sql migrations, or to auto migrate tables on sqlite.`,
		},
		{
			Action:   s.startSeed,
			Name:     "seed",
			Usage:    "Load the wheel configuration from a toml file",
			Category: "Database",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "file",
					Usage: "path to the wheel seed file, defaults to wheel.seed_file of the config",
				},
				&cli.StringFlag{
					Name:  "actor",
					Value: "system:seed",
					Usage: "actor recorded in the audit log",
				},
			},
		},
		{
			Name:        "draw",
			Usage:       "Operate the draw of a period",
			Category:    "Draw",
			Subcommands: s.drawCommands(),
		},
	}

	s.app = app
}
