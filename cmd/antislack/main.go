package main

import (
	"antislack/internal/di"
	"antislack/internal/structures"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
)

func flagsFrom(c *cli.Context) *structures.CliFlags {
	return &structures.CliFlags{
		ConfigPath: c.String("config"),
		DebugMode:  c.Bool("debug"),
	}
}

func serve(c *cli.Context) error {
	app, cleanup, err := di.InitApp(flagsFrom(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("init: %v", err), 1)
	}
	defer cleanup()
	return app.Run(c.Context)
}

func migrate(c *cli.Context) error {
	app, cleanup, err := di.InitApp(flagsFrom(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("init: %v", err), 1)
	}
	defer cleanup()
	return app.Upgrade(c.Context)
}

func export(c *cli.Context) error {
	svc, cleanup, err := di.InitBackup(flagsFrom(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("init: %v", err), 1)
	}
	defer cleanup()

	if c.Bool("upload") {
		location, err := svc.Upload(c.Context)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, location)
		return nil
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(svc.Export(c.Context, c.Bool("full")))
}

func importFile(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: antislack import FILE", 2)
	}
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}

	svc, cleanup, err := di.InitBackup(flagsFrom(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("init: %v", err), 1)
	}
	defer cleanup()

	res, err := svc.Import(c.Context, data, c.Bool("full"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "imported %d sites (settings: %t, stats: %t)\n", res.Sites, res.Settings, res.Stats)
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "antislack",
		Usage: "site blocker daemon with bypass challenges and lockdown mode",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				EnvVars: []string{"ANTISLACK_CONFIG"},
				Value:   "config/config.yaml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the daemon",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "migrate stored records and rebuild the rules, then exit",
				Action: migrate,
			},
			{
				Name:  "export",
				Usage: "print a backup of the block list as JSON",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "full", Usage: "include settings and usage stats"},
					&cli.BoolFlag{Name: "upload", Usage: "store a full backup in the configured sink instead"},
				},
				Action: export,
			},
			{
				Name:      "import",
				Usage:     "import a backup file; run while the daemon is stopped",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "full", Usage: "also restore settings and usage stats"},
				},
				Action: importFile,
			},
		},
	}
}

func main() {
	if err := newApp().RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
