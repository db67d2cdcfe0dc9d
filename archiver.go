package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/ToolmanP/forumactif-archiver/pkg/client"
	"github.com/ToolmanP/forumactif-archiver/pkg/storage"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
	"github.com/ToolmanP/forumactif-archiver/pkg/worker"
)

type app struct {
	archiver *worker.Archiver
	logs     io.Closer
}

func (a *app) Close() {
	if err := a.archiver.Close(); err != nil {
		slog.Warn("Closing the state store", "err", err)
	}
	a.logs.Close()
}

func setup(ctx context.Context, cmd *cli.Command) (*app, error) {
	config, err := utils.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logs, err := utils.SetupLogging(config)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, config.State)
	if err != nil {
		logs.Close()
		return nil, err
	}

	env := worker.NewEnv(config, client.NewSession(config))
	env.Prompt = worker.StdinPrompt(os.Stdin, os.Stdout)
	a := &app{archiver: worker.NewArchiver(env, store), logs: logs}
	if err := a.archiver.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	env := a.archiver.Env()
	env.Progress = utils.NewProgress()
	// the totals are known once the statistics are read
	stats := a.archiver.Status()
	env.Progress.SetTotal(utils.Users, stats.Users.Total)
	env.Progress.SetTotal(utils.Topics, stats.Topics.Total)
	env.Progress.SetTotal(utils.Posts, stats.Posts.Total)
	env.Progress.SetCurrent(utils.Users, stats.Users.Exported)
	env.Progress.SetCurrent(utils.Topics, stats.Topics.Exported)
	env.Progress.SetCurrent(utils.Posts, stats.Posts.Exported)
	if err := env.Progress.Start(); err != nil {
		return err
	}
	err = a.archiver.Export(ctx)
	env.Progress.Stop()
	if err != nil {
		return err
	}

	path, err := a.archiver.WriteDump()
	if err != nil {
		return err
	}
	slog.Info("Le fichier SQL a été généré", "path", path)
	return nil
}

func dump(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	path, err := a.archiver.WriteDump()
	if err != nil {
		return err
	}
	slog.Info("Le fichier SQL a été généré", "path", path)
	return nil
}

func status(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.archiver.Status()
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "Exportés", "Total"})
	t.AppendRow(table.Row{"Membres", s.Users.Exported, s.Users.Total})
	t.AppendRow(table.Row{"Sujets", s.Topics.Exported, s.Topics.Total})
	t.AppendRow(table.Row{"Messages", s.Posts.Exported, s.Posts.Total})
	t.AppendRow(table.Row{"Groupes", s.Groups, ""})
	t.AppendRow(table.Row{"Forums", s.Forums, ""})
	t.AppendRow(table.Row{"Émoticones", s.Smilies, ""})
	t.AppendSeparator()
	t.AppendRow(table.Row{"E-mails vérifiés", s.Trust[worker.TrustVerified], ""})
	t.AppendRow(table.Row{"E-mails plausibles", s.Trust[worker.TrustPlausible], ""})
	t.AppendRow(table.Row{"E-mails incomplets", s.Trust[worker.TrustImplausible], ""})
	t.AppendRow(table.Row{"E-mails manquants", s.Trust[worker.TrustMissing], ""})
	t.Render()

	if s.Complete {
		fmt.Println("L'exportation est terminée.")
	} else {
		fmt.Println("L'exportation n'est pas terminée.")
	}
	return nil
}

func reset(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.archiver.Reset(ctx)
}

func main() {
	cmd := &cli.Command{
		Name:   "lalf",
		Usage:  "Export a Forumactif forum to a phpBB SQL dump.",
		Action: export,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file, config.yaml by default.",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "export",
				Usage:  "Export the forum, resuming the previous run.",
				Action: export,
			},
			{
				Name:   "dump",
				Usage:  "Write the SQL dump of a finished export.",
				Action: dump,
			},
			{
				Name:   "status",
				Usage:  "Show the progress of the export.",
				Action: status,
			},
			{
				Name:   "reset",
				Usage:  "Forget the saved state.",
				Action: reset,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		var exportErr *worker.ExportError
		if errors.As(err, &exportErr) {
			fmt.Fprintln(os.Stderr, exportErr.Message())
			stop()
			os.Exit(1)
		}
		log.Fatal(err)
	}
}
