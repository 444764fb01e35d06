package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	cli "github.com/urfave/cli/v3"

	"github.com/freewebtopdf/chatfiles/internal/config"
	"github.com/freewebtopdf/chatfiles/internal/domain"
	"github.com/freewebtopdf/chatfiles/internal/orchestrator"
	"github.com/freewebtopdf/chatfiles/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "chatfiles",
		Usage: "Turn fenced code in assistant replies into project files",
		Description: "Reads an assistant message from a file or stdin, finds the files it " +
			"describes and creates or updates them in the configured store.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Usage: "Storage backend: memory, dir, sqlite or postgres", Sources: cli.EnvVars("STORAGE_BACKEND")},
			&cli.StringFlag{Name: "data-dir", Usage: "Root directory for the dir backend", Sources: cli.EnvVars("DATA_DIR")},
			&cli.StringFlag{Name: "sqlite-path", Usage: "Database file for the sqlite backend", Sources: cli.EnvVars("SQLITE_PATH")},
			&cli.StringFlag{Name: "postgres-dsn", Usage: "Connection string for the postgres backend", Sources: cli.EnvVars("POSTGRES_DSN")},
			&cli.BoolFlag{Name: "json", Usage: "Print machine-readable JSON"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log every outcome to stderr"},
		},
		Commands: []*cli.Command{
			extractCmd(stdin, stdout, stderr),
			previewCmd(stdin, stdout),
			filesCmd(stdout, stderr),
		},
	}
}

func extractCmd(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Create or update the files named in an assistant message",
		ArgsUsage: "[message-file|-]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text, err := readMessage(cmd.Args().First(), stdin)
			if err != nil {
				return err
			}

			svc, err := openService(ctx, cmd, stderr)
			if err != nil {
				return err
			}
			defer svc.Close()

			summary := svc.Orchestrator.ProcessAssistantText(ctx, text)

			if cmd.Bool("json") {
				return writeJSON(stdout, summary)
			}
			printSummary(stdout, summary)
			return nil
		},
	}
}

func previewCmd(stdin io.Reader, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Show which files a message would produce without writing anything",
		ArgsUsage: "[message-file|-]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text, err := readMessage(cmd.Args().First(), stdin)
			if err != nil {
				return err
			}

			// preview never touches storage, so no backend is opened
			planned := orchestrator.New(nil, zerolog.Nop()).Preview(text)

			if cmd.Bool("json") {
				return writeJSON(stdout, planned)
			}
			printPlan(stdout, planned)
			return nil
		},
	}
}

func filesCmd(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "List stored files",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := openService(ctx, cmd, stderr)
			if err != nil {
				return err
			}
			defer svc.Close()

			files, err := svc.Store.ListFiles(ctx)
			if err != nil {
				return fmt.Errorf("listing files: %w", err)
			}

			if cmd.Bool("json") {
				return writeJSON(stdout, files)
			}

			w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tLANGUAGE\tSIZE\tUPDATED")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Path, f.Language, f.Size, f.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

// openService loads configuration, applies flag overrides and opens the store
func openService(ctx context.Context, cmd *cli.Command, stderr io.Writer) (*service.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if v := cmd.String("backend"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := cmd.String("data-dir"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := cmd.String("sqlite-path"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := cmd.String("postgres-dsn"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	return service.New(ctx, cfg, newLogger(stderr, cmd.Bool("verbose")))
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).Level(level).With().Timestamp().Logger()
}

// readMessage reads the named file, or stdin when the name is empty or "-"
func readMessage(name string, stdin io.Reader) (string, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading message: %w", err)
	}
	return string(data), nil
}

func printSummary(w io.Writer, s *domain.Summary) {
	if len(s.Outcomes) == 0 {
		fmt.Fprintln(w, "no files found")
		return
	}
	for _, name := range s.Created {
		fmt.Fprintf(w, "created  %s\n", name)
	}
	for _, name := range s.Updated {
		fmt.Fprintf(w, "updated  %s\n", name)
	}
	for _, msg := range s.Errors {
		fmt.Fprintf(w, "error    %s\n", msg)
	}
}

func printPlan(w io.Writer, planned []domain.PlannedFile) {
	if len(planned) == 0 {
		fmt.Fprintln(w, "no files found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILENAME\tLANGUAGE\tRULE\tSIZE\tSTATUS")
	for _, p := range planned {
		status := "ok"
		if !p.Valid {
			status = "invalid (" + string(p.Reason) + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.Filename, p.Language, p.Rule, p.Size, status)
	}
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
