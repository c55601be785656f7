package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cdr.dev/slog/v3"
	"cdr.dev/slog/v3/sloggers/sloghuman"
	"github.com/urfave/cli/v3"

	"github.com/tsanders-rh/lactl/internal/serializer"
)

const name = "lactl"

var (
	// overridden during build with ldflags
	version = "dev"

	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		Usage:   "log level (debug, info, warn, error)",
		Sources: cli.EnvVars("LACTL_LOG_LEVEL"),
	}
	databaseURLFlag = &cli.StringFlag{
		Name:    "database-url",
		Usage:   "PostgreSQL URL for run history; history is not recorded when empty",
		Sources: cli.EnvVars("LACTL_DATABASE_URL"),
	}
	profilesDirFlag = &cli.StringFlag{
		Name:    "profiles-dir",
		Value:   "internal/profile/definitions",
		Usage:   "directory of cluster profile YAML files",
		Sources: cli.EnvVars("LACTL_PROFILES_DIR"),
	}
	tenantFlag = &cli.StringFlag{
		Name:    "tenant",
		Usage:   "Azure tenant ID the access token must be issued by",
		Sources: cli.EnvVars("LACTL_TENANT_ID", "AZURE_TENANT_ID"),
	}
	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatTable),
		Usage:   fmt.Sprintf("output format (supported values: %s)", strings.Join(serializer.SupportedFormats(), ", ")),
	}
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
	}
)

// NewCommand builds the root command. connect is called by commands that
// talk to Azure.
func NewCommand(connect Connector) *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Provision Log Analytics dedicated clusters, link workspaces and size commitment tiers",
		Version: version,
		Flags: []cli.Flag{
			logLevelFlag,
			databaseURLFlag,
			profilesDirFlag,
			tenantFlag,
			formatFlag,
			outputFlag,
		},
		Commands: []*cli.Command{
			analyzeCmd(connect),
			provisionCmd(connect),
			linkCmd(connect),
			recommendCmd(),
			tiersCmd(),
			profilesCmd(),
		},
	}
}

// Execute runs the CLI with os.Args and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewCommand(ConnectAzure).Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}

func newLogger(w io.Writer, level string) (slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return slog.Logger{}, err
	}
	return slog.Make(sloghuman.Sink(w)).Leveled(lvl), nil
}

// writeResult serializes v to --output or the command's writer
func writeResult(ctx context.Context, cmd *cli.Command, log slog.Logger, v any) error {
	format, err := serializer.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	var w *serializer.Writer
	if path := cmd.String("output"); path != "" {
		w, err = serializer.NewFileWriter(format, path)
	} else {
		w, err = serializer.NewWriter(format, cmd.Root().Writer)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			log.Warn(ctx, "failed to close output", slog.Error(err))
		}
	}()

	return w.Serialize(ctx, v)
}
