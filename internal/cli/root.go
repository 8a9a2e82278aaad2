package cli

import (
	"context"
	"os"

	"github.com/atinyakov/glbkeeper/internal/config"
	"github.com/atinyakov/glbkeeper/internal/logger"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// needsApp marks commands that require the stores to be opened.
const needsApp = "glbkeeper/app"

type rootFlags struct {
	config   string
	dataDir  string
	driver   string
	dsn      string
	logLevel string
	workers  int
}

// Execute runs the command line with fang and releases the stores afterwards.
func Execute(ctx context.Context, version string) error {
	app := &App{}
	defer func() { _ = app.Close() }()

	return fang.Execute(
		ctx,
		NewRootCmd(app),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	)
}

// NewRootCmd builds the command tree around app. The caller owns app and
// must Close it after the command returns.
func NewRootCmd(app *App) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "glbkeeper",
		Short: "Offline catalog of .glb 3D models",
		Long: `glbkeeper keeps a private, local catalog of .glb 3D model files.

Administrators import and delete models; every logged in user can browse the
catalog and hand a model over to an external viewer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[needsApp] == "" {
				return nil
			}
			opts, err := loadOptions(cmd, flags)
			if err != nil {
				return err
			}

			lg := logger.New()
			if err := lg.Init(opts.LogLevel); err != nil {
				return err
			}
			if err := app.open(cmd.Context(), opts, lg.Log); err != nil {
				lg.Log.Error("cannot open catalog", zap.Error(err))
				return err
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "path to the JSON config file")
	pf.StringVar(&flags.dataDir, "data-dir", "", "directory holding the database, model files and session")
	pf.StringVar(&flags.driver, "db-driver", "", "database driver: sqlite3 or postgres")
	pf.StringVar(&flags.dsn, "dsn", "", "database connection string")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.IntVar(&flags.workers, "workers", 0, "size of the background worker pool")

	cmd.AddCommand(
		withApp(newLoginCmd(app)),
		withApp(newLogoutCmd(app)),
		withApp(newWhoamiCmd(app)),
		withApp(newListCmd(app)),
		withApp(newShowCmd(app)),
		withApp(newImportCmd(app)),
		withApp(newDeleteCmd(app)),
		withApp(newOpenCmd(app)),
		withApp(newCheckCmd(app)),
		withApp(newShellCmd(app)),
	)

	return cmd
}

func withApp(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[needsApp] = "true"
	return cmd
}

// loadOptions reads the configuration and applies the flags the user set.
func loadOptions(cmd *cobra.Command, flags rootFlags) (*config.Options, error) {
	opts, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("data-dir") {
		opts.DataDir = flags.dataDir
	}
	if fs.Changed("db-driver") {
		opts.Driver = flags.driver
	}
	if fs.Changed("dsn") {
		opts.DatabaseDSN = flags.dsn
	}
	if fs.Changed("log-level") {
		opts.LogLevel = flags.logLevel
	}
	if fs.Changed("workers") {
		opts.Workers = flags.workers
	}
	return opts, nil
}
