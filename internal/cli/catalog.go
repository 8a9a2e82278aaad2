package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/glbkeeper/internal/db"
	"github.com/atinyakov/glbkeeper/internal/middleware"
	"github.com/atinyakov/glbkeeper/internal/models"
	"github.com/atinyakov/glbkeeper/internal/notify"
	"github.com/atinyakov/glbkeeper/internal/repository"
	"github.com/atinyakov/glbkeeper/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchDebounce collapses bursts of database writes from other processes.
const watchDebounce = 200 * time.Millisecond

var errDrift = errors.New("catalog and model directory disagree")

func newListCmd(app *App) *cobra.Command {
	var (
		output string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the catalog, newest first",
		Args:    cobra.NoArgs,
		PreRunE: middleware.RequireRole(app, models.RoleUser),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(output); err != nil {
				return err
			}
			if watch {
				return watchModels(cmd.Context(), app, cmd.OutOrStdout(), output)
			}
			return runList(cmd.Context(), app, cmd.OutOrStdout(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep printing the catalog whenever it changes")
	return cmd
}

func runList(ctx context.Context, app *App, w io.Writer, format string) error {
	list, err := app.Catalog.List(ctx)
	if err != nil {
		return err
	}
	return writeModels(w, format, list)
}

// watchModels prints a fresh listing for every catalog snapshot until ctx is
// done. For a local SQLite store, writes by other processes trigger a refresh.
func watchModels(ctx context.Context, app *App, w io.Writer, format string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snapshots, err := app.Catalog.Subscribe(ctx)
	if err != nil {
		return err
	}

	if path := app.Options.DatabasePath(); path != "" {
		go func() {
			err := notify.WatchFile(ctx, path, watchDebounce, app.Log, func() {
				if err := app.Models.Refresh(ctx); err != nil && ctx.Err() == nil {
					app.Log.Warn("refresh catalog", zap.Error(err))
				}
			})
			if err != nil {
				app.Log.Warn("watch database", zap.String("path", path), zap.Error(err))
			}
		}()
	}

	first := true
	for list := range snapshots {
		if !first {
			fmt.Fprintf(w, "\n-- %s --\n", time.Now().Format(time.TimeOnly))
		}
		first = false
		if err := writeModels(w, format, list); err != nil {
			return err
		}
	}
	return nil
}

func newShowCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "show <id>",
		Short:   "Show one model",
		Args:    cobra.ExactArgs(1),
		PreRunE: middleware.RequireRole(app, models.RoleUser),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(output); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runShow(cmd.Context(), app, cmd.OutOrStdout(), id, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func runShow(ctx context.Context, app *App, w io.Writer, id int64, format string) error {
	m, err := app.Catalog.Get(ctx, id)
	if err != nil {
		return modelError(id, err)
	}
	return writeModel(w, format, m)
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Copy .glb files into the catalog",
		Long: `Import copies each .glb file into the private model directory and records
it in the catalog. Files are imported concurrently on the worker pool.`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: middleware.RequireRole(app, models.RoleAdmin),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(app, cmd.OutOrStdout(), args)
		},
	}
}

// runImport submits every path to the pool and reports the results in
// argument order.
func runImport(app *App, w io.Writer, paths []string) error {
	added := make([]*models.Model, len(paths))
	results := make([]<-chan error, len(paths))
	for i, path := range paths {
		results[i] = app.Pool.Submit(func(ctx context.Context) error {
			m, err := importFile(ctx, app.Catalog, path)
			added[i] = m
			return err
		})
	}

	failed := 0
	for i, done := range results {
		if err := <-done; err != nil {
			failed++
			fmt.Fprintf(w, "Error adding model %s: %v\n", paths[i], err)
			continue
		}
		fmt.Fprintf(w, "Model added successfully: %s (id %d)\n", added[i].Name, added[i].ID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(paths))
	}
	return nil
}

func importFile(ctx context.Context, catalog *service.CatalogService, path string) (*models.Model, error) {
	if !service.IsGLB(path) {
		return nil, service.ErrInvalidExtension
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.Import(ctx, f, path)
}

func newDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete models and their files",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: middleware.RequireRole(app, models.RoleAdmin),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			confirm := func(string) bool { return true }
			if !yes {
				in := bufio.NewReader(cmd.InOrStdin())
				confirm = func(q string) bool {
					return confirmed(prompt(in, cmd.OutOrStdout(), q+" [y/N] "))
				}
			}
			return runDelete(cmd.Context(), app, cmd.OutOrStdout(), ids, confirm)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// runDelete removes each model after confirmation. The removal itself runs
// on the worker pool.
func runDelete(ctx context.Context, app *App, w io.Writer, ids []int64, confirm func(string) bool) error {
	failed := 0
	for _, id := range ids {
		m, err := app.Catalog.Get(ctx, id)
		if err != nil {
			failed++
			fmt.Fprintf(w, "Error deleting model: %v\n", modelError(id, err))
			continue
		}
		if !confirm(fmt.Sprintf("Are you sure you want to delete '%s'?", m.Name)) {
			fmt.Fprintf(w, "Skipped %s\n", m.Name)
			continue
		}

		model := *m
		if err := <-app.Pool.Submit(func(ctx context.Context) error {
			return app.Catalog.Remove(ctx, model)
		}); err != nil {
			failed++
			fmt.Fprintf(w, "Error deleting model: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "Model deleted successfully: %s\n", m.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d deletions failed", failed, len(ids))
	}
	return nil
}

func newOpenCmd(app *App) *cobra.Command {
	var exportDir string

	cmd := &cobra.Command{
		Use:   "open <id>",
		Short: "Locate a model file for an external viewer",
		Long: `Open prints the path of the model file. With --export the file is copied
to DIR (default ~/Downloads/GLBModels) as <name>.glb.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: middleware.RequireRole(app, models.RoleUser),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runOpen(cmd.Context(), app, cmd.OutOrStdout(), id, exportDir)
		},
	}
	cmd.Flags().StringVar(&exportDir, "export", "", "copy the file to `DIR`")
	cmd.Flags().Lookup("export").NoOptDefVal = defaultExportDir()
	return cmd
}

func runOpen(ctx context.Context, app *App, w io.Writer, id int64, exportDir string) error {
	if exportDir == "" {
		m, err := app.Catalog.Locate(ctx, id)
		if err != nil {
			return modelError(id, err)
		}
		fmt.Fprintln(w, m.FilePath)
		return nil
	}

	dest, err := app.Catalog.Export(ctx, id, exportDir)
	if err != nil {
		return modelError(id, err)
	}
	fmt.Fprintf(w, "File saved to: %s\nOpen it in any viewer that supports .glb files.\n", dest)
	return nil
}

func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "GLBModels"
	}
	return filepath.Join(home, "Downloads", "GLBModels")
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report drift between the catalog and the model directory",
		Long: `Check lists catalog entries whose file is gone and files nothing in the
catalog refers to. It never changes either store.`,
		Args:    cobra.NoArgs,
		PreRunE: middleware.RequireRole(app, models.RoleAdmin),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), app, cmd.OutOrStdout())
		},
	}
}

func runCheck(ctx context.Context, app *App, w io.Writer) error {
	report, err := db.ScanDrift(ctx, app.DB, app.Catalog.Dir(), app.Log)
	if err != nil {
		return err
	}
	if report.Clean() {
		fmt.Fprintln(w, "Catalog and model directory agree")
		return nil
	}
	for _, m := range report.Missing {
		fmt.Fprintf(w, "missing file: %d %s (%s)\n", m.ID, m.Name, m.FilePath)
	}
	for _, path := range report.Orphans {
		fmt.Fprintf(w, "orphan file:  %s\n", path)
	}
	return errDrift
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid model id %q", s)
	}
	return id, nil
}

// modelError turns a lookup miss into a message naming the id.
func modelError(id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("model %d: %w", id, err)
	}
	return err
}

func confirmed(answer string) bool {
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}
