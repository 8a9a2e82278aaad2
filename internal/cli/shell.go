package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/atinyakov/glbkeeper/internal/middleware"
	"github.com/atinyakov/glbkeeper/internal/models"
	"github.com/spf13/cobra"
)

const shellHelp = `Available commands:
  login <username> <password>   log in
  logout                        log out
  whoami                        show the logged in user
  list [table|json|yaml]        list the catalog
  show <id>                     show one model
  open <id> [dir]               print the file path, or export it to dir
  import <file>...              import .glb files in the background (admin)
  delete <id>...                delete models (admin)
  check                         report catalog drift (admin)
  help                          show this help
  exit                          leave the shell`

// lockedWriter serialises output from the shell and background imports.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func newShellCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return repl(cmd.Context(), app, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// repl runs the interactive shell loop until exit or end of input.
// Imports run on the worker pool and report when they finish; the loop waits
// for them before returning.
func repl(ctx context.Context, app *App, in io.Reader, out io.Writer) error {
	w := &lockedWriter{w: out}
	scanner := bufio.NewScanner(in)

	var pending sync.WaitGroup
	defer pending.Wait()

	if ident, err := app.Auth.Current(); err == nil {
		fmt.Fprintf(w, "Logged in as %s (%s)\n", ident.Username, ident.Role)
	}

	confirm := func(q string) bool {
		fmt.Fprint(w, q+" [y/N] ")
		if !scanner.Scan() {
			return false
		}
		return confirmed(strings.TrimSpace(scanner.Text()))
	}

	for {
		fmt.Fprint(w, "glbkeeper> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}

		var err error
		switch args[0] {
		case "help":
			fmt.Fprintln(w, shellHelp)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye")
			return nil
		case "login":
			if len(args) != 3 {
				fmt.Fprintln(w, "Usage: login <username> <password>")
				continue
			}
			var u *models.User
			if u, err = app.login(args[1], args[2]); err == nil {
				fmt.Fprintf(w, "Welcome, %s! (%s)\n", u.Username, u.Role)
			}
		case "logout":
			if err = app.Auth.Logout(); err == nil {
				fmt.Fprintln(w, "Logged out")
			}
		case "whoami":
			ident, cerr := app.Auth.Current()
			if err = cerr; err == nil {
				fmt.Fprintf(w, "%s (%s, id %d)\n", ident.Username, ident.Role, ident.UserID)
			}
		case "list":
			format := formatTable
			if len(args) > 1 {
				format = args[1]
			}
			err = gated(ctx, app, models.RoleUser, func() error {
				if err := validFormat(format); err != nil {
					return err
				}
				return runList(ctx, app, w, format)
			})
		case "show":
			if len(args) != 2 {
				fmt.Fprintln(w, "Usage: show <id>")
				continue
			}
			err = gated(ctx, app, models.RoleUser, func() error {
				id, err := parseID(args[1])
				if err != nil {
					return err
				}
				return runShow(ctx, app, w, id, formatTable)
			})
		case "open":
			if len(args) < 2 || len(args) > 3 {
				fmt.Fprintln(w, "Usage: open <id> [dir]")
				continue
			}
			err = gated(ctx, app, models.RoleUser, func() error {
				id, err := parseID(args[1])
				if err != nil {
					return err
				}
				dir := ""
				if len(args) == 3 {
					dir = args[2]
				}
				return runOpen(ctx, app, w, id, dir)
			})
		case "import":
			if len(args) < 2 {
				fmt.Fprintln(w, "Usage: import <file>...")
				continue
			}
			err = gated(ctx, app, models.RoleAdmin, func() error {
				paths := args[1:]
				fmt.Fprintf(w, "Importing %d file(s) in the background\n", len(paths))
				pending.Add(1)
				go func() {
					defer pending.Done()
					_ = runImport(app, w, paths)
				}()
				return nil
			})
		case "delete":
			if len(args) < 2 {
				fmt.Fprintln(w, "Usage: delete <id>...")
				continue
			}
			err = gated(ctx, app, models.RoleAdmin, func() error {
				ids := make([]int64, 0, len(args)-1)
				for _, arg := range args[1:] {
					id, err := parseID(arg)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
				return runDelete(ctx, app, w, ids, confirm)
			})
		case "check":
			err = gated(ctx, app, models.RoleAdmin, func() error {
				return runCheck(ctx, app, w)
			})
		default:
			fmt.Fprintln(w, "Unknown command. Type 'help' for a list of commands.")
			continue
		}

		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	}
}

// gated runs fn only if the session holds role.
func gated(ctx context.Context, app *App, role models.Role, fn func() error) error {
	if _, err := middleware.Authorize(ctx, app, role); err != nil {
		return err
	}
	return fn()
}
