package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/davnotes/internal/session"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Browse the base folder interactively",
		Long: `Start a line-oriented shell over one session. The session reconnects with
the saved credentials when needed; type "help" for the commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)

			s, err := cc.openSession(ctx)
			if err != nil {
				return err
			}

			if !s.EnsureConnected(ctx) {
				cc.Statusf("Not connected; use 'reconnect' after 'davnotes connect'.\n")
			}

			sh := &shell{s: s, out: cmd.OutOrStdout(), maxSize: cc.Cfg.MaxFileSize}

			return sh.run(ctx, cmd.InOrStdin())
		},
	}
}

const shellHelp = `Commands:
  ls [path]              list a folder (default: current folder)
  cd <path>              change the current folder
  pwd                    print the current folder
  cat <path>             print a file
  put <local> [remote]   upload a local file
  reconnect              connect again with the saved credentials
  reset                  drop the connection
  help                   show this help
  exit, quit             leave the shell
`

type shell struct {
	s       *session.Session
	out     io.Writer
	maxSize int64
}

// run reads commands from in until EOF, exit, or ctx cancellation. Command
// errors are printed and do not end the shell.
func (sh *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintf(sh.out, "%s> ", sh.cwd())

		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			return scanner.Err()
		}

		if ctx.Err() != nil {
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		done, err := sh.exec(ctx, fields[0], fields[1:])
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}

		if done {
			return nil
		}
	}
}

func (sh *shell) exec(ctx context.Context, name string, args []string) (bool, error) {
	switch name {
	case "exit", "quit":
		return true, nil
	case "help":
		fmt.Fprint(sh.out, shellHelp)
	case "pwd":
		fmt.Fprintln(sh.out, sh.cwd())
	case "ls":
		return false, sh.ls(ctx, args)
	case "cd":
		return false, sh.cd(ctx, args)
	case "cat":
		return false, sh.cat(ctx, args)
	case "put":
		return false, sh.put(ctx, args)
	case "reconnect":
		if !sh.s.Reconnect(ctx) {
			return false, errNotConnected
		}

		fmt.Fprintf(sh.out, "connected to %s\n", sh.s.ServerURL())
	case "reset":
		sh.s.Reset()
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}

	return false, nil
}

// cwd is the current folder relative to the base folder.
func (sh *shell) cwd() string {
	return sh.s.Sandbox().Rel(sh.s.CurrentPath())
}

// resolve interprets p against the current folder. Absolute paths start at
// the base folder.
func (sh *shell) resolve(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}

	return path.Join(sh.cwd(), p)
}

func (sh *shell) ls(ctx context.Context, args []string) error {
	if !sh.s.EnsureConnected(ctx) {
		return errNotConnected
	}

	if len(args) == 0 {
		printEntriesTable(sh.out, sh.s.Listing().Entries)

		return nil
	}

	listing, err := sh.s.ListDirectory(ctx, sh.resolve(args[0]))
	if err != nil {
		return err
	}

	printEntriesTable(sh.out, listing.Entries)

	return nil
}

func (sh *shell) cd(ctx context.Context, args []string) error {
	target := "/"
	if len(args) > 0 {
		target = sh.resolve(args[0])
	}

	_, err := sh.listing(ctx, target)

	return err
}

func (sh *shell) listing(ctx context.Context, p string) (session.Listing, error) {
	if !sh.s.EnsureConnected(ctx) {
		return session.Listing{}, errNotConnected
	}

	return sh.s.GetDirectoryContents(ctx, p)
}

func (sh *shell) cat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cat <path>")
	}

	if !sh.s.EnsureConnected(ctx) {
		return errNotConnected
	}

	data, err := sh.s.ReadFile(ctx, sh.resolve(args[0]))
	if err != nil {
		return err
	}

	if _, err := sh.out.Write(data); err != nil {
		return err
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(sh.out)
	}

	return nil
}

func (sh *shell) put(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: put <local> [remote]")
	}

	remote := sh.resolve(filepath.Base(args[0]))
	if len(args) == 2 {
		remote = sh.resolve(args[1])
	}

	if !sh.s.EnsureConnected(ctx) {
		return errNotConnected
	}

	return uploadFile(ctx, sh.s, args[0], remote, sh.maxSize)
}
