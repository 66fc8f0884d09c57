package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/davnotes/internal/dav"
	"github.com/tonimelisma/davnotes/internal/session"
)

var errTooLarge = errors.New("file exceeds transfers.max_file_size")

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List files and folders",
		Long: `List a folder beneath the base folder. Paths are always taken relative to
the base folder; "..", absolute paths and paths outside it are re-rooted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLs,
	}
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  runCat,
	}
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path> [remote-path]",
		Short: "Upload a file",
		Long: `Upload a local file, replacing the remote copy. The remote path defaults to
the local file name at the top of the base folder.

With --watch the file is uploaded again every time it changes, until
interrupted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runPut,
	}

	cmd.Flags().BoolP("watch", "w", false, "re-upload whenever the local file changes")

	return cmd
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <remote-dir> <local-dir>",
		Short: "Download every file of a remote folder",
		Long: `Download the files of one remote folder into a local directory, running up
to transfers.parallel_downloads downloads at once. Sub-folders are not
descended into. Files larger than transfers.max_file_size are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: runPull,
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	s, err := cc.connectedSession(ctx)
	if err != nil {
		return err
	}

	target := ""
	if len(args) > 0 {
		target = args[0]
	}

	listing, err := s.GetDirectoryContents(ctx, target)
	if err != nil {
		return fmt.Errorf("listing %s: %w", s.Sandbox().Rel(target), err)
	}

	return printEntries(cmd.OutOrStdout(), listing.Entries, cc.Flags.JSON)
}

func runCat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	s, err := cc.connectedSession(ctx)
	if err != nil {
		return err
	}

	data, err := s.ReadFile(ctx, args[0])
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)

	return err
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}

	local := args[0]

	remote := "/" + filepath.Base(local)
	if len(args) > 1 {
		remote = args[1]
	}

	s, err := cc.connectedSession(ctx)
	if err != nil {
		return err
	}

	if watch {
		release, err := acquireWatchLock(watchLockPath(s.ServerURL(), s.Sandbox().Normalize(remote)))
		if err != nil {
			return err
		}
		defer release()
	}

	if err := uploadFile(ctx, s, local, remote, cc.Cfg.MaxFileSize); err != nil {
		return err
	}

	cc.Statusf("Uploaded %s -> %s\n", local, s.Sandbox().Normalize(remote))

	if !watch {
		return nil
	}

	cc.Statusf("Watching %s for changes (Ctrl-C to stop)\n", local)

	return watchFile(ctx, local, cc.Logger, func(ctx context.Context) {
		if err := uploadFile(ctx, s, local, remote, cc.Cfg.MaxFileSize); err != nil {
			cc.Logger.Warn("re-upload failed",
				slog.String("local", local),
				slog.String("error", err.Error()),
			)

			return
		}

		cc.Statusf("Uploaded %s -> %s\n", local, s.Sandbox().Normalize(remote))
	})
}

// uploadFile writes the local file to remote. maxSize 0 means unlimited.
func uploadFile(ctx context.Context, s *session.Session, local, remote string, maxSize int64) error {
	info, err := os.Stat(local)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory", local)
	}

	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("%s (%s): %w", local, formatSize(info.Size()), errTooLarge)
	}

	data, err := os.ReadFile(local)
	if err != nil {
		return err
	}

	return s.WriteFile(ctx, remote, data)
}

// pullResult counts what a pull did.
type pullResult struct {
	Downloaded int
	Skipped    int
	Bytes      int64
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	s, err := cc.connectedSession(ctx)
	if err != nil {
		return err
	}

	res, err := pullDir(ctx, s, args[0], args[1], cc.Cfg.Transfers.ParallelDownloads, cc.Cfg.MaxFileSize, cc.Logger)
	if err != nil {
		return err
	}

	cc.Statusf("Downloaded %d file(s), %s; skipped %d\n", res.Downloaded, formatSize(res.Bytes), res.Skipped)

	return nil
}

// pullDir downloads every file directly under remoteDir into localDir with at
// most parallel downloads in flight. The first failure cancels the rest.
func pullDir(
	ctx context.Context, s *session.Session, remoteDir, localDir string,
	parallel int, maxSize int64, logger *slog.Logger,
) (pullResult, error) {
	listing, err := s.ListDirectory(ctx, remoteDir)
	if err != nil {
		return pullResult{}, fmt.Errorf("listing %s: %w", remoteDir, err)
	}

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return pullResult{}, err
	}

	var (
		res   pullResult
		files []dav.Entry
	)

	for _, e := range listing.Files() {
		if maxSize > 0 && e.Size > maxSize {
			logger.Info("skipping large file",
				slog.String("path", e.Path),
				slog.Int64("size", e.Size),
			)

			res.Skipped++

			continue
		}

		files = append(files, e)
	}

	sizes := make([]int64, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))

	for i := range files {
		g.Go(func() error {
			data, err := s.ReadFile(gctx, files[i].Path)
			if err != nil {
				return err
			}

			dst := filepath.Join(localDir, files[i].Name)
			if err := writeLocalFile(dst, data); err != nil {
				return fmt.Errorf("writing %s: %w", dst, err)
			}

			logger.Debug("downloaded",
				slog.String("remote", files[i].Path),
				slog.String("local", dst),
			)

			sizes[i] = int64(len(data))

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Downloaded = len(files)
	for _, n := range sizes {
		res.Bytes += n
	}

	return res, nil
}

// writeLocalFile writes data to a temp file beside dst and renames it into
// place, so an interrupted pull never leaves a truncated file.
func writeLocalFile(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".davnotes-*.partial")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}
