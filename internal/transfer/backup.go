package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/result"
)

// Layout of the timestamp suffix of backup directories.
const backupTimeLayout = "20060102150405"

// Local backup directory of srv.
//
// A missing path fails a real run. A simulated run notes it and goes on with
// a placeholder so the remaining steps are still described.
func localRoot(srv config.Server, steps *result.Steps) (string, error) {
	if srv.Backup.Local != "" {
		return srv.Backup.Local, nil
	}
	if err := steps.Check(fmt.Errorf("%w for server %s", ErrNoLocalBackup, srv.Name)); err != nil {
		return "", err
	}
	return dryRunMountPoint, nil
}

// Copies the install directory into a new timestamped directory under the
// local backup path and returns that directory.
//
// The destination is claimed with a single mkdir, so two backups racing for
// the same timestamp cannot both succeed. A copy that fails partway is
// removed; a destination created by someone else is left alone.
func (o *Orchestrator) Backup(ctx context.Context, srv config.Server, steps *result.Steps) (string, error) {
	local, err := localRoot(srv, steps)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(local, srv.Name+"_"+o.now().Format(backupTimeLayout))

	if steps.DryRun() {
		if _, err := os.Lstat(dest); err == nil {
			steps.Check(fmt.Errorf("%w: %s", ErrBackupExists, dest))
		}
		steps.Simulated("would copy %s to %s", srv.Path, dest)
		return dest, nil
	}

	info, err := os.Stat(srv.Path)
	if err != nil {
		return "", fmt.Errorf("%w: backup of %s failed: %w", ErrTransfer, srv.Path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: backup of %s failed: not a directory", ErrTransfer, srv.Path)
	}

	if err := os.MkdirAll(local, 0755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransfer, err)
	}
	if err := os.Mkdir(dest, info.Mode().Perm()); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrBackupExists, dest)
		}
		return "", fmt.Errorf("%w: %w", ErrTransfer, err)
	}

	if err := copyInto(ctx, srv.Path, dest); err != nil {
		os.RemoveAll(dest)
		return "", fmt.Errorf("%w: backup of %s failed: %w", ErrTransfer, srv.Path, err)
	}

	steps.Add("backed up %s to %s", srv.Path, dest)
	return dest, nil
}

// Recursively copies the contents of src into the existing directory dest.
// Regular files, directories and symbolic links are copied with their
// permission bits.
func copyInto(ctx context.Context, src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return copyEntry(path, filepath.Join(dest, rel), d)
	})
}

// Copies one directory entry.
func copyEntry(path, target string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	switch {
	case info.IsDir():
		return os.Mkdir(target, info.Mode().Perm())
	case info.Mode()&fs.ModeSymlink != 0:
		link, err := os.Readlink(path)
		if err != nil {
			return err
		}
		return os.Symlink(link, target)
	case info.Mode().IsRegular():
		return copyFile(path, target, info.Mode().Perm())
	default:
		// Sockets, pipes and devices have no meaningful copy.
		return nil
	}
}

func copyFile(src, dest string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
