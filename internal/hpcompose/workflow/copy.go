package workflow

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ehsaniara/hpcompose/pkg/errors"
)

// copyPath copies a file, a symlink or a directory tree.
func copyPath(src, dest string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return errors.NewFilesystemError(src, "stat", err)
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return errors.NewFilesystemError(src, "readlink", err)
		}
		if err := os.Symlink(target, dest); err != nil {
			return errors.NewFilesystemError(dest, "symlink", err)
		}
		return nil
	case info.IsDir():
		return copyDir(src, dest, info.Mode().Perm())
	default:
		return copyFile(src, dest)
	}
}

func copyDir(src, dest string, perm os.FileMode) error {
	if err := os.MkdirAll(dest, perm); err != nil {
		return errors.NewFilesystemError(dest, "mkdir", err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.NewFilesystemError(src, "readdir", err)
	}
	for _, e := range entries {
		if err := copyPath(filepath.Join(src, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies a regular file keeping its permission bits.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.NewFilesystemError(src, "open", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.NewFilesystemError(src, "stat", err)
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.NewFilesystemError(dest, "create", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.NewFilesystemError(dest, "copy", err)
	}
	if err := out.Close(); err != nil {
		return errors.NewFilesystemError(dest, "close", err)
	}
	return nil
}
