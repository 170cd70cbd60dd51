package technique

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BackupSuffix marks the pre-change copy of a daemon config file.
const BackupSuffix = ".chronoshift.bak"

// backupConfig snapshots path before it is rewritten. A pre-existing backup
// is reused, never overwritten, so repeated applies keep the oldest known
// state. Returns existed=false when the original file was absent (the
// adapter then records that revert should delete, not restore).
func backupConfig(path string) (existed bool, err error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	backup := path + BackupSuffix
	if _, err := os.Stat(backup); err == nil {
		return true, nil
	}
	if err := copyFile(path, backup); err != nil {
		return true, fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return true, nil
}

// restoreConfig undoes a rewrite recorded by backupConfig. hadOriginal
// mirrors the existed flag from the apply step. The operation is
// idempotent: a second call finds neither backup nor work to do and
// succeeds.
func restoreConfig(path string, hadOriginal bool) error {
	backup := path + BackupSuffix
	if !hadOriginal {
		// We created the file; revert means removing it again.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(backup); err != nil {
		if os.IsNotExist(err) {
			// Already restored.
			return nil
		}
		return err
	}
	if err := copyFile(backup, path); err != nil {
		return fmt.Errorf("failed to restore %s: %w", path, err)
	}
	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove backup of %s: %w", path, err)
	}
	return nil
}

// writeConfigAtomic replaces path via tmp file + fsync + rename so a crash
// mid-write never leaves a truncated daemon config.
func writeConfigAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
