package osutil

import (
	"os"
	"path/filepath"
)

const (
	// PrivateFile is the mode of files holding credentials.
	PrivateFile os.FileMode = 0600
	// StateFile is the mode of plain state files.
	StateFile os.FileMode = 0644
)

// WriteFileAtomic writes to a temporary file next to `path` and renames it
// over `path`, readers never observe a partial file. The file ends up with
// exactly `perm`, missing parent directories are created with 0755.
func WriteFileAtomic(path string, contents []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Chmod(perm)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
