package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a WAL-mode database.
var sqliteSidecars = []string{"-wal", "-shm"}

// DatabaseBytes returns the on-disk size of the database at dbPath including
// its WAL sidecars. In-memory and unset databases report 0.
func DatabaseBytes(dbPath string) int64 {
	if dbPath == "" || dbPath == ":memory:" {
		return 0
	}
	paths := []string{dbPath}
	for _, suffix := range sqliteSidecars {
		paths = append(paths, dbPath+suffix)
	}
	n, _ := DiskUsageBytes(paths...)
	return n
}

// DiskUsageBytes sums the sizes of paths. Directories count every regular file
// below them; missing and empty paths count as 0.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		n, err := pathBytes(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func pathBytes(p string) (int64, error) {
	if p == "" {
		return 0, nil
	}
	var n int64
	err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		n += info.Size()
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return n, err
}
