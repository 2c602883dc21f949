package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Stats summarizes what a store holds.
type Stats struct {
	Users     int64 `json:"users"`
	DiskBytes int64 `json:"disk_bytes"`
}

// StatsProvider is implemented by stores that can report Stats.
type StatsProvider interface {
	Stats(ctx context.Context) (Stats, error)
}

// Stats counts user documents and their total size. Lock and temp files are ignored.
func (s *FileStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != s.dir {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st.Users++
		st.DiskBytes += info.Size()
		return nil
	})
	return st, err
}

// Stats counts distinct users and sums the database file sizes, WAL included.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	users, err := s.CountUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Users: users}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(s.path + suffix)
		if err != nil {
			continue
		}
		st.DiskBytes += info.Size()
	}
	return st, nil
}
