// Package backup stores exported snapshots outside the daemon's own state.
package backup

import (
	"antislack/internal/structures"
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

var ErrBackupNotFound = errors.New("backup not found")

type SinkInterface interface {
	// Put stores data under name and returns where it ended up.
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
}

// NewSink builds the sink selected by backup.type; local is the default.
func NewSink(conf *structures.Config) (SinkInterface, error) {
	switch conf.Backup.Type {
	case TypeS3:
		s3 := conf.Backup.S3
		return NewS3Sink(context.Background(), s3.Endpoint, s3.AccessKey, s3.SecretKey, s3.Bucket, s3.UseSSL)
	case TypeLocal, "":
		dir := conf.Backup.LocalDir
		if dir == "" {
			dir = filepath.Join(filepath.Dir(conf.Storage.LocalPath), "backups")
		}
		return NewLocalSink(dir), nil
	default:
		return nil, fmt.Errorf("unknown backup type %q", conf.Backup.Type)
	}
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: invalid backup name %q", ErrBackupNotFound, name)
	}
	return nil
}
