// Package storage keeps uploaded images and archived quote documents either
// in a MinIO bucket or in a local directory. Only the uploads directory is
// served publicly; archived documents are read back through Get.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"irrigation-backend/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("object not found")

// Store persists an object and returns the URL it can be fetched from.
// Get returns ErrNotFound for a missing object.
type Store interface {
	Put(ctx context.Context, objectName, contentType string, r io.Reader, size int64) (string, error)
	Get(ctx context.Context, objectName string) (io.ReadCloser, error)
}

// New picks MinIO when an endpoint is configured and the local directory
// otherwise. A MinIO client that cannot be built also falls back to disk.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) Store {
	if cfg.MinIO.Endpoint != "" {
		store, err := NewMinIOStore(ctx, cfg.MinIO)
		if err == nil {
			log.Info("object storage ready", zap.String("endpoint", cfg.MinIO.Endpoint), zap.String("bucket", cfg.MinIO.Bucket))
			return store
		}
		log.Warn("minio unavailable, using local uploads directory", zap.Error(err))
	}
	return NewLocalStore(cfg.UploadDir, strings.TrimRight(cfg.PublicURL, "/")+"/uploads")
}

// NewArchive returns the private store for generated quote documents. With
// MinIO the objects share the bucket under the archive/ prefix; locally they
// live in ARCHIVE_DIR, which is never served statically.
func NewArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) Store {
	if cfg.MinIO.Endpoint != "" {
		store, err := NewMinIOStore(ctx, cfg.MinIO)
		if err == nil {
			return &prefixStore{Store: store, prefix: "archive/"}
		}
		log.Warn("minio unavailable, archiving documents locally", zap.Error(err))
	}
	return NewLocalStore(cfg.ArchiveDir, "")
}

type prefixStore struct {
	Store
	prefix string
}

func (p *prefixStore) Put(ctx context.Context, objectName, contentType string, r io.Reader, size int64) (string, error) {
	return p.Store.Put(ctx, p.prefix+objectName, contentType, r, size)
}

func (p *prefixStore) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	return p.Store.Get(ctx, p.prefix+objectName)
}

// ObjectName builds a collision-free key: prefix/yyyy/mm/dd/<id><ext>.
func ObjectName(prefix, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return path.Join(prefix, time.Now().UTC().Format("2006/01/02"), uuid.New().String()[:8]+ext)
}

type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinIOStore) Put(ctx context.Context, objectName, contentType string, r io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.client.EndpointURL().String(), "/"), s.bucket, objectName), nil
}

func (s *MinIOStore) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", objectName, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", objectName, err)
	}
	return obj, nil
}

type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Put(_ context.Context, objectName, _ string, r io.Reader, _ int64) (string, error) {
	clean := path.Clean("/" + objectName)[1:]
	if clean == "" {
		return "", fmt.Errorf("empty object name")
	}

	target := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", clean, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", clean, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", clean, err)
	}
	return s.baseURL + "/" + clean, nil
}

func (s *LocalStore) Get(_ context.Context, objectName string) (io.ReadCloser, error) {
	clean := path.Clean("/" + objectName)[1:]
	if clean == "" {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", clean, err)
	}
	return f, nil
}
