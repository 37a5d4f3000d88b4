package adapter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

var (
	_ interfaces.ObjectStore = (*CloudStorage)(nil)
	_ interfaces.ObjectStore = (*FileStorage)(nil)
)

// CloudStorage stores drafts and transcripts in a Cloud Storage bucket
type CloudStorage struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

type CloudStorageOption func(*CloudStorage)

// WithObjectPrefix is prepended to every key
func WithObjectPrefix(prefix string) CloudStorageOption {
	return func(s *CloudStorage) {
		s.prefix = prefix
	}
}

func NewCloudStorage(ctx context.Context, bucketName string, opts ...CloudStorageOption) (*CloudStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	s := &CloudStorage{
		bucketName: bucketName,
		client:     client,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *CloudStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(s.prefix + key)
	w := obj.NewWriter(ctx)
	if filepath.Ext(key) == ".html" {
		w.ContentType = "text/html; charset=utf-8"
	}
	return w, nil
}

func (s *CloudStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(s.prefix + key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage",
			goerr.V("bucket", s.bucketName),
			goerr.V("key", s.prefix+key),
		)
	}
	return reader, nil
}

func (s *CloudStorage) Close() error {
	return s.client.Close()
}

// FileStorage stores objects under a local directory, keys map to relative paths
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) path(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", goerr.New("object key escapes storage root", goerr.V("key", key))
	}
	return p, nil
}

func (s *FileStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create object directory", goerr.V("path", p))
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create object file", goerr.V("path", p))
	}
	return f, nil
}

func (s *FileStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open object file", goerr.V("path", p))
	}
	return f, nil
}
