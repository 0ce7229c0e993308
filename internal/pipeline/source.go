package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/nguy/AR-Spillover/internal/domain"
)

// ObjectStore streams remote objects by bucket and key.
type ObjectStore interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// ArchiveDecoder decodes Level-II archives into single-moment volumes.
type ArchiveDecoder interface {
	DecodeFile(path, field string) (*domain.Volume, error)
	Decode(src io.Reader, field string) (*domain.Volume, error)
}

// KeySplitter splits a bucket-qualified key into bucket and object key.
type KeySplitter func(qualified string) (bucket, key string, err error)

// LocalSource opens keys as local filesystem paths.
type LocalSource struct {
	Decoder ArchiveDecoder
}

func (s LocalSource) OpenVolume(_ context.Context, key, field string) (*domain.Volume, error) {
	return s.Decoder.DecodeFile(key, field)
}

// RemoteSource streams bucket-qualified keys from an object store into the
// decoder. The stream is fully spooled and released by the decoder before
// the next key is opened.
type RemoteSource struct {
	Store   ObjectStore
	Decoder ArchiveDecoder
	Split   KeySplitter
}

func (s RemoteSource) OpenVolume(ctx context.Context, qualified, field string) (*domain.Volume, error) {
	bucket, key, err := s.Split(qualified)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRead, err)
	}

	body, err := s.Store.Open(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRead, err)
	}
	defer body.Close()

	return s.Decoder.Decode(body, field)
}
