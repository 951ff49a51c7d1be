// Package storage fetches raw inbound messages from the S3 bucket where the
// receipt rule stores them.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the interface for the S3 operations the store uses.
// Used for testing with mock implementations.
type S3API interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store reads raw messages from a single bucket under a fixed key prefix.
type Store struct {
	bucket    string
	keyPrefix string
	client    S3API
}

// New creates a Store over the given bucket and key prefix.
func New(client S3API, bucket, keyPrefix string) *Store {
	return &Store{
		bucket:    bucket,
		keyPrefix: keyPrefix,
		client:    client,
	}
}

// Fetch copies the stored message onto itself to reset its ACL and storage
// class, then reads it back. The key is the message ID under the configured
// prefix.
func (s *Store) Fetch(ctx context.Context, messageID string) ([]byte, error) {
	key := s.keyPrefix + messageID
	slog.Info("fetching email", "bucket", s.bucket, "key", key)

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:       aws.String(s.bucket),
		CopySource:   aws.String(s.bucket + "/" + key),
		Key:          aws.String(key),
		ACL:          types.ObjectCannedACLPrivate,
		ContentType:  aws.String("text/plain"),
		StorageClass: types.StorageClassStandard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy object s3://%s/%s: %w", s.bucket, key, err)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	return raw, nil
}
