// Package s3 provides anonymous read-only access to the NEXRAD open-data
// bucket: prefix listing and streamed object reads. No retry, backoff, or
// rate limiting beyond the SDK's defaults.
package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// api is the subset of the SDK client the adapter uses, so tests can fake it.
type api interface {
	ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, opts ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Client talks to an S3-compatible backend with unsigned requests. The NOAA
// buckets allow anonymous reads, so no credentials are ever loaded.
type Client struct {
	api    api
	logger *slog.Logger
}

// NewClient builds an anonymous S3 client for the given region.
func NewClient(ctx context.Context, region string, logger *slog.Logger) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	c := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.Credentials = aws.AnonymousCredentials{}
	})
	return &Client{api: c, logger: logger}, nil
}

// List returns every key in bucket under prefix, following pagination.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	in := &awss3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	for {
		out, err := c.api.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("list objects %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		in.ContinuationToken = out.NextContinuationToken
	}
	c.logger.Debug("listed prefix", "bucket", bucket, "prefix", prefix, "keys", len(keys))
	return keys, nil
}

// Open streams one object's bytes. The caller closes the reader.
func (c *Client) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// SplitKey splits a bucket-qualified key ("bucket/a/b/c") into bucket and key.
func SplitKey(qualified string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(qualified, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("key %q is not bucket-qualified", qualified)
	}
	return bucket, key, nil
}
