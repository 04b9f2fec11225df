package docstore

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Registry keeps each map entry as one object under maps/<name>/<key>.
// Map keys are path-escaped so arbitrary encoded identifiers stay within a
// single prefix segment.
type S3Registry struct {
	client *s3.Client
	bucket string
}

// NewS3Registry creates a registry over an S3 (or S3-compatible) bucket.
func NewS3Registry(client *s3.Client, bucket string) *S3Registry {
	return &S3Registry{client: client, bucket: bucket}
}

func (r *S3Registry) GetMap(ctx context.Context, name string) (KeyValueStore, error) {
	return &S3Store{
		client: r.client,
		bucket: r.bucket,
		prefix: "maps/" + url.PathEscape(name) + "/",
	}, nil
}

func (r *S3Registry) DeleteMap(ctx context.Context, name string) error {
	store := &S3Store{
		client: r.client,
		bucket: r.bucket,
		prefix: "maps/" + url.PathEscape(name) + "/",
	}
	return store.Clear(ctx)
}

func (r *S3Registry) Close() error {
	return nil
}

// S3Store is one named map stored as a prefix of objects.
//
// Update is best-effort only: AWS S3 does not support conditional PutObject
// by ETag, so there is a small window between the pre-write ETag check and
// the write where a concurrent writer can slip in. For strict cross-process
// read-modify-write use the Postgres or Redis engines.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + url.PathEscape(key)
}

func (s *S3Store) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") {
			return "", false, nil
		}
		return "", false, err
	}
	defer func() { _ = result.Body.Close() }() //nolint:errcheck // Deferred close

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (s *S3Store) Put(ctx context.Context, key, value string) (string, bool, error) {
	previous, existed, err := s.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if err := s.putObject(ctx, key, value); err != nil {
		return "", false, err
	}
	return previous, existed, nil
}

func (s *S3Store) putObject(ctx context.Context, key, value string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   strings.NewReader(value),
	})
	return err
}

func (s *S3Store) Remove(ctx context.Context, key string) (string, bool, error) {
	removed, existed, err := s.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if !existed {
		return "", false, nil
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return "", false, err
	}
	return removed, true, nil
}

func (s *S3Store) ContainsKey(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Store) Update(ctx context.Context, key, def string, updater func(string) string) (UpdateResult, error) {
	prior, existed, err := s.Get(ctx, key)
	if err != nil {
		return UpdateResult{}, err
	}

	if !existed {
		if err := s.putObject(ctx, key, def); err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{Value: def}, nil
	}

	next := updater(prior)
	if err := s.putObject(ctx, key, next); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Previous: &prior, Value: next}, nil
}

func (s *S3Store) GetOrPut(ctx context.Context, key string, def func() string) (string, error) {
	value, found, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if found {
		return value, nil
	}
	value = def()
	if err := s.putObject(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}

func (s *S3Store) Entries(ctx context.Context, fn func(key, value string) (bool, error)) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, object := range page.Contents {
			escaped := strings.TrimPrefix(aws.ToString(object.Key), s.prefix)
			key, err := url.PathUnescape(escaped)
			if err != nil {
				continue
			}
			value, found, err := s.Get(ctx, key)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			more, err := fn(key, value)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
	}
	return nil
}

func (s *S3Store) Size(ctx context.Context) (int64, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var count int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += int64(len(page.Contents))
	}
	return count, nil
}

func (s *S3Store) IsEmpty(ctx context.Context) (bool, error) {
	result, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(result.Contents) == 0, nil
}

func (s *S3Store) Clear(ctx context.Context) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, object := range page.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    object.Key,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Close is a no-op: the registry shares the caller's client.
func (s *S3Store) Close() error {
	return nil
}
