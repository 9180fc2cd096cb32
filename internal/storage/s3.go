// Package storage wraps S3 behind the small list/get/put surface the
// extract and transform jobs need.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// ObjectStore is the storage surface used by both jobs.
type ObjectStore interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, body []byte) error
}

type AWSOptions struct {
	Region   string
	Endpoint string // optional, e.g. a localstack URL
}

// NewSession builds an AWS session and checks that credentials resolve.
func NewSession(ctx context.Context, opts AWSOptions) (*session.Session, error) {
	cfg := aws.Config{Region: aws.String(opts.Region)}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClient, err)
	}

	if _, err := sess.Config.Credentials.GetWithContext(ctx); err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == "NoCredentialProviders" {
			return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrClient, err)
	}
	return sess, nil
}

type S3Store struct {
	client s3iface.S3API
}

func NewS3Store(client s3iface.S3API) *S3Store {
	return &S3Store{client: client}
}

// NewS3StoreFromOptions is the constructor used by the jobs.
func NewS3StoreFromOptions(ctx context.Context, opts AWSOptions) (*S3Store, error) {
	sess, err := NewSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewS3Store(s3.New(sess)), nil
}

// List returns every key under prefix, across all pages, in listing order.
func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	err := s.client.ListObjectsV2PagesWithContext(ctx,
		&s3.ListObjectsV2Input{Bucket: aws.String(bucket), Prefix: aws.String(prefix)},
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				keys = append(keys, aws.StringValue(obj.Key))
			}
			return !lastPage
		})
	if err != nil {
		return nil, newError("list", bucket, prefix, err)
	}
	return keys, nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, newError("get", bucket, key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, newError("get", bucket, key, err)
	}
	return b, nil
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return newError("put", bucket, key, err)
	}
	return nil
}

// Exists reports whether key is present, using a prefix listing rather
// than HEAD so only list permission is needed.
func Exists(ctx context.Context, store ObjectStore, bucket, key string) (bool, error) {
	keys, err := store.List(ctx, bucket, key)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}
