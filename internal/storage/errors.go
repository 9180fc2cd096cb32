package storage

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
)

var (
	// ErrNoCredentials means no credential provider in the chain produced
	// usable credentials.
	ErrNoCredentials = errors.New("AWS credentials not found")
	// ErrClient covers every other failure building a client.
	ErrClient = errors.New("error creating S3 client")

	ErrStorage      = errors.New("object storage error")
	ErrNotFound     = errors.New("object not found")
	ErrAccessDenied = errors.New("access denied")
)

// Error describes a failed object storage call. It matches ErrStorage,
// its Kind (when set), and the underlying SDK error.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *Error) Unwrap() []error {
	errs := []error{ErrStorage}
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(op, bucket, key string, err error) error {
	return &Error{Op: op, Bucket: bucket, Key: key, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return nil
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
		return ErrNotFound
	case "AccessDenied", "Forbidden":
		return ErrAccessDenied
	}
	return nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorage)
}
