// Package source opens DBF inputs from the local filesystem or from S3.
package source

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
	"go.uber.org/zap"
)

const s3Scheme = "s3://"

// ObjectGetter is the part of the S3 API needed to fetch a source object.
type ObjectGetter interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// Opener resolves a source location to a DBFReader.
type Opener struct {
	// Region is used when the S3 client is created on first use.
	Region string
	// S3 overrides the client used for s3:// locations.
	S3     ObjectGetter
	Logger *zap.Logger
}

// IsS3 reports whether location names an S3 object.
func IsS3(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseS3 splits an s3://bucket/key location.
func ParseS3(location string) (bucket, key string, err error) {
	if !IsS3(location) {
		return "", "", errors.Errorf("'%s' is not an s3 location", location)
	}
	parts := strings.SplitN(strings.TrimPrefix(location, s3Scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("'%s' must have the form s3://bucket/key", location)
	}
	return parts[0], parts[1], nil
}

// Open returns a reader for location. S3 objects are fetched whole into
// memory since the decoder needs to seek.
func (o *Opener) Open(ctx context.Context, location string, opts ...godbf.Option) (*godbf.DBFReader, error) {
	if !IsS3(location) {
		return godbf.Open(location, opts...)
	}
	bucket, key, err := ParseS3(location)
	if err != nil {
		return nil, err
	}
	client, err := o.client()
	if err != nil {
		return nil, err
	}
	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &godbf.FatalIOError{Path: location, Err: errors.Wrapf(err, "fetching %v", key)}
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &godbf.FatalIOError{Path: location, Err: errors.Wrap(err, "reading object body")}
	}
	o.logger().Debug("fetched source object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)))

	opts = append([]godbf.Option{godbf.OptName(location)}, opts...)
	return godbf.NewReader(bytes.NewReader(data), opts...)
}

func (o *Opener) client() (ObjectGetter, error) {
	if o.S3 != nil {
		return o.S3, nil
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(o.Region)},
	)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	o.S3 = s3.New(sess)
	return o.S3, nil
}

func (o *Opener) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
