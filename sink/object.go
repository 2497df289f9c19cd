package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/jpmckearin/asset-tag/config"
	"github.com/jpmckearin/asset-tag/label"
)

// PutObjectAPI is the part of the S3 client used by Object.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Object uploads the PDF to <Prefix>/<asset-id>.pdf in Bucket.
type Object struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
	Logger *zap.Logger
}

// Key returns the object key for id.
func (o Object) Key(id string) string {
	return path.Join(strings.Trim(o.Prefix, "/"), id+".pdf")
}

// Deliver implements Sink.
func (o Object) Deliver(ctx context.Context, l *label.Label) error {
	if o.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	data, err := l.Bytes()
	if err != nil {
		return err
	}
	key := o.Key(l.AssetID())
	_, err = o.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if o.Logger != nil {
		o.Logger.Debug("label uploaded",
			zap.String("bucket", o.Bucket),
			zap.String("key", key),
			zap.Int("size", len(data)),
		)
	}
	return nil
}

// NewS3Client builds an S3 client for any S3-compatible endpoint.
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}
