// Package s3uploader uploads export files to an S3 bucket.
package s3uploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader struct {
	client putter
}

// New builds an uploader with static credentials. It returns nil when the
// AWS configuration cannot be loaded.
func New(accessKey, secretKey, region string) *Uploader {
	creds := credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")

	cfg, err := config.LoadDefaultConfig(
		context.Background(),
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	)
	if err != nil {
		return nil
	}

	return &Uploader{client: s3.NewFromConfig(cfg)}
}

func (u *Uploader) Upload(ctx context.Context, bucketName, key string, body io.Reader) error {
	input := s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
		Body:   body,
	}

	if ct := contentType(key); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := u.client.PutObject(ctx, &input); err != nil {
		return fmt.Errorf("upload %s to %s: %w", key, bucketName, err)
	}

	return nil
}

// UploadFile stores the file at path under prefix/<base name> and returns the
// object key.
func (u *Uploader) UploadFile(ctx context.Context, bucketName, prefix, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}

	defer f.Close()

	key := path.Join(prefix, filepath.Base(filePath))

	return key, u.Upload(ctx, bucketName, key, f)
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/x-ndjson"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return ""
	}
}
