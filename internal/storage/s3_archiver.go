package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("export archive not configured")

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores export files in a private bucket under
// exports/<userID>/<date>-<uuid>.<ext>.
type S3Archiver struct {
	client objectPutter
	bucket string
	now    func() time.Time
	newID  func() string
}

// NewS3Archiver loads the default AWS configuration chain. A blank bucket
// yields a nil archiver, which reports ErrNotConfigured.
func NewS3Archiver(ctx context.Context, bucket string) (*S3Archiver, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	})
	return newS3Archiver(client, bucket), nil
}

func newS3Archiver(client objectPutter, bucket string) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (archiver *S3Archiver) Configured() bool {
	return archiver != nil && archiver.client != nil && archiver.bucket != ""
}

// Archive uploads data and returns the object key.
func (archiver *S3Archiver) Archive(ctx context.Context, userID uint, extension string, contentType string, data []byte) (string, error) {
	if !archiver.Configured() {
		return "", ErrNotConfigured
	}

	extension = strings.TrimPrefix(strings.TrimSpace(extension), ".")
	key := fmt.Sprintf("exports/%d/%s-%s.%s", userID, archiver.now().UTC().Format("2006-01-02"), archiver.newID(), extension)

	_, err := archiver.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(archiver.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
