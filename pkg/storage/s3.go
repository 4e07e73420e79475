package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"github.com/questx-lab/luckydraw/config"
)

const defaultLinkExpiry = 24 * time.Hour

type s3Storage struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	cfg      config.S3Configs
}

func NewS3Storage(cfg config.S3Configs) (*s3Storage, error) {
	session, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.Region),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Endpoint:         aws.String(cfg.Endpoint),
		S3ForcePathStyle: aws.Bool(true),
		DisableSSL:       aws.Bool(cfg.SSLDisabled),
	})
	if err != nil {
		return nil, err
	}

	if cfg.LinkExpiry <= 0 {
		cfg.LinkExpiry = defaultLinkExpiry
	}

	client := s3.New(session)
	return &s3Storage{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		cfg:      cfg,
	}, nil
}

// objectKey builds a collision free key under the given prefix.
func objectKey(object *UploadObject) string {
	name := fmt.Sprintf("%s-%s", uuid.NewString(), object.FileName)
	if object.Prefix == "" {
		return name
	}

	return strings.TrimSuffix(object.Prefix, "/") + "/" + name
}

func (s *s3Storage) Upload(ctx context.Context, object *UploadObject) (*UploadResponse, error) {
	key := objectKey(object)
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(object.Data),
		ContentType: aws.String(object.Mime),
		Metadata:    aws.StringMap(object.Metadata),
	})
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w, bucket %s, key %s", err, s.cfg.Bucket, key)
	}

	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket:                     aws.String(s.cfg.Bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", object.FileName)),
	})

	url, err := req.Presign(s.cfg.LinkExpiry)
	if err != nil {
		return nil, fmt.Errorf("cannot presign %s: %w", key, err)
	}

	return &UploadResponse{
		Key:       key,
		Url:       url,
		ExpiresAt: time.Now().Add(s.cfg.LinkExpiry),
	}, nil
}
