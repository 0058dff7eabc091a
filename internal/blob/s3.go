package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const defaultS3Region = "us-east-1"

// S3Store — Store поверх S3-совместимого хранилища (AWS S3, Cloudflare R2, MinIO).
type S3Store struct {
	client   s3iface.S3API
	uploader *s3manager.Uploader
	bucket   string
}

// NewS3Store создаёт клиент S3 для бакета из конфигурации.
func NewS3Store(cfg Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket is required for s3 blob backend")
	}
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	awsConfig := &aws.Config{Region: aws.String(region)}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 session: %w", err)
	}
	client := s3.New(sess)
	return &S3Store{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		bucket:   cfg.Bucket,
	}, nil
}

// Put загружает объект. Локатор — ключ объекта в бакете.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (Locator, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}
	return Locator(clean), nil
}

func (s *S3Store) Open(ctx context.Context, loc Locator) (io.ReadCloser, error) {
	clean, err := cleanKey(string(loc))
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get from s3: %w", err)
	}
	return out.Body, nil
}

// Delete удаляет объект. S3 не сообщает об отсутствии ключа при удалении,
// поэтому сначала выполняется HEAD, чтобы вернуть ErrNotFound.
func (s *S3Store) Delete(ctx context.Context, loc Locator) error {
	clean, err := cleanKey(string(loc))
	if err != nil {
		return err
	}
	_, err = s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		if isS3NotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to head s3 object: %w", err)
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from s3: %w", err)
	}
	return nil
}

func (s *S3Store) Close() error { return nil }

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aErr awserr.Error
	if errors.As(err, &aErr) {
		switch aErr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
