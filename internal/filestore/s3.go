package filestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	config "example.com/snapgram/internal/init"
	"example.com/snapgram/internal/logger"
	"example.com/snapgram/internal/store"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

var logg = logger.New()

const keyPrefix = "uploads/"

// S3API is the part of the S3 client the file store uses.
type S3API interface {
	PutObjectRequest(input *s3.PutObjectInput) (*request.Request, *s3.PutObjectOutput)
	HeadObjectWithContext(ctx aws.Context, input *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
}

type S3FileStore struct {
	bucket       string
	publicPrefix string
	uploadTTL    time.Duration
	svc          S3API
}

// NewS3FileStore builds a file store from the S3_* settings. S3_ENDPOINT may
// point at an S3-compatible server such as MinIO.
func NewS3FileStore(cfg *config.Config) (*S3FileStore, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.S3Region),
	}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	prefix := cfg.S3PublicPrefix
	if prefix == "" {
		prefix = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", cfg.S3Bucket, cfg.S3Region)
	}
	return NewS3FileStoreWithClient(s3.New(sess), cfg.S3Bucket, prefix, cfg.S3UploadTTL), nil
}

func NewS3FileStoreWithClient(svc S3API, bucket, publicPrefix string, uploadTTL time.Duration) *S3FileStore {
	if !strings.HasSuffix(publicPrefix, "/") {
		publicPrefix += "/"
	}
	if uploadTTL <= 0 {
		uploadTTL = 15 * time.Minute
	}
	return &S3FileStore{
		bucket:       bucket,
		publicPrefix: publicPrefix,
		uploadTTL:    uploadTTL,
		svc:          svc,
	}
}

// GenerateUploadURL presigns a PUT for a fresh object key.
func (s *S3FileStore) GenerateUploadURL(ctx context.Context) (UploadTarget, error) {
	key := keyPrefix + uuid.NewString()
	req, _ := s.svc.PutObjectRequest(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	url, err := req.Presign(s.uploadTTL)
	if err != nil {
		logg.Error("filestore", "Failed to presign upload", err)
		return UploadTarget{}, err
	}
	return UploadTarget{
		StorageID: key,
		URL:       url,
		ExpiresAt: time.Now().Add(s.uploadTTL),
	}, nil
}

// GetURL checks the object exists and returns its public URL.
func (s *S3FileStore) GetURL(ctx context.Context, storageID string) (string, error) {
	if !strings.HasPrefix(storageID, keyPrefix) {
		return "", fmt.Errorf("storage id %q: %w", storageID, store.ErrNotFound)
	}

	_, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageID),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("storage id %q: %w", storageID, store.ErrNotFound)
		}
		logg.Error("filestore", "Failed to head object", err)
		return "", err
	}
	return s.publicPrefix + storageID, nil
}

func (s *S3FileStore) Delete(ctx context.Context, storageID string) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageID),
	})
	if err != nil && !isNotFound(err) {
		logg.Error("filestore", "Failed to delete object", err)
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode() == http.StatusNotFound
	}
	return false
}
