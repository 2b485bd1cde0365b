package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxImageSize bounds a decoded recipe image.
const MaxImageSize = 10 << 20

// imageTypes maps accepted file extensions to the content type the data
// must sniff as.
var imageTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Upload is a validated image ready to be stored.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DecodeDataURI decodes "data:image/<ext>;base64,<payload>" into an Upload
// named temp.<ext>.
func DecodeDataURI(uri string) (*Upload, error) {
	header, payload, ok := strings.Cut(uri, ";base64,")
	if !ok || !strings.HasPrefix(header, "data:image/") {
		return nil, NewValidationError("image", "expected a data:image/<ext>;base64 string")
	}
	ext := strings.ToLower(strings.TrimPrefix(header, "data:image/"))

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, NewValidationError("image", "invalid base64 payload")
	}
	return NewUpload(ext, data)
}

// NewUpload validates raw image bytes with the given extension, as sent by
// a multipart upload or decoded from a data URI.
func NewUpload(ext string, data []byte) (*Upload, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	want, ok := imageTypes[ext]
	if !ok {
		return nil, NewValidationError("image", fmt.Sprintf("unsupported image type %q", ext))
	}
	if len(data) == 0 {
		return nil, NewValidationError("image", "the submitted file is empty")
	}
	if len(data) > MaxImageSize {
		return nil, NewValidationError("image", fmt.Sprintf("image exceeds %d bytes", MaxImageSize))
	}
	if got := mimetype.Detect(data); !got.Is(want) {
		return nil, NewValidationError("image", "upload a valid image: the file is not a "+ext+" image")
	}

	return &Upload{Filename: "temp." + ext, ContentType: want, Data: data}, nil
}

// Store persists image bytes under key and returns the public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// ImageService stores recipe images under recipes/<uuid>/.
type ImageService struct {
	store Store
}

func NewImageService(store Store) *ImageService {
	return &ImageService{store: store}
}

// Save stores upload and returns the URL to keep on the recipe.
func (s *ImageService) Save(ctx context.Context, upload *Upload) (string, error) {
	key := path.Join("recipes", uuid.NewString(), upload.Filename)
	url, err := s.store.Put(ctx, key, upload.ContentType, upload.Data)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	logrus.WithField("key", key).Debug("Stored recipe image")
	return url, nil
}

// Delete removes an image previously returned by Save. URLs that were not
// produced by Save are ignored.
func (s *ImageService) Delete(ctx context.Context, url string) error {
	i := strings.LastIndex(url, "recipes/")
	if i < 0 {
		return nil
	}
	key := url[i:]
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	logrus.WithField("key", key).Debug("Deleted recipe image")
	return nil
}

// LocalStore writes images below a media root served by the API itself.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) *LocalStore {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStore{root: root, baseURL: baseURL}
}

func (s *LocalStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	dest := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + key, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	dest := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	// The per-image directory is left behind only if something else is in it.
	_ = os.Remove(filepath.Dir(dest))
	return nil
}

// S3API is the part of the S3 client S3Store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store uploads images to a public-read S3 bucket.
type S3Store struct {
	client S3API
	bucket string
	region string
}

func NewS3Store(client S3API, bucket, region string) *S3Store {
	return &S3Store{client: client, bucket: bucket, region: region}
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
