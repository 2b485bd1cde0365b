package service_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG file for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func dataURI(ext string, data []byte) string {
	return "data:image/" + ext + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestDecodeDataURI(t *testing.T) {
	upload, err := service.DecodeDataURI(dataURI("png", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "temp.png", upload.Filename)
	assert.Equal(t, "image/png", upload.ContentType)
	assert.Equal(t, pngHeader, upload.Data)

	for name, uri := range map[string]string{
		"not a data uri": "https://example.com/cake.png",
		"bad base64":     "data:image/png;base64,***",
		"unknown type":   dataURI("bmp", pngHeader),
		"mismatch":       dataURI("gif", pngHeader),
		"empty":          dataURI("png", nil),
	} {
		_, err := service.DecodeDataURI(uri)
		assert.Contains(t, fieldErrors(t, err), "image", name)
	}
}

func TestNewUploadSize(t *testing.T) {
	big := append(append([]byte{}, pngHeader...), make([]byte, service.MaxImageSize)...)
	_, err := service.NewUpload("png", big)
	assert.Contains(t, fieldErrors(t, err), "image")

	upload, err := service.NewUpload(".JPG", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"))
	require.NoError(t, err)
	assert.Equal(t, "temp.jpg", upload.Filename)
	assert.Equal(t, "image/jpeg", upload.ContentType)
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	images := service.NewImageService(service.NewLocalStore(root, "/media"))

	upload, err := service.NewUpload("png", pngHeader)
	require.NoError(t, err)

	url, err := images.Save(context.Background(), upload)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/media/recipes/"), url)
	require.True(t, strings.HasSuffix(url, "/temp.png"), url)

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(url, "/media/"))))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)

	again, err := images.Save(context.Background(), upload)
	require.NoError(t, err)
	assert.NotEqual(t, url, again)

	require.NoError(t, images.Delete(context.Background(), url))
	dir := filepath.Dir(filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(url, "/media/"))))
	assert.NoDirExists(t, dir)
	assert.NoError(t, images.Delete(context.Background(), url))
	assert.NoError(t, images.Delete(context.Background(), "https://example.com/cake.png"))

	entries, err := os.ReadDir(filepath.Join(root, "recipes"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

type fakeS3 struct {
	input   *s3.PutObjectInput
	body    []byte
	deleted *s3.DeleteObjectInput
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = in
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	client := &fakeS3{}
	store := service.NewS3Store(client, "foodgram-media", "eu-west-1")

	url, err := store.Put(context.Background(), "recipes/abc/temp.png", "image/png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "https://foodgram-media.s3.eu-west-1.amazonaws.com/recipes/abc/temp.png", url)
	assert.Equal(t, "foodgram-media", aws.ToString(client.input.Bucket))
	assert.Equal(t, "recipes/abc/temp.png", aws.ToString(client.input.Key))
	assert.Equal(t, "image/png", aws.ToString(client.input.ContentType))
	assert.Equal(t, pngHeader, client.body)

	require.NoError(t, service.NewImageService(store).Delete(context.Background(), url))
	assert.Equal(t, "foodgram-media", aws.ToString(client.deleted.Bucket))
	assert.Equal(t, "recipes/abc/temp.png", aws.ToString(client.deleted.Key))

	client.err = errors.New("access denied")
	_, err = service.NewImageService(store).Save(context.Background(), &service.Upload{Filename: "temp.png", ContentType: "image/png", Data: pngHeader})
	assert.ErrorContains(t, err, "access denied")
}
