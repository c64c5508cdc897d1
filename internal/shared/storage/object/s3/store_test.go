package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"docsum-backend/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "1700-ab_file.pdf", want: "1700-ab_file.pdf"},
		{name: "simple prefix", prefix: "docs", key: "1700-ab_file.pdf", want: "docs/1700-ab_file.pdf"},
		{name: "prefix trailing slash", prefix: "docs/", key: "1700-ab_file.pdf", want: "docs/1700-ab_file.pdf"},
		{name: "prefix and key slashes", prefix: "/docs/", key: "/1700-ab_file.pdf", want: "docs/1700-ab_file.pdf"},
		{name: "nested prefix", prefix: "docs/raw", key: "1700-ab_file.pdf", want: "docs/raw/1700-ab_file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		endpoint string
		ssl      bool
		want     string
	}{
		{endpoint: "", want: ""},
		{endpoint: "localhost:9000", want: "http://localhost:9000"},
		{endpoint: "minio.internal:9000", ssl: true, want: "https://minio.internal:9000"},
		{endpoint: "https://s3.example.com/", want: "https://s3.example.com"},
	}
	for _, tt := range tests {
		if got := endpointURL(tt.endpoint, tt.ssl); got != tt.want {
			t.Fatalf("endpointURL(%q, %v) = %q, want %q", tt.endpoint, tt.ssl, got, tt.want)
		}
	}
}

type fakeS3 struct {
	objects       map[string][]byte
	contentTypes  map[string]string
	sse           map[string]s3types.ServerSideEncryption
	bucketExists  bool
	createdBucket string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
		sse:          map[string]s3types.ServerSideEncryption{},
	}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(params.Key)
	f.objects[key] = data
	f.contentTypes[key] = aws.ToString(params.ContentType)
	f.sse[key] = params.ServerSideEncryption
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createdBucket = aws.ToString(params.Bucket)
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

type fakePresigner struct {
	lastExpires time.Duration
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.lastExpires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "http://minio:9000/" + aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)}, nil
}

func TestStorePutGetDeleteWithPrefix(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := newStore(client, &fakePresigner{}, Options{Bucket: "documents", Prefix: "/raw/"}, defaultRegion, false)

	key, err := store.Put(ctx, "1700-ab_cv.docx", []byte("PK"), "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "1700-ab_cv.docx" {
		t.Fatalf("expected caller key back, got %q", key)
	}
	if _, ok := client.objects["raw/1700-ab_cv.docx"]; !ok {
		t.Fatalf("expected prefixed object key, have %v", client.objects)
	}
	if client.sse["raw/1700-ab_cv.docx"] != "" {
		t.Fatalf("expected no SSE for S3-compatible endpoint")
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "PK" {
		t.Fatalf("unexpected data %q", data)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreUsesSSEOnAWS(t *testing.T) {
	client := newFakeS3()
	store := newStore(client, &fakePresigner{}, Options{Bucket: "documents"}, defaultRegion, true)
	if _, err := store.Put(context.Background(), "k.pdf", []byte("x"), "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if client.sse["k.pdf"] != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 SSE, got %q", client.sse["k.pdf"])
	}
}

func TestEnsureBucketCreatesMissingBucket(t *testing.T) {
	client := newFakeS3()
	store := newStore(client, &fakePresigner{}, Options{Bucket: "documents"}, defaultRegion, false)

	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}
	if client.createdBucket != "documents" {
		t.Fatalf("expected bucket creation, got %q", client.createdBucket)
	}

	client.createdBucket = ""
	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("ensure existing bucket: %v", err)
	}
	if client.createdBucket != "" {
		t.Fatalf("expected no second creation")
	}
}

func TestPresignedURLDefaultsTTL(t *testing.T) {
	presign := &fakePresigner{}
	store := newStore(newFakeS3(), presign, Options{Bucket: "documents"}, defaultRegion, false)

	url, err := store.PresignedURL(context.Background(), "k.pdf", 0)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if url != "http://minio:9000/documents/k.pdf" {
		t.Fatalf("unexpected url %q", url)
	}
	if presign.lastExpires != object.DefaultPresignTTL {
		t.Fatalf("expected default ttl, got %s", presign.lastExpires)
	}
}
