package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data     []byte
	metadata map[string]string
}

// fakeS3 is an in-memory S3Client. Multipart uploads are not supported;
// test payloads stay below the uploader's part size.
type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	bucketErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, metadata: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data)), Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: obj.metadata}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys
}

func TestS3Vault_Archives(t *testing.T) {
	client := newFakeS3()
	v := NewS3VaultWithClient("test-s3", client, "bucket", "/sites/")

	data := "PK\x03\x04 archive"
	if err := v.PutArchive(testArchiveID, strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("PutArchive() error = %v", err)
	}

	if keys := client.keys(); len(keys) != 1 || keys[0] != "sites/archives/"+testArchiveID {
		t.Errorf("stored keys = %v, want [sites/archives/%s]", keys, testArchiveID)
	}

	var buf bytes.Buffer
	if err := v.GetArchive(testArchiveID, &buf); err != nil {
		t.Fatalf("GetArchive() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetArchive() = %q, want %q", buf.String(), data)
	}

	if err := v.DeleteArchive(testArchiveID); err != nil {
		t.Fatalf("DeleteArchive() error = %v", err)
	}
	err := v.GetArchive(testArchiveID, &buf)
	if err == nil || !strings.Contains(err.Error(), "archive not found") {
		t.Errorf("GetArchive() after delete error = %v, want archive not found", err)
	}
}

func TestS3Vault_PutArchiveSizeMismatch(t *testing.T) {
	client := newFakeS3()
	v := NewS3VaultWithClient("test-s3", client, "bucket", "")

	if err := v.PutArchive(testArchiveID, strings.NewReader("short"), 100); err == nil {
		t.Error("PutArchive() expected error for size mismatch, got nil")
	}
	if keys := client.keys(); len(keys) != 0 {
		t.Errorf("objects left after size mismatch: %v", keys)
	}
}

func TestS3Vault_Metadata(t *testing.T) {
	v := NewS3VaultWithClient("test-s3", newFakeS3(), "bucket", "")

	version, err := v.GetMetadataVersion("site-1", "minisite.db")
	if err != nil {
		t.Fatalf("GetMetadataVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("GetMetadataVersion() = %d, want 0", version)
	}

	data := "sqlite bytes"
	if err := v.PutMetadata("site-1", "minisite.db", strings.NewReader(data), int64(len(data)), 42); err != nil {
		t.Fatalf("PutMetadata() error = %v", err)
	}

	var buf bytes.Buffer
	if err := v.GetMetadata("site-1", "minisite.db", &buf); err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetMetadata() = %q, want %q", buf.String(), data)
	}

	version, err = v.GetMetadataVersion("site-1", "minisite.db")
	if err != nil {
		t.Fatalf("GetMetadataVersion() error = %v", err)
	}
	if version != 42 {
		t.Errorf("GetMetadataVersion() = %d, want 42", version)
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	client := newFakeS3()
	v := NewS3VaultWithClient("test-s3", client, "bucket", "")

	if err := v.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	client.bucketErr = errors.New("access denied")
	if err := v.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for unreachable bucket")
	}
}
