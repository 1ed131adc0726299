package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"minisite-go/internal/minisite"
)

// versionMetadataKey is the S3 object metadata key holding a metadata item's version.
const versionMetadataKey = "minisite-version"

// S3Client is the subset of the S3 API the vault uses.
type S3Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Vault stores archives and metadata as objects in an S3 bucket:
//
//	<prefix>/archives/<id>
//	<prefix>/metadata/<siteID>/<name>   (version kept in object metadata)
type S3Vault struct {
	name     string
	client   S3Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// S3Options configures NewS3Vault. Endpoint, AccessKey and SecretKey are
// optional; without keys the default AWS credential chain is used.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Vault creates an S3 vault from options, loading the AWS configuration.
func NewS3Vault(name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3VaultWithClient(name, client, opts.Bucket, opts.Prefix), nil
}

// NewS3VaultWithClient creates an S3 vault around an existing client.
func NewS3VaultWithClient(name string, client S3Client, bucket, prefix string) *S3Vault {
	return &S3Vault{
		name:     name,
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}
}

func (v *S3Vault) key(parts ...string) string {
	if v.prefix != "" {
		parts = append([]string{v.prefix}, parts...)
	}
	return path.Join(parts...)
}

// put uploads size bytes from r, failing when r yields a different amount.
func (v *S3Vault) put(key string, r io.Reader, size int64, metadata map[string]string) error {
	counted := &countingReader{r: r}
	_, err := v.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(key),
		Body:     counted,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if counted.n != size {
		v.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(v.bucket),
			Key:    aws.String(key),
		})
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counted.n)
	}
	return nil
}

func (v *S3Vault) get(key string, w io.Writer, notFoundMsg string) error {
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%s", notFoundMsg)
		}
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return nil
}

// PutArchive stores an archive under its ID, replacing any previous copy.
func (v *S3Vault) PutArchive(id string, r io.Reader, size int64) error {
	return v.put(v.key("archives", id), r, size, nil)
}

// GetArchive retrieves an archive by ID and writes it to w.
func (v *S3Vault) GetArchive(id string, w io.Writer) error {
	return v.get(v.key("archives", id), w, fmt.Sprintf("archive not found: %s", id))
}

// DeleteArchive removes an archive. S3 treats missing keys as deleted.
func (v *S3Vault) DeleteArchive(id string) error {
	_, err := v.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key("archives", id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete archive %s: %w", id, err)
	}
	return nil
}

// PutMetadata stores a named metadata item with its version in the object metadata.
func (v *S3Vault) PutMetadata(siteID string, name string, r io.Reader, size int64, version int64) error {
	return v.put(v.key("metadata", siteID, name), r, size, map[string]string{
		versionMetadataKey: strconv.FormatInt(version, 10),
	})
}

// GetMetadata retrieves a named metadata item for a site and writes it to w.
func (v *S3Vault) GetMetadata(siteID string, name string, w io.Writer) error {
	return v.get(v.key("metadata", siteID, name), w, fmt.Sprintf("metadata %q not found for site: %s", name, siteID))
}

// GetMetadataVersion returns the stored version, or 0 when the item does not exist.
func (v *S3Vault) GetMetadataVersion(siteID string, name string) (int64, error) {
	out, err := v.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key("metadata", siteID, name)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading metadata version: %w", err)
	}

	raw, ok := out.Metadata[versionMetadataKey]
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Compile-time check that S3Vault implements minisite.Vault interface
var _ minisite.Vault = (*S3Vault)(nil)
