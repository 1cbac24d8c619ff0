package storage

import (
	"SheetReports/internal/report"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 serves templates from a bucket. Catalog paths may be bare keys,
// s3://bucket/key URIs or https object URLs under BaseURL.
type S3 struct {
	client  S3API
	bucket  string
	prefix  string
	baseURL string
}

type S3Options struct {
	Bucket  string
	Region  string
	Prefix  string
	BaseURL string
}

func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewS3WithClient(s3.NewFromConfig(cfg), opts), nil
}

func NewS3WithClient(client S3API, opts S3Options) *S3 {
	base := strings.TrimSpace(opts.BaseURL)
	if base != "" {
		base = strings.TrimSuffix(base, "/") + "/"
	}
	return &S3{client: client, bucket: opts.Bucket, prefix: opts.Prefix, baseURL: base}
}

func (s *S3) key(p string) string {
	p = strings.TrimSpace(p)
	if s.baseURL != "" && strings.HasPrefix(p, s.baseURL) {
		return strings.TrimPrefix(p, s.baseURL)
	}
	if rest, ok := strings.CutPrefix(p, "s3://"+s.bucket+"/"); ok {
		return rest
	}
	return strings.TrimPrefix(p, "/")
}

func (s *S3) head(ctx context.Context, p string) (*s3.HeadObjectOutput, error) {
	return s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
}

func (s *S3) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.head(ctx, p)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head s3 object (bucket %s, key %s): %w", s.bucket, s.key(p), err)
}

func (s *S3) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	out, err := s.head(ctx, p)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", p, fs.ErrNotExist)
		}
		return nil, err
	}
	info := objectInfo{name: path.Base(s.key(p)), size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		info.modTime = *out.LastModified
	}
	return info, nil
}

func (s *S3) Read(ctx context.Context, p string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", p, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("get s3 object (bucket %s, key %s): %w", s.bucket, s.key(p), err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// List returns the keys of spreadsheet objects under the configured prefix.
func (s *S3) List(ctx context.Context) ([]string, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		in.Prefix = aws.String(s.prefix)
	}
	var keys []string
	pages := s3.NewListObjectsV2Paginator(s.client, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3 objects (bucket %s): %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if report.IsSpreadsheetName(k) {
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

type objectInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (o objectInfo) Name() string       { return o.name }
func (o objectInfo) Size() int64        { return o.size }
func (o objectInfo) Mode() fs.FileMode  { return 0o444 }
func (o objectInfo) ModTime() time.Time { return o.modTime }
func (o objectInfo) IsDir() bool        { return false }
func (o objectInfo) Sys() interface{}   { return nil }
