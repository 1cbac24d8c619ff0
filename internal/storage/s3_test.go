package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	keys    []string
	headErr error
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for _, k := range f.keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: map[string][]byte{"templates/Ratios.xlsx": []byte("xlsx-bytes")},
		keys:    []string{"templates/Ratios.xlsx", "templates/readme.md", "templates/Old.xls"},
	}
}

func TestS3Key(t *testing.T) {
	s := NewS3WithClient(newFakeS3(), S3Options{Bucket: "reports", BaseURL: "https://reports.s3.amazonaws.com"})
	tests := map[string]string{
		"templates/Ratios.xlsx":                                  "templates/Ratios.xlsx",
		"/templates/Ratios.xlsx":                                 "templates/Ratios.xlsx",
		"s3://reports/templates/Ratios.xlsx":                     "templates/Ratios.xlsx",
		"https://reports.s3.amazonaws.com/templates/Ratios.xlsx": "templates/Ratios.xlsx",
	}
	for in, want := range tests {
		assert.Equal(t, want, s.key(in), in)
	}
}

func TestS3(t *testing.T) {
	s := NewS3WithClient(newFakeS3(), S3Options{Bucket: "reports", Prefix: "templates/"})
	ctx := context.Background()

	ok, err := s.Exists(ctx, "s3://reports/templates/Ratios.xlsx")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "templates/Missing.xlsx")
	require.NoError(t, err)
	assert.False(t, ok)

	info, err := s.Stat(ctx, "templates/Ratios.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Ratios.xlsx", info.Name())
	assert.Equal(t, int64(10), info.Size())

	_, err = s.Stat(ctx, "templates/Missing.xlsx")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	data, err := s.Read(ctx, "templates/Ratios.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(data))

	_, err = s.Read(ctx, "templates/Missing.xlsx")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"templates/Ratios.xlsx", "templates/Old.xls"}, keys)
}

func TestS3_ExistsPropagatesOtherErrors(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = errors.New("access denied")
	s := NewS3WithClient(fake, S3Options{Bucket: "reports"})

	_, err := s.Exists(context.Background(), "templates/Ratios.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
