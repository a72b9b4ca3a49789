package bankfeed

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	objects   map[string]string
	gotKeys   []string
	gotPrefix string
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.gotKeys = append(f.gotKeys, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.gotPrefix = aws.ToString(in.Prefix)
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if strings.HasPrefix(key, f.gotPrefix) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func TestNewS3Source_Validation(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3Source(nil)
		assert.ErrorContains(t, err, "configuration is required")
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := NewS3Source(&config.BankFeedConfig{AccessKeyID: "k", SecretAccessKey: "s"})
		assert.ErrorContains(t, err, "bucket is required")
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := NewS3Source(&config.BankFeedConfig{Bucket: "feeds"})
		assert.ErrorContains(t, err, "credentials are required")
	})

	t.Run("valid config builds a client", func(t *testing.T) {
		source, err := NewS3Source(&config.BankFeedConfig{
			Bucket:          "feeds",
			Endpoint:        "localhost:9000",
			AccessKeyID:     "k",
			SecretAccessKey: "s",
			UsePathStyle:    true,
		})
		require.NoError(t, err)
		assert.NotNil(t, source.client)
	})
}

func TestS3Source_ReadStatement(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]string{
		"statements/2026-03.csv": "id,date,amount\nB-1,2026-03-03,250\n",
		"statements/notes.txt":   "ignore me",
	}}
	source, err := NewS3Source(&config.BankFeedConfig{Bucket: "feeds", Prefix: "/statements/"}, WithClient(bucket))
	require.NoError(t, err)
	ctx := context.Background()

	rows, err := source.ReadStatement(ctx, "2026-03.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "B-1", rows[0].ExternalID)

	_, err = source.ReadStatement(ctx, "statements/2026-03.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"statements/2026-03.csv", "statements/2026-03.csv"}, bucket.gotKeys)

	_, err = source.ReadStatement(ctx, "2026-04.csv")
	assert.True(t, shared.IsNotFound(err))

	_, err = source.ReadStatement(ctx, " ")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	keys, err := source.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"statements/2026-03.csv"}, keys)
	assert.Equal(t, "statements/", bucket.gotPrefix)
}
