package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/autostack/gateway/pkg/config"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	src := []byte("print('hi')")
	require.NoError(t, s.Put(ctx, "k", src, "text/x-python"))
	src[0] = 'X'

	data, ct, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "print('hi')", string(data))
	require.Equal(t, "text/x-python", ct)

	require.NoError(t, s.Delete(ctx, "k"))
	_, _, err = s.Get(ctx, "k")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUploadKey(t *testing.T) {
	pid, aid := uuid.New(), uuid.New()
	key := UploadKey(pid, aid, "../../etc/passwd")
	require.Equal(t, "projects/"+pid.String()+"/"+aid.String()+"/passwd", key)
	require.True(t, BelongsTo(key, pid))
	require.False(t, BelongsTo(key, uuid.New()))
	require.False(t, BelongsTo("projects/"+pid.String()+"/../x", pid))

	require.Equal(t, "projects/"+pid.String()+"/"+aid.String()+"/app.js", UploadKey(pid, aid, `src\app.js`))
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	s, err := NewFromConfig(ctx, &config.Config{StorageType: "memory"})
	require.NoError(t, err)
	require.Equal(t, "memory", s.Backend())

	s, err = NewFromConfig(ctx, &config.Config{StorageType: "none"})
	require.NoError(t, err)
	require.Nil(t, s)

	_, err = NewFromConfig(ctx, &config.Config{StorageType: "s3"})
	require.Error(t, err)

	s, err = NewFromConfig(ctx, &config.Config{
		StorageType:       "s3",
		S3Bucket:          "uploads",
		S3Region:          "us-west-2",
		S3Endpoint:        "http://localhost:9000",
		S3AccessKeyID:     "minio",
		S3SecretAccessKey: "minio123",
		S3UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.Equal(t, "s3", s.Backend())
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	pid, other := uuid.New(), uuid.New()

	require.NoError(t, s.Put(ctx, UploadKey(pid, uuid.New(), "a.py"), []byte("a"), "text/plain"))
	require.NoError(t, s.Put(ctx, UploadKey(pid, uuid.New(), "b.py"), []byte("b"), "text/plain"))
	keep := UploadKey(other, uuid.New(), "c.py")
	require.NoError(t, s.Put(ctx, keep, []byte("c"), "text/plain"))

	n, err := s.DeletePrefix(ctx, ProjectPrefix(pid))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 1, s.Len())

	_, _, err = s.Get(ctx, keep)
	require.NoError(t, err)
}
