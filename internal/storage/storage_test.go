package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimal PNG header, enough for content sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLocalStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "/storage/")
	require.NoError(t, err)

	p, err := store.Store(ctx, pngBytes, FolderVariants, "red.PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "products/variants/"))
	assert.True(t, strings.HasSuffix(p, ".png"))
	assert.Equal(t, "/storage/"+p, store.PublicURL(p))

	ok, err := store.Exists(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, p))
	ok, err = store.Exists(ctx, p)
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, p))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/storage")
	require.NoError(t, err)

	err = store.Delete(context.Background(), "../etc/passwd")
	assert.True(t, errors.Is(err, ErrInvalidPath))
	_, err = store.Exists(context.Background(), "")
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestObjectPathExtension(t *testing.T) {
	p, err := objectPath("categories", "", pngBytes)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "categories/"))
	assert.True(t, strings.HasSuffix(p, ".png"))

	_, err = objectPath("", "a.png", pngBytes)
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3StoreLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	store := &S3Store{client: fake, bucket: "catalog", publicURL: "https://cdn.example.com"}

	key, err := store.Store(ctx, pngBytes, FolderProducts, "featured.png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, fake.objects[key])
	assert.Equal(t, "https://cdn.example.com/"+key, store.PublicURL(key))

	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, key))
	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
