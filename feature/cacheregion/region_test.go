package cacheregion_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"collection-engine/core/collection"
	"collection-engine/core/storage/mocks"
	"collection-engine/feature/cacheregion"
	"collection-engine/feature/store"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var _ store.Cache = (*cacheregion.Region)(nil)

const (
	bucket = "cache"
	object = "collections/Order.lines/7.json"
)

var linesKey = collection.Key{OwnerID: 7, Role: collection.Role{Owner: "Order", Property: "lines"}}

func TestRegion_ObjectName(t *testing.T) {
	r := cacheregion.New(&mocks.Client{}, bucket, "collections/", 0, nil)

	assert.Equal(t, object, r.ObjectName(linesKey))
	odd := collection.Key{OwnerID: "a/b c", Role: linesKey.Role}
	assert.Equal(t, "collections/Order.lines/a%2Fb%20c.json", r.ObjectName(odd))
}

func TestRegion_PutThenGetUsesMirror(t *testing.T) {
	client := &mocks.Client{}
	client.On("PutObject", mock.Anything, bucket, object, mock.Anything, mock.Anything, mock.MatchedBy(func(o minio.PutObjectOptions) bool {
		return o.ContentType == "application/json"
	})).Return(minio.UploadInfo{}, nil).Once()

	r := cacheregion.New(client, bucket, "collections/", time.Minute, nil)
	require.NoError(t, r.Put(context.Background(), linesKey, []any{1, 2}))

	tokens, found, err := r.Get(context.Background(), linesKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []any{1, 2}, tokens)
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegion_GetReadsObject(t *testing.T) {
	client := &mocks.Client{}
	client.On("GetObject", mock.Anything, bucket, object, mock.Anything).
		Return(mocks.Body(`{"role":"Order.lines","owner":"7","tokens":[1,2,2]}`), nil).Once()

	r := cacheregion.New(client, bucket, "collections/", 0, nil)
	tokens, found, err := r.Get(context.Background(), linesKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []any{float64(1), float64(2), float64(2)}, tokens)
	client.AssertExpectations(t)
}

func TestRegion_GetFailures(t *testing.T) {
	tests := []struct {
		name      string
		reader    io.ReadCloser
		err       error
		wantFound bool
		wantErr   bool
	}{
		{"Missing", nil, mocks.NoSuchKey(), false, false},
		{"MissingBucket", nil, minio.ErrorResponse{Code: "NoSuchBucket"}, false, false},
		{"Unavailable", nil, errors.New("connection refused"), false, true},
		{"Corrupt", mocks.Body("{not json"), nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mocks.Client{}
			client.On("GetObject", mock.Anything, bucket, object, mock.Anything).Return(tt.reader, tt.err)

			r := cacheregion.New(client, bucket, "collections/", time.Minute, nil)
			_, found, err := r.Get(context.Background(), linesKey)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegion_ConcurrentGetSharesRead(t *testing.T) {
	client := &mocks.Client{}
	client.On("GetObject", mock.Anything, bucket, object, mock.Anything).
		Return(mocks.Body(`{"tokens":[4]}`), nil).Once()

	r := cacheregion.New(client, bucket, "collections/", time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens, found, err := r.Get(context.Background(), linesKey)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []any{float64(4)}, tokens)
		}()
	}
	wg.Wait()

	client.AssertNumberOfCalls(t, "GetObject", 1)
}

func TestRegion_PutFailureDropsMirror(t *testing.T) {
	client := &mocks.Client{}
	client.On("PutObject", mock.Anything, bucket, object, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil).Once()
	client.On("PutObject", mock.Anything, bucket, object, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("quota exceeded")).Once()
	client.On("GetObject", mock.Anything, bucket, object, mock.Anything).
		Return(nil, mocks.NoSuchKey())

	r := cacheregion.New(client, bucket, "collections/", time.Minute, nil)
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, linesKey, []any{1}))
	assert.Error(t, r.Put(ctx, linesKey, []any{1, 2}))

	_, found, err := r.Get(ctx, linesKey)
	require.NoError(t, err)
	assert.False(t, found, "Stale mirror entry must not survive a failed write")
}

func TestRegion_Evict(t *testing.T) {
	client := &mocks.Client{}
	client.On("RemoveObject", mock.Anything, bucket, object, mock.Anything).
		Return(mocks.NoSuchKey()).Once()
	client.On("RemoveObject", mock.Anything, bucket, object, mock.Anything).
		Return(errors.New("access denied")).Once()

	r := cacheregion.New(client, bucket, "collections/", time.Minute, nil)
	assert.NoError(t, r.Evict(context.Background(), linesKey))
	assert.Error(t, r.Evict(context.Background(), linesKey))
}

func TestRegion_Purge(t *testing.T) {
	client := &mocks.Client{}
	listed := mocks.Listing("collections/Order.lines/7.json", "collections/Order.lines/8.json")

	client.On("PutObject", mock.Anything, bucket, object, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)
	client.On("ListObjects", mock.Anything, bucket, minio.ListObjectsOptions{Prefix: "collections/Order.lines/", Recursive: true}).
		Return(listed)
	client.On("RemoveObjects", mock.Anything, bucket, mock.Anything, mock.Anything).Return(nil)
	client.On("GetObject", mock.Anything, bucket, object, mock.Anything).
		Return(nil, mocks.NoSuchKey())

	r := cacheregion.New(client, bucket, "collections/", time.Minute, nil)
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, linesKey, []any{1}))

	removed, err := r.Purge(ctx, linesKey.Role)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"collections/Order.lines/7.json", "collections/Order.lines/8.json"}, client.Removed())

	_, found, err := r.Get(ctx, linesKey)
	require.NoError(t, err)
	assert.False(t, found)
	client.AssertCalled(t, "GetObject", mock.Anything, bucket, object, mock.Anything)
}
