package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)
	gifBytes  = append([]byte("GIF89a"), make([]byte, 32)...)
)

// MockStore is a mock implementation of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

func newTestUploader(store Store) *Uploader {
	u := NewUploader(store, 64, zerolog.Nop())
	u.now = func() time.Time { return time.UnixMilli(1700000000123) }
	u.random = func() string { return "abc123" }
	return u
}

func TestUploader_Save(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		data        []byte
		wantKey     string
		wantType    string
		expectedErr error
	}{
		{name: "PNG", data: pngBytes, wantKey: "menu-images/1700000000123-abc123.png", wantType: "image/png"},
		{name: "JPEG", data: jpegBytes, wantKey: "menu-images/1700000000123-abc123.jpg", wantType: "image/jpeg"},
		{name: "GIF", data: gifBytes, wantKey: "menu-images/1700000000123-abc123.gif", wantType: "image/gif"},
		{name: "Empty", data: nil, expectedErr: ErrEmptyFile},
		{name: "Too large", data: append(pngBytes, make([]byte, 64)...), expectedErr: ErrTooLarge},
		{name: "Text disguised as image", data: []byte("hello, this is not an image"), expectedErr: ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			if tt.expectedErr == nil {
				store.On("Put", ctx, tt.wantKey, tt.wantType, tt.data).Return("https://cdn.example/"+tt.wantKey, nil)
			}

			result, err := newTestUploader(store).Save(ctx, tt.data)

			if tt.expectedErr != nil {
				assert.Equal(t, tt.expectedErr, err)
				store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://cdn.example/"+tt.wantKey, result.URL)
			assert.Equal(t, tt.wantKey, result.Filename)
			assert.Equal(t, len(tt.data), result.Size)
			assert.Equal(t, tt.wantType, result.Type)
			store.AssertExpectations(t)
		})
	}
}

func TestUploader_StoreError(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("access denied"))

	_, err := newTestUploader(store).Save(ctx, pngBytes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads/", zerolog.Nop())
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "menu-images/1-a.png", "image/png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/menu-images/1-a.png", url)

	written, err := os.ReadFile(filepath.Join(dir, "menu-images", "1-a.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, written)

	_, err = store.Put(context.Background(), "../escape.png", "image/png", pngBytes)
	assert.Error(t, err)
}

type fakePutObject struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakePutObject) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Put(t *testing.T) {
	fake := &fakePutObject{}
	store := newS3Store(fake, "menus", "https://cdn.example/", zerolog.Nop())

	url, err := store.Put(context.Background(), "menu-images/1-a.png", "image/png", pngBytes)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/menu-images/1-a.png", url)
	require.NotNil(t, fake.input)
	assert.Equal(t, "menus", *fake.input.Bucket)
	assert.Equal(t, "menu-images/1-a.png", *fake.input.Key)
	assert.Equal(t, "image/png", *fake.input.ContentType)
	assert.Equal(t, int64(len(pngBytes)), *fake.input.ContentLength)

	fake.err = errors.New("no such bucket")
	_, err = store.Put(context.Background(), "k", "image/png", pngBytes)
	assert.ErrorContains(t, err, "no such bucket")
}
