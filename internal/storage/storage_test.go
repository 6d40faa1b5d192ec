package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "u1/g1.mid", ObjectKey("u1", "g1"))
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "plain", key: "u1/g1.mid", want: "u1/g1.mid"},
		{name: "leading slash", key: "/u1/g1.mid", want: "u1/g1.mid"},
		{name: "double slash", key: "u1//g1.mid", want: "u1/g1.mid"},
		{name: "backslash", key: `u1\g1.mid`, want: "u1/g1.mid"},
		{name: "parent", key: "../etc/passwd", wantErr: true},
		{name: "nested parent", key: "u1/../../x", wantErr: true},
		{name: "empty", key: "  ", wantErr: true},
		{name: "root", key: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put(ctx, ObjectKey("u1", "g1"), []byte("MThd"), ContentTypeMidi)
	require.NoError(t, err)
	assert.Equal(t, "u1/g1.mid", key)

	data, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("MThd"), data)

	// overwrite
	_, err = s.Put(ctx, key, []byte("MThd2"), ContentTypeXMidi)
	require.NoError(t, err)
	data, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("MThd2"), data)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, key), ErrNotFound)
}

func TestLocalStore_PutRejects(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "u1/a.mid", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, ErrContentType)

	_, err = s.Put(ctx, "u1/a.mid", make([]byte, MaxObjectSize+1), ContentTypeMidi)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Put(ctx, "../a.mid", []byte("x"), ContentTypeMidi)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Put(ctx, "u1/a.mid", []byte("x"), ContentTypeMidi)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Get(ctx, "u1/a.mid")
	assert.ErrorIs(t, err, context.Canceled)
}
