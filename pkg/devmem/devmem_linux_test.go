//go:build linux

package devmem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physmem-tools/physmem-go/pkg/session"
)

// backingFile creates a file whose byte at offset i is i mod 256.
func backingFile(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "mem")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDefaultPath(t *testing.T) {
	d := New(Config{})
	assert.Equal(t, DefaultPath, d.Path())
	assert.False(t, d.IsOpen())
}

func TestPeekPoke(t *testing.T) {
	path := backingFile(t, 0x200)
	d := New(Config{Path: path})
	require.NoError(t, d.Open())
	defer d.Close()

	assert.True(t, d.Writable())

	v, err := d.Peek(0x1AB)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), v)

	require.NoError(t, d.Poke(0x10, 0xEE))
	v, err = d.Peek(0x10)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xEE), v)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte(0xEE), data[0x10])
}

func TestOpenIsIdempotent(t *testing.T) {
	d := New(Config{Path: backingFile(t, 16)})
	require.NoError(t, d.Open())
	require.NoError(t, d.Open())
	assert.True(t, d.IsOpen())

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.False(t, d.IsOpen())
}

func TestOpenMissingDevice(t *testing.T) {
	d := New(Config{Path: filepath.Join(t.TempDir(), "absent")})
	err := d.Open()
	assert.ErrorIs(t, err, session.ErrDeviceUnavailable)
	assert.True(t, session.IsFatal(err))
	assert.False(t, d.IsOpen())
}

func TestReadOnly(t *testing.T) {
	d := New(Config{Path: backingFile(t, 16), ReadOnly: true})
	require.NoError(t, d.Open())
	defer d.Close()

	assert.False(t, d.Writable())

	v, err := d.Peek(3)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), v)

	assert.ErrorIs(t, d.Poke(3, 1), session.ErrWriteProtected)
}

func TestOutOfRange(t *testing.T) {
	d := New(Config{Path: backingFile(t, 16)})
	require.NoError(t, d.Open())
	defer d.Close()

	_, err := d.Peek(16)
	assert.ErrorIs(t, err, session.ErrAddressOutOfRange)

	_, err = d.Peek(^uint64(0))
	assert.ErrorIs(t, err, session.ErrAddressOutOfRange)

	assert.ErrorIs(t, d.Poke(1<<63, 0), session.ErrAddressOutOfRange)
}

func TestClosedDevice(t *testing.T) {
	d := New(Config{Path: backingFile(t, 16)})

	_, err := d.Peek(0)
	assert.ErrorIs(t, err, session.ErrIO)
	assert.ErrorIs(t, d.Poke(0, 0), session.ErrIO)
}

func TestThroughSession(t *testing.T) {
	d := New(Config{Path: backingFile(t, 0x100)})
	s := session.New(d, session.Config{Name: d.Path()})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, s.Open(ctx))
	defer s.Close()

	require.NoError(t, s.WriteByteAt(ctx, 0x42, 0x99))
	v, err := s.ReadByteAt(ctx, 0x42)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x99), v)

	_, err = s.ReadByteAt(ctx, 0x100)
	assert.ErrorIs(t, err, session.ErrAddressOutOfRange)
	assert.True(t, s.IsOpen())
}
