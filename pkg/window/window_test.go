package window

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physmem-tools/physmem-go/pkg/session"
	"github.com/physmem-tools/physmem-go/pkg/simmem"
)

type readerFunc func(ctx context.Context, addr uint64) (uint8, error)

func (f readerFunc) ReadByteAt(ctx context.Context, addr uint64) (uint8, error) {
	return f(ctx, addr)
}

// countingReader returns the low address byte and fails at the given
// addresses.
type countingReader struct {
	calls []uint64
	fail  map[uint64]error
}

func (r *countingReader) ReadByteAt(_ context.Context, addr uint64) (uint8, error) {
	r.calls = append(r.calls, addr)
	if err := r.fail[addr]; err != nil {
		return 0, err
	}
	return uint8(addr), nil
}

func ignoreReadAt() cmp.Option {
	return cmpopts.IgnoreFields(Window{}, "ReadAt", "Err")
}

func TestReadWindowThroughSession(t *testing.T) {
	mem := simmem.MustNew(simmem.Region{Start: 0xFF00D400, Size: 0x100, Pattern: simmem.PatternAddress})
	s := session.New(mem, session.Config{})
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	win := ReadWindow(context.Background(), s, 0xFF00D400, DefaultLength)

	want := Window{
		Base:  0xFF00D400,
		Data:  make([]byte, 256),
		Valid: make([]bool, 256),
	}
	for i := range want.Data {
		want.Data[i] = byte(i)
		want.Valid[i] = true
	}

	if diff := cmp.Diff(want, win, ignoreReadAt()); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, win.Err)
	assert.True(t, win.Complete())
	assert.Equal(t, uint64(0xFF00D4FF), win.Address(255))
	assert.True(t, win.IsZero(0))
	assert.False(t, win.IsZero(1))
}

func TestReadWindowSentinelFill(t *testing.T) {
	r := &countingReader{fail: map[uint64]error{
		0x100A: session.ErrAddressOutOfRange,
	}}

	win := ReadWindow(context.Background(), r, 0x1000, 16)

	assert.Len(t, r.calls, 16)
	for i := 0; i < 10; i++ {
		assert.True(t, win.Valid[i], "offset %d", i)
		assert.Equal(t, byte(i), win.Data[i])
	}
	assert.False(t, win.Valid[10])
	assert.Equal(t, byte(0), win.Data[10])
	assert.False(t, win.IsZero(10))
	for i := 11; i < 16; i++ {
		assert.True(t, win.Valid[i], "offset %d", i)
	}

	assert.Equal(t, 1, win.Failures)
	assert.ErrorIs(t, win.Err, session.ErrAddressOutOfRange)
	assert.False(t, win.Complete())
}

func TestReadWindowKeepsFirstError(t *testing.T) {
	r := &countingReader{fail: map[uint64]error{
		2: session.ErrIO,
		5: session.ErrAddressOutOfRange,
	}}

	win := ReadWindow(context.Background(), r, 0, 8)
	assert.Equal(t, 2, win.Failures)
	assert.ErrorIs(t, win.Err, session.ErrIO)
}

func TestReadWindowStopsOnFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"PermissionDenied", session.ErrPermissionDenied},
		{"DeviceUnavailable", session.ErrDeviceUnavailable},
		{"NotConnected", session.ErrNotConnected},
		{"Timeout", session.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &countingReader{fail: map[uint64]error{10: tt.err}}

			win := ReadWindow(context.Background(), r, 0, 32)

			assert.Len(t, r.calls, 11)
			assert.Equal(t, 22, win.Failures)
			assert.ErrorIs(t, win.Err, tt.err)
			for i := 0; i < 10; i++ {
				assert.True(t, win.Valid[i])
			}
			for i := 10; i < 32; i++ {
				assert.False(t, win.Valid[i])
			}
		})
	}
}

func TestReadWindowWedgedDevice(t *testing.T) {
	mem := simmem.MustNew(simmem.Region{Start: 0, Size: 0x100})
	mem.SetLatency(200 * time.Millisecond)

	s := session.New(mem, session.Config{OpTimeout: 20 * time.Millisecond})
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	start := time.Now()
	win := ReadWindow(context.Background(), s, 0, 256)

	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, 256, win.Failures)
	assert.ErrorIs(t, win.Err, session.ErrTimeout)
}

func TestReadWindowClosedSession(t *testing.T) {
	s := session.New(simmem.MustNew(simmem.Region{Start: 0, Size: 0x100}), session.Config{})

	win := ReadWindow(context.Background(), s, 0, 16)
	assert.Equal(t, 16, win.Failures)
	assert.ErrorIs(t, win.Err, session.ErrNotConnected)
}

func TestReadWindowCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := readerFunc(func(_ context.Context, addr uint64) (uint8, error) {
		calls++
		if addr == 3 {
			cancel()
		}
		return 1, nil
	})

	win := ReadWindow(ctx, r, 0, 8)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, win.Failures)
	assert.ErrorIs(t, win.Err, context.Canceled)
}

func TestReadWindowTopOfAddressSpace(t *testing.T) {
	r := &countingReader{}
	base := ^uint64(0) - 3

	win := ReadWindow(context.Background(), r, base, 8)

	assert.Len(t, r.calls, 4)
	assert.Equal(t, ^uint64(0), r.calls[3])
	assert.Equal(t, 4, win.Failures)
	assert.ErrorIs(t, win.Err, session.ErrAddressOutOfRange)
	for i := 4; i < 8; i++ {
		assert.False(t, win.Valid[i])
	}
}

func TestReadWindowEmpty(t *testing.T) {
	win := ReadWindow(context.Background(), &countingReader{}, 0, 0)
	assert.Equal(t, 0, win.Len())
	assert.True(t, win.Complete())

	win = ReadWindow(context.Background(), &countingReader{}, 0, -1)
	assert.Equal(t, 0, win.Len())
}

func TestEqualAndClone(t *testing.T) {
	a := ReadWindow(context.Background(), &countingReader{}, 0x10, 4)
	b := ReadWindow(context.Background(), &countingReader{}, 0x10, 4)
	assert.True(t, a.Equal(b))

	c := a.Clone()
	c.Data[0] = 0xFF
	assert.False(t, a.Equal(c))
	assert.Equal(t, byte(0x10), a.Data[0])

	d := ReadWindow(context.Background(), &countingReader{fail: map[uint64]error{0x11: errors.New("x")}}, 0x10, 4)
	assert.False(t, a.Equal(d))
}

func TestDump(t *testing.T) {
	win := Window{
		Base:  0xFF00D400,
		Data:  []byte{0x00, 0x41, 0x7E, 0x7F, 0x00, 0x20, 0xFF, 0x62, 0, 0, 0, 0, 0, 0, 0, 0, 0x48, 0x69},
		Valid: make([]bool, 18),
	}
	for i := range win.Valid {
		win.Valid[i] = true
	}
	win.Valid[4] = false

	var sb strings.Builder
	require.NoError(t, Dump(&sb, win, map[int]Mark{2: MarkPending, 16: MarkUnconfirmed}))

	lines := strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"FF00D400  00 41 7E*7F ?? 20 FF 62 00 00 00 00 00 00 00 00  |.A~.  .b........|",
		lines[0])
	assert.Equal(t,
		"FF00D410  48*69                                            |Hi|",
		lines[1])
}

func TestDumpDimZerosAndWideAddress(t *testing.T) {
	win := Window{
		Base:  0x1_0000_0000,
		Data:  []byte{0x00, 0x01},
		Valid: []bool{true, true},
	}

	f := &Formatter{BytesPerRow: 2, DimZeros: true}
	var sb strings.Builder
	require.NoError(t, f.Dump(&sb, win, nil))
	assert.Equal(t, "0000000100000000  .. 01  |..|\n", sb.String())
}

func TestPrintable(t *testing.T) {
	assert.Equal(t, byte('.'), Printable(0x1F))
	assert.Equal(t, byte(' '), Printable(0x20))
	assert.Equal(t, byte('~'), Printable(0x7E))
	assert.Equal(t, byte('.'), Printable(0x7F))
	assert.Equal(t, byte('.'), Printable(0xFF))
}

func TestMarkString(t *testing.T) {
	assert.Equal(t, "PENDING", MarkPending.String())
	assert.Equal(t, "UNCONFIRMED", MarkUnconfirmed.String())
	assert.Equal(t, "NONE", MarkNone.String())
}
