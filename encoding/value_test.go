package encoding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/ebmlkit/errs"
)

func TestUintCodec(t *testing.T) {
	require.Equal(t, 1, UintSize(0))
	require.Equal(t, 1, UintSize(255))
	require.Equal(t, 2, UintSize(256))
	require.Equal(t, 8, UintSize(1<<63))

	require.Equal(t, []byte{0x01, 0x00}, AppendUint(nil, 256, 2))
	// Reserved width keeps leading zero bytes.
	require.Equal(t, []byte{0x00, 0x00, 0x05}, AppendUint(nil, 5, 3))

	require.Equal(t, uint64(0), DecodeUint(nil))
	require.Equal(t, uint64(256), DecodeUint([]byte{0x01, 0x00}))
	require.Equal(t, uint64(5), DecodeUint([]byte{0x00, 0x00, 0x05}))
}

func TestIntCodec(t *testing.T) {
	require.Equal(t, 1, IntSize(0))
	require.Equal(t, 1, IntSize(-128))
	require.Equal(t, 2, IntSize(128))
	require.Equal(t, 2, IntSize(-129))

	require.Equal(t, int64(0), DecodeInt(nil))
	require.Equal(t, int64(-1), DecodeInt([]byte{0xFF}))
	require.Equal(t, int64(-129), DecodeInt([]byte{0xFF, 0x7F}))
	require.Equal(t, []byte{0xFF, 0x7F}, AppendInt(nil, -129, 2))

	for _, v := range []int64{0, 1, -1, 127, -128, 1 << 40, -(1 << 40)} {
		size := IntSize(v)
		require.Equal(t, v, DecodeInt(AppendInt(nil, v, size)))
	}
}

func TestFloatCodec(t *testing.T) {
	v, err := DecodeFloat(nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, v)

	enc, err := AppendFloat(nil, 1.5, 4)
	require.NoError(t, err)
	require.Len(t, enc, 4)
	v, err = DecodeFloat(enc)
	require.NoError(t, err)
	require.Equal(t, 1.5, v)

	enc, err = AppendFloat(nil, 3.14159, 8)
	require.NoError(t, err)
	v, err = DecodeFloat(enc)
	require.NoError(t, err)
	require.Equal(t, 3.14159, v)

	_, err = DecodeFloat([]byte{1, 2, 3})
	require.ErrorIs(t, err, errs.ErrInvalidFloatSize)
	_, err = AppendFloat(nil, 1, 3)
	require.ErrorIs(t, err, errs.ErrInvalidFloatSize)
}

func TestStringCodec(t *testing.T) {
	// Trailing NUL padding is stripped on decode.
	require.Equal(t, "abc", DecodeString([]byte("abc\x00\x00")))
	require.Equal(t, "", DecodeString(nil))

	// Padding is reapplied only when a larger size is requested.
	require.Equal(t, []byte("abc\x00\x00"), AppendString(nil, "abc", 5))
	require.Equal(t, []byte("abc"), AppendString(nil, "abc", 3))
}

func TestUTF8Codec(t *testing.T) {
	s, err := DecodeUTF8([]byte("héllo\x00"))
	require.NoError(t, err)
	require.Equal(t, "héllo", s)

	_, err = DecodeUTF8([]byte{0xFF, 0xFE})
	require.ErrorIs(t, err, errs.ErrInvalidUTF8)
}

func TestDateCodec(t *testing.T) {
	// Zero-length dates mean the Matroska epoch.
	v, err := DecodeDate(nil)
	require.NoError(t, err)
	require.True(t, v.Equal(Epoch))

	when := time.Date(2020, 6, 1, 12, 30, 0, 500, time.UTC)
	enc := AppendDate(nil, when)
	require.Len(t, enc, 8)
	v, err = DecodeDate(enc)
	require.NoError(t, err)
	require.True(t, v.Equal(when))

	_, err = DecodeDate([]byte{1, 2, 3})
	require.ErrorIs(t, err, errs.ErrInvalidDateSize)
}

func TestHexBytes(t *testing.T) {
	require.Equal(t, "1A:45:DF:A3", HexBytes([]byte{0x1A, 0x45, 0xDF, 0xA3}))
	require.Equal(t, "", HexBytes(nil))
}
