package blockio

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/garethgeorge/blockranges/internal/rangeset"
	"github.com/minio/sha256-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

const testBlockSize = 16

// testImage returns a device image where every byte of block i equals i.
func testImage(blocks int) []byte {
	img := make([]byte, blocks*testBlockSize)
	for i := range img {
		img[i] = byte(i / testBlockSize)
	}
	return img
}

func expectedBytes(rs rangeset.RangeSet) []byte {
	var out []byte
	for r := range rs.All() {
		for b := r.Start; b < r.End; b++ {
			out = append(out, bytes.Repeat([]byte{byte(b)}, testBlockSize)...)
		}
	}
	return out
}

func TestReader(t *testing.T) {
	t.Parallel()

	img := bytes.NewReader(testImage(32))
	testCases := []string{
		"2,1,10",
		"4,15,20,1,3",
		"4,1,5,3,6",
	}
	for _, text := range testCases {
		t.Run(text, func(t *testing.T) {
			rs := rangeset.MustParse(text)
			got, err := io.ReadAll(NewReader(img, rs, WithBlockSize(testBlockSize)))
			require.NoError(t, err)
			assert.Equal(t, expectedBytes(rs), got)
			assert.Len(t, got, int(rs.Blocks())*testBlockSize)
		})
	}
}

func TestReader_SmallBuffer(t *testing.T) {
	t.Parallel()

	rs := rangeset.MustParse("4,3,5,0,2")
	reader := NewReader(bytes.NewReader(testImage(8)), rs, WithBlockSize(testBlockSize))
	var got []byte
	buf := make([]byte, 5)
	for {
		n, err := reader.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, expectedBytes(rs), got)
}

func TestReader_ShortDevice(t *testing.T) {
	t.Parallel()

	rs := rangeset.MustParse("2,2,6")
	_, err := io.ReadAll(NewReader(bytes.NewReader(testImage(4)), rs, WithBlockSize(testBlockSize)))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadBlock(t *testing.T) {
	t.Parallel()

	img := bytes.NewReader(testImage(32))
	rs := rangeset.MustParse("4,15,20,1,3")
	buf := make([]byte, testBlockSize)

	block, err := ReadBlock(img, rs, 5, buf, WithBlockSize(testBlockSize))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block)
	assert.Equal(t, bytes.Repeat([]byte{1}, testBlockSize), buf)

	_, err = ReadBlock(img, rs, rs.Blocks(), buf, WithBlockSize(testBlockSize))
	assert.ErrorIs(t, err, rangeset.ErrOutOfRange)

	_, err = ReadBlock(img, rs, 0, buf[:3], WithBlockSize(testBlockSize))
	assert.Error(t, err)

	_, err = ReadBlock(bytes.NewReader(testImage(4)), rs, 0, buf, WithBlockSize(testBlockSize))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestHash(t *testing.T) {
	t.Parallel()

	img := bytes.NewReader(testImage(32))
	rs := rangeset.MustParse("4,15,20,1,3")
	data := expectedBytes(rs)

	shaSum := sha256.Sum256(data)
	blakeSum := blake3.Sum256(data)
	xxh := xxhash.New()
	_, _ = xxh.Write(data)

	testCases := []struct {
		algo     Algorithm
		expected []byte
	}{
		{SHA256, shaSum[:]},
		{BLAKE3, blakeSum[:]},
		{XXH64, xxh.Sum(nil)},
	}
	for _, tc := range testCases {
		t.Run(tc.algo.String(), func(t *testing.T) {
			sum, err := Hash(img, rs, tc.algo, WithBlockSize(testBlockSize))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sum)

			parsed, err := ParseAlgorithm(tc.algo.String())
			require.NoError(t, err)
			assert.Equal(t, tc.algo, parsed)
		})
	}

	_, err := ParseAlgorithm("md5")
	assert.Error(t, err)
	_, err = Hash(img, rs, Algorithm(42))
	assert.Error(t, err)
}

type recordingTracker struct {
	mu       sync.Mutex
	total    int64
	done     int64
	err      error
	finished bool
}

func (r *recordingTracker) SetMessage(msg string) {}

func (r *recordingTracker) SetTotal(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingTracker) SetDone(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = max(r.done, n)
}

func (r *recordingTracker) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recordingTracker) MarkFinished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
}

func TestHashAll(t *testing.T) {
	t.Parallel()

	img := bytes.NewReader(testImage(64))
	var sets []rangeset.RangeSet
	for _, text := range []string{"2,1,10", "4,15,20,1,3", "2,40,64", "2,0,1", "4,5,6,5,6"} {
		sets = append(sets, rangeset.MustParse(text))
	}

	prog := &recordingTracker{}
	sums, err := HashAll(context.Background(), img, sets, SHA256, prog, WithBlockSize(testBlockSize), WithParallelism(2))
	require.NoError(t, err)
	require.Len(t, sums, len(sets))
	for i, rs := range sets {
		want := sha256.Sum256(expectedBytes(rs))
		assert.Equal(t, want[:], sums[i], "set %d", i)
	}
	assert.Equal(t, int64(len(sets)), prog.total)
	assert.Equal(t, int64(len(sets)), prog.done)
	assert.True(t, prog.finished)
	assert.NoError(t, prog.err)
}

func TestHashAll_Errors(t *testing.T) {
	t.Parallel()

	img := bytes.NewReader(testImage(8))
	sets := []rangeset.RangeSet{rangeset.MustParse("2,0,4"), rangeset.MustParse("2,4,100")}

	prog := &recordingTracker{}
	_, err := HashAll(context.Background(), img, sets, XXH64, prog, WithBlockSize(testBlockSize))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Error(t, prog.err)
	assert.False(t, prog.finished)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = HashAll(ctx, img, sets[:1], XXH64, nil, WithBlockSize(testBlockSize))
	assert.ErrorIs(t, err, context.Canceled)
}
