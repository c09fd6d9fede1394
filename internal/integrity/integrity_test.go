package integrity

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substantialcattle5/redup/internal/digest"
)

func TestSame(t *testing.T) {
	fn := digest.MustNew("sha256")

	same, err := Same(fn, strings.NewReader("payload"), strings.NewReader("payload"))
	require.NoError(t, err)
	assert.True(t, same)

	same, err = Same(fn, strings.NewReader("payload"), strings.NewReader("payload\x00"))
	require.NoError(t, err)
	assert.False(t, same)

	same, err = Same(fn, bytes.NewReader(nil), strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, same)
}

func TestSameReadError(t *testing.T) {
	fn := digest.MustNew("sha256")
	boom := errors.New("boom")
	_, err := Same(fn, strings.NewReader("x"), iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
}

func TestWholeDigestIsNotPerChunk(t *testing.T) {
	fn := digest.MustNew("blake3")
	data := bytes.Repeat([]byte("abcd"), 1000)
	d, err := WholeDigest(fn, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, fn.Sum(data), d)
}

func TestSameFiles(t *testing.T) {
	fn := digest.MustNew("md5")
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	require.NoError(t, os.WriteFile(a, []byte("identical"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("identical"), 0o644))
	require.NoError(t, os.WriteFile(c, []byte("different"), 0o644))

	same, err := SameFiles(fn, a, b)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = SameFiles(fn, a, c)
	require.NoError(t, err)
	assert.False(t, same)

	_, err = SameFiles(fn, a, filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "failed to open")
}
