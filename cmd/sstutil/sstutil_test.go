package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencoff/go-sstable"
	"github.com/opencoff/go-sstable/internal/sstconfig"
	"github.com/opencoff/go-sstable/internal/sstfile"
)

func readKeysOf(t *testing.T, path string) []string {
	t.Helper()
	tf, err := sstfile.Open(path)
	require.NoError(t, err)
	defer tf.Close()

	r := sstable.NewReader[sstable.VoidValue](newSourceFromReader(tf), sstable.VoidCodec{})
	var keys []string
	for {
		ok, err := r.Advance()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, string(r.Key()))
	}
	return keys
}

func TestBuildThenVerify(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(writeFile(in, "b 2\na 1\nc 3\n"))

	out := filepath.Join(dir, "out.sst")
	require.NoError(doBuild(out, []string{in}, "void"))
	require.NoError(doVerify([]string{out}))

	require.Equal([]string{"a", "b", "c"}, readKeysOf(t, out))
}

func TestBuildMergeRoundTrip(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	in1 := filepath.Join(dir, "in1.txt")
	in2 := filepath.Join(dir, "in2.txt")
	require.NoError(writeFile(in1, "a 1\nc 3\n"))
	require.NoError(writeFile(in2, "b 2\nc 99\nd 4\n"))

	t1 := filepath.Join(dir, "t1.sst")
	t2 := filepath.Join(dir, "t2.sst")
	require.NoError(doBuild(t1, []string{in1}, "void"))
	require.NoError(doBuild(t2, []string{in2}, "void"))

	merged := filepath.Join(dir, "merged.sst")
	cfg := sstconfig.Default()
	cfg.ValueCodec = "void"
	cfg.MaxOpenTables = 64
	require.NoError(doMerge(merged, []string{t1, t2}, cfg))

	require.Equal([]string{"a", "b", "c", "d"}, readKeysOf(t, merged))
}

func TestMergeBatchesWhenExceedingMaxOpenTables(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	var paths []string
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		f := filepath.Join(dir, k+".txt")
		require.NoError(writeFile(f, k+" "+string(rune('0'+i))+"\n"))
		p := filepath.Join(dir, k+".sst")
		require.NoError(doBuild(p, []string{f}, "void"))
		paths = append(paths, p)
	}

	merged := filepath.Join(dir, "merged.sst")
	cfg := sstconfig.Default()
	cfg.ValueCodec = "void"
	cfg.MaxOpenTables = 2
	require.NoError(doMerge(merged, paths, cfg))

	require.Equal([]string{"a", "b", "c", "d", "e"}, readKeysOf(t, merged))
}
