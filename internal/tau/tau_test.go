package tau

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := Header + "\n" +
		"16   41\n" +
		"\n" +
		"# comment\n" +
		"32\t160 extra\n" +
		"64\n" +
		"x 12\n"
	table, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, Table{16: 41, 32: 160}, table)
}

func TestCutoff(t *testing.T) {
	table := Table{16: 41}
	got, err := table.Cutoff(16, 20)
	require.NoError(t, err)
	require.Equal(t, 820, got)

	_, err = table.Cutoff(8, 20)
	require.ErrorIs(t, err, ErrUnknownSize)

	_, err = table.Cutoff(16, -1)
	require.ErrorIs(t, err, ErrInvalidFactor)
}

func TestWriteToSortsRows(t *testing.T) {
	var buf bytes.Buffer
	n, err := Table{128: 900, 8: 12, 32: 160}.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, buf.Len(), n)
	require.Equal(t, "# L    tau_exp\n8    12\n32   160\n128  900\n", buf.String())
}

func TestSaveMergesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tau_exp_results.txt")

	empty, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, empty)

	require.NoError(t, Table{16: 41, 32: 150}.Save(path))
	require.NoError(t, Table{32: 160, 64: 600}.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Table{16: 41, 32: 160, 64: 600}, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), Header+"\n"))
}
