package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphCmdHelp(t *testing.T) {
	t.Parallel()

	out, err := runCmd(t, "graph", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "ASCII")
	assert.Contains(t, out, "--width")
}

func TestGraphCmdFlags(t *testing.T) {
	t.Parallel()

	cmd := newGraphCmd()
	f := cmd.Flags().Lookup("width")
	require.NotNil(t, f)
	assert.Equal(t, "50", f.DefValue)
}

func TestRenderHistogram(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderHistogram(&buf, map[int]int{1: 2, 3: 4}, []float64{1, 0, 2, 5}, 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3, "gaps between buckets are shown")
	assert.True(t, strings.HasSuffix(lines[0], " ##"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], " 0 "), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], " ####"), lines[2])
	assert.Contains(t, lines[0], "<6s")
	assert.Contains(t, lines[2], "rest")
}

func TestRenderHistogramEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderHistogram(&buf, nil, nil, 10)
	assert.Equal(t, "no events\n", buf.String())
}

func TestBucketLabel(t *testing.T) {
	t.Parallel()

	edges := []float64{1, 0, 2, 5}
	tests := []struct {
		bucket int
		want   string
	}{
		{0, "<0s"},
		{1, "<6s"},
		{2, "<2m27s"},
		{3, "rest"},
		{-1, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketLabel(tt.bucket, edges), "bucket %d", tt.bucket)
	}
	assert.Equal(t, "rest", bucketLabel(0, []float64{1, 100}))
}
