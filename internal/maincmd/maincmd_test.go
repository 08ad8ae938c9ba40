package maincmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/wisp/internal/maincmd"
)

func stdio(out, errw *bytes.Buffer) mainer.Stdio {
	return mainer.Stdio{Stdin: strings.NewReader(""), Stdout: out, Stderr: errw}
}

func writeSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.wisp")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestMissingArgumentExitsUsage(t *testing.T) {
	var out, errw bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp"}, stdio(&out, &errw))
	assert.EqualValues(t, 64, code)
}

func TestUnreadableFileExitsIOErr(t *testing.T) {
	var out, errw bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", filepath.Join(t.TempDir(), "nope.wisp")}, stdio(&out, &errw))
	assert.EqualValues(t, 74, code)
}

func TestCompileFailureExitsUsage(t *testing.T) {
	path := writeSource(t, `123;`)
	var out, errw bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", path}, stdio(&out, &errw))
	assert.EqualValues(t, 64, code)
}

func TestRuntimeFailureExitsSoftware(t *testing.T) {
	path := writeSource(t, `print nope;`)
	var out, errw bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", path}, stdio(&out, &errw))
	assert.EqualValues(t, 70, code)
}

func TestSuccessfulRunPrintsOutputAndExitsZero(t *testing.T) {
	path := writeSource(t, `print 1 + 2 * 3;`)
	var out, errw bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", path}, stdio(&out, &errw))
	assert.EqualValues(t, 0, code)
	assert.Equal(t, "7", out.String())
}

func TestHelpPrintsUsageAndExitsZero(t *testing.T) {
	var out, errw bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", "--help"}, stdio(&out, &errw))
	assert.EqualValues(t, 0, code)
	assert.Contains(t, out.String(), "usage:")
}

func TestTraceEmitsDisassemblyToStderr(t *testing.T) {
	path := writeSource(t, `print 1;`)
	var out, errw bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", "--trace", path}, stdio(&out, &errw))
	assert.EqualValues(t, 0, code)
	assert.Contains(t, errw.String(), "CHUNK")
}
