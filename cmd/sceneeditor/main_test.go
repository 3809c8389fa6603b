package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OCAP2/sceneeditor/internal/config"
	"github.com/OCAP2/sceneeditor/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := `{
		"logLevel": "debug",
		"logsDir": "` + filepath.ToSlash(filepath.Join(dir, "logs")) + `",
		"storage": {"type": "archive", "archive": {"outputDir": "` + filepath.ToSlash(filepath.Join(dir, "scenes")) + `"}},
		"basemap": {"enabled": false}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(body), 0644))
	return dir
}

func TestRun_Script(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := writeConfig(t)

	script := strings.Join([]string{
		`new "Op Thunder" 0 3 500 60`,
		`create ground 500010,0 callsign=Alpha`,
		`info`,
		`bogus`,
		`set`,
		`quit`,
		`info`,
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, run(dir, strings.NewReader(script), &out))

	got := out.String()
	assert.Contains(t, got, "Type help for commands")
	assert.Contains(t, got, `scene "Op Thunder"`)
	assert.Contains(t, got, `created Ground "Alpha"`)
	assert.Regexp(t, `Ground\s+1\n`, got)
	assert.Contains(t, got, `unknown command "bogus"`)
	assert.Contains(t, got, "error: usage: set <key> <value...>")
	assert.Equal(t, 1, strings.Count(got, "scene     Op Thunder"), "nothing runs after quit")

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRun_SaveBeforeQuitCompletes(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := writeConfig(t)

	script := strings.Join([]string{
		`new "Op Thunder" 0 3 500 60`,
		`create ground 500010,0`,
		`save`,
		`quit`,
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, run(dir, strings.NewReader(script), &out))
	assert.Contains(t, out.String(), `saved "Op Thunder"`)

	archives, err := filepath.Glob(filepath.Join(dir, "scenes", "*.zip"))
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestRun_EOF(t *testing.T) {
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	require.NoError(t, run(writeConfig(t), strings.NewReader(""), &out))
	assert.Contains(t, out.String(), prompt)
}

func TestDescribeError(t *testing.T) {
	assert.Contains(t, describeError(core.ErrNoScene), "start one with new")
	assert.Contains(t, describeError(core.ErrNoSelection), "select an entity first")
	assert.Equal(t, core.ErrNotFound.Error(), describeError(core.ErrNotFound))
}
