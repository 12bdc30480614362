package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ipfeed.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRootCmd_DryRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("1.2.3.4:8443,x\n5.6.7.8,y\n"))
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, fmt.Sprintf(`
[log]
level = error

[annotate]
geo = none

[source.bestcf]
kind = csv
url = %s/bestcf.csv
`, srv.URL))

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "--env-file", "", "--dry-run"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "1.2.3.4:8443#可变\n5.6.7.8:443#可变\n", out.String())
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	cfgPath := writeConfig(t, "[publish]\ntarget = ftp\n")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--env-file", "", "--dry-run"})
	cmd.SetOut(&bytes.Buffer{})

	assert.Error(t, cmd.Execute())
}

func TestRootCmd_MissingExplicitConfig(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.ini"), "--dry-run"})
	cmd.SetOut(&bytes.Buffer{})

	assert.Error(t, cmd.Execute())
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "ipfeed "+getVersion())
}
