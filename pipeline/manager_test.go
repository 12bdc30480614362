package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipfeed/internal/shared/config"
	"ipfeed/internal/shared/errors"
	"ipfeed/internal/shared/types"
	"ipfeed/pipeline/publisher"
)

func newSourceServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testConfig returns a config that publishes into a temp directory with
// geolocation disabled.
func testConfig(t *testing.T, sources ...types.SourceConf) *types.Config {
	t.Helper()
	cfg := config.Default()
	cfg.AnnotateConf.Geo = "none"
	cfg.PublishConf.Target = "file"
	cfg.PublishConf.LocalDir = t.TempDir()
	cfg.FetchConf.TimeoutSeconds = 5
	cfg.Sources = sources
	return cfg
}

func csvSource(name, url string) types.SourceConf {
	return types.SourceConf{Name: name, Kind: "csv", URL: url, Limit: 10, DefaultPort: "443"}
}

func runPipeline(t *testing.T, cfg *types.Config, dryRun bool, out *bytes.Buffer) (*Report, error) {
	t.Helper()
	c, err := BuildComponents(cfg, dryRun)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return NewManager(cfg, c, out).Run(context.Background())
}

func TestManager_EndToEndCSVToFile(t *testing.T) {
	srv := newSourceServer(t, map[string]string{"/bestcf.csv": "1.2.3.4:8443,x\n5.6.7.8,y"})
	cfg := testConfig(t, csvSource("bestcf", srv.URL+"/bestcf.csv"))

	report, err := runPipeline(t, cfg, false, nil)
	require.NoError(t, err)

	want := "1.2.3.4:8443#可变\n5.6.7.8:443#可变"
	assert.Equal(t, want, report.Content)
	assert.Equal(t, 1, report.Sources)
	assert.NotEmpty(t, report.RunID)
	require.NotNil(t, report.Publish)
	assert.Equal(t, publisher.ActionCreated, report.Publish.Action)
	assert.Equal(t, publisher.BlobSHA([]byte(want)), report.Publish.Version)

	data, err := os.ReadFile(filepath.Join(cfg.PublishConf.LocalDir, cfg.PublishConf.Path))
	require.NoError(t, err)
	assert.Equal(t, want, string(data))

	// 第二次运行走更新路径。
	report, err = runPipeline(t, cfg, false, nil)
	require.NoError(t, err)
	assert.Equal(t, publisher.ActionUpdated, report.Publish.Action)
	assert.Equal(t, report.Publish.PreviousVersion, report.Publish.Version)
}

func TestManager_FailingSourceIsSkipped(t *testing.T) {
	srv := newSourceServer(t, map[string]string{"/good.csv": "9.9.9.9:2053\nbogus:port"})
	cfg := testConfig(t,
		csvSource("broken", srv.URL+"/missing.csv"),
		csvSource("good", srv.URL+"/good.csv"),
	)

	report, err := runPipeline(t, cfg, false, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"9.9.9.9:2053#可变"}, report.Lines)
	assert.Equal(t, 1, report.Sources)

	stages := map[string]int{}
	for _, d := range report.Diagnostics {
		stages[d.Stage]++
	}
	assert.Equal(t, 1, stages["fetch"])
	assert.Equal(t, 1, stages["extract"])
}

func TestManager_DedupeAndTotalLimit(t *testing.T) {
	srv := newSourceServer(t, map[string]string{
		"/a.csv": "1.1.1.1\n2.2.2.2\n3.3.3.3",
		"/b.csv": "2.2.2.2\n4.4.4.4",
	})
	cfg := testConfig(t, csvSource("a", srv.URL+"/a.csv"), csvSource("b", srv.URL+"/b.csv"))
	cfg.AnnotateConf.Enabled = false
	cfg.CommonConf.Dedupe = true
	cfg.CommonConf.TotalLimit = 3

	var out bytes.Buffer
	report, err := runPipeline(t, cfg, true, &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}, report.Lines)
	assert.Equal(t, "1.1.1.1\n2.2.2.2\n3.3.3.3\n", out.String())
	assert.Nil(t, report.Publish)

	_, err = os.Stat(filepath.Join(cfg.PublishConf.LocalDir, cfg.PublishConf.Path))
	assert.True(t, os.IsNotExist(err), "dry run must not publish")
}

func TestManager_SkipEmpty(t *testing.T) {
	srv := newSourceServer(t, map[string]string{"/empty.csv": "\n\n"})
	cfg := testConfig(t, csvSource("empty", srv.URL+"/empty.csv"))
	cfg.CommonConf.SkipEmpty = true

	report, err := runPipeline(t, cfg, false, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Nil(t, report.Publish)

	_, err = os.Stat(filepath.Join(cfg.PublishConf.LocalDir, cfg.PublishConf.Path))
	assert.True(t, os.IsNotExist(err))
}

func TestManager_EmptyListIsPublishedByDefault(t *testing.T) {
	srv := newSourceServer(t, map[string]string{"/empty.csv": ""})
	cfg := testConfig(t, csvSource("empty", srv.URL+"/empty.csv"))

	report, err := runPipeline(t, cfg, false, nil)
	require.NoError(t, err)
	require.NotNil(t, report.Publish)
	assert.Equal(t, publisher.ActionCreated, report.Publish.Action)
}

func TestManager_UploadFailureIsReturned(t *testing.T) {
	srv := newSourceServer(t, map[string]string{"/bestcf.csv": "1.2.3.4"})
	cfg := testConfig(t, csvSource("bestcf", srv.URL+"/bestcf.csv"))

	// 让发布路径指向一个已存在的目录，写入必然失败。
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.PublishConf.LocalDir, cfg.PublishConf.Path), 0o755))

	report, err := runPipeline(t, cfg, false, nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUpload))
	assert.Equal(t, []string{"1.2.3.4:443#可变"}, report.Lines)
	assert.Nil(t, report.Publish)
}

func TestManager_StaticLabel(t *testing.T) {
	srv := newSourceServer(t, map[string]string{"/bestcf.csv": "1.2.3.4:2096"})
	cfg := testConfig(t, csvSource("bestcf", srv.URL+"/bestcf.csv"))
	cfg.AnnotateConf.Geo = "ipinfo"
	cfg.AnnotateConf.IPInfoURL = "http://127.0.0.1:1/"
	cfg.AnnotateConf.Label = "CF"

	var out bytes.Buffer
	report, err := runPipeline(t, cfg, true, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.3.4:2096#可CF变"}, report.Lines)
}

func TestManager_CancelledContext(t *testing.T) {
	srv := newSourceServer(t, map[string]string{"/bestcf.csv": "1.2.3.4"})
	cfg := testConfig(t, csvSource("bestcf", srv.URL+"/bestcf.csv"))

	c, err := BuildComponents(cfg, true)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewManager(cfg, c, &bytes.Buffer{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
