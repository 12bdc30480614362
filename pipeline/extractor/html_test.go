package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipfeed/internal/shared/types"
	"ipfeed/pipeline/model"
)

func TestHTMLExtractor_Container(t *testing.T) {
	page := `<html><body>
		<h1>优选 IP</h1>
		<div id="ips"> 104.16.1.1, 104.16.1.2 ,not-an-ip,
		172.64.0.9 </div>
		<div id="ips">8.8.8.8</div>
	</body></html>`

	res := NewHTMLExtractor("div#ips", 0, true, "443").Extract("page", page)

	assert.Equal(t, []model.Record{
		{Address: "104.16.1.1", Port: "443", Source: "page"},
		{Address: "104.16.1.2", Port: "443", Source: "page"},
		{Address: "172.64.0.9", Port: "443", Source: "page"},
	}, res.Records)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "not-an-ip", res.Skipped[0].Token)
}

func TestHTMLExtractor_MissingContainer(t *testing.T) {
	res := NewHTMLExtractor("pre.list", 0, true, "443").Extract("page", "<html><body><p>nothing</p></body></html>")

	assert.Empty(t, res.Records)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "pre.list")
}

func TestHTMLExtractor_WholeBody(t *testing.T) {
	res := NewHTMLExtractor("", 2, false, "2053").Extract("raw", "1.1.1.1,1.0.0.1,\n1.1.1.2")

	assert.Equal(t, []model.Record{
		{Address: "1.1.1.1", Port: "2053", Source: "raw"},
		{Address: "1.0.0.1", Port: "2053", Source: "raw"},
	}, res.Records)
}

func TestHTMLExtractor_DiagnosticLineNumbers(t *testing.T) {
	body := "1.1.1.1,1.0.0.1\r\n1.1.1.2\n\n9.9.9.9:http,1.1.1.3,bad:70000"

	res := NewHTMLExtractor("", 0, false, "443").Extract("raw", body)

	assert.Len(t, res.Records, 4)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "9.9.9.9:http", res.Skipped[0].Token)
	assert.Equal(t, 4, res.Skipped[0].Line)
	assert.Equal(t, "bad:70000", res.Skipped[1].Token)
	assert.Equal(t, 4, res.Skipped[1].Line)
}

func TestFor(t *testing.T) {
	_, ok := For(types.SourceConf{Kind: "csv"}).(*CSVExtractor)
	assert.True(t, ok)

	h, ok := For(types.SourceConf{Kind: "html", Selector: "#x"}).(*HTMLExtractor)
	require.True(t, ok)
	assert.Equal(t, "443", h.defaultPort)
	assert.Equal(t, "#x", h.selector)
}
