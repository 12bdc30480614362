package annotator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ipfeed/internal/shared/errors"
)

// ipInfoResponse defines the part of the ipinfo.io JSON response we use.
type ipInfoResponse struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
}

// IPInfo 通过 ipinfo.io 的 JSON 接口查询国家代码。
type IPInfo struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewIPInfo(baseURL, token string, timeout time.Duration) *IPInfo {
	if baseURL == "" {
		baseURL = "https://ipinfo.io/"
	}
	return &IPInfo{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *IPInfo) Name() string {
	return "ipinfo"
}

// Country 返回 country 字段；响应中没有该字段时返回 UnknownLabel。
func (g *IPInfo) Country(ctx context.Context, ip string) (string, error) {
	apiURL := g.baseURL + url.PathEscape(ip) + "/json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", errors.New(errors.KindLookup, "failed to create request").AtSource(ip).Base(err)
	}
	req.Header.Set("Accept", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errors.New(errors.KindLookup, "geo API request failed").AtSource(ip).Base(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.KindLookup, "geo API returned status ", resp.StatusCode).AtSource(ip)
	}

	var apiResp ipInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", errors.New(errors.KindLookup, "failed to decode geo API response").AtSource(ip).Base(err)
	}
	if apiResp.Country == "" {
		return UnknownLabel, nil
	}
	return apiResp.Country, nil
}
