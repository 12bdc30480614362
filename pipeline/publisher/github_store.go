package publisher

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
)

// contentsService 是 GitHubStore 用到的 go-github RepositoriesService 子集。
type contentsService interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
}

// GitHubStore 通过 GitHub contents API 读写仓库中的单个文件。内容由客户端做 Base64 编码。
type GitHubStore struct {
	contents contentsService
	owner    string
	repo     string
	branch   string
}

// NewGitHubStore 创建一个使用 token 认证的 GitHubStore。repo 的格式为 "owner/name"。
func NewGitHubStore(token, repo, branch string) (*GitHubStore, error) {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return NewGitHubStoreWithClient(client, repo, branch)
}

func NewGitHubStoreWithClient(client *github.Client, repo, branch string) (*GitHubStore, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("repo must be owner/name, got %q", repo)
	}
	return &GitHubStore{
		contents: client.Repositories,
		owner:    owner,
		repo:     name,
		branch:   branch,
	}, nil
}

func (s *GitHubStore) Name() string {
	return "github:" + s.owner + "/" + s.repo
}

func (s *GitHubStore) Get(ctx context.Context, path string) (string, bool, error) {
	var opts *github.RepositoryContentGetOptions
	if s.branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.branch}
	}

	file, _, resp, err := s.contents.GetContents(ctx, s.owner, s.repo, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	if file == nil {
		return "", false, fmt.Errorf("%s is a directory", path)
	}
	return file.GetSHA(), true, nil
}

func (s *GitHubStore) Create(ctx context.Context, path, content, message string) (string, error) {
	res, _, err := s.contents.CreateFile(ctx, s.owner, s.repo, path, s.fileOptions(content, message, ""))
	if err != nil {
		return "", err
	}
	return contentSHA(res), nil
}

func (s *GitHubStore) Update(ctx context.Context, path, content, message, version string) (string, error) {
	res, _, err := s.contents.UpdateFile(ctx, s.owner, s.repo, path, s.fileOptions(content, message, version))
	if err != nil {
		return "", err
	}
	return contentSHA(res), nil
}

func (s *GitHubStore) fileOptions(content, message, sha string) *github.RepositoryContentFileOptions {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
	}
	if sha != "" {
		opts.SHA = github.String(sha)
	}
	if s.branch != "" {
		opts.Branch = github.String(s.branch)
	}
	return opts
}

func contentSHA(res *github.RepositoryContentResponse) string {
	if res == nil || res.Content == nil {
		return ""
	}
	return res.Content.GetSHA()
}
