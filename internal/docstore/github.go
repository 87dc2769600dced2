package docstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
)

// GitHubStore 以 GitHub contents API 作为文档存储，
// content 为 base64 编码的 JSON，sha 即为版本 token
type GitHubStore struct {
	cfg     *config.Config
	client  *http.Client
	baseURL string
}

func NewGitHubStore(cfg *config.Config) *GitHubStore {
	return &GitHubStore{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.GitHub.RequestTimeout) * time.Second,
		},
		baseURL: "https://api.github.com",
	}
}

// NewGitHubStoreWithBaseURL 供测试时指向本地的模拟服务器
func NewGitHubStoreWithBaseURL(cfg *config.Config, baseURL string) *GitHubStore {
	s := NewGitHubStore(cfg)
	s.baseURL = baseURL
	return s
}

type githubContentResponse struct {
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

type githubWriteRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

type githubWriteResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func (s *GitHubStore) contentsURL(name string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", s.baseURL, s.cfg.GitHub.Repo, name)
}

func (s *GitHubStore) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+s.cfg.GitHub.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}

func (s *GitHubStore) Read(ctx context.Context, name string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.contentsURL(name), nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("读取文档 %s 失败: %d %s", name, resp.StatusCode, string(body))
	}

	content := githubContentResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, err
	}

	decoded, err := base64.StdEncoding.DecodeString(content.Content)
	if err != nil {
		return nil, fmt.Errorf("文档 %s 的内容不是合法的 base64: %w", name, err)
	}

	return &Document{Content: decoded, Token: content.SHA}, nil
}

func (s *GitHubStore) Write(ctx context.Context, name string, content []byte, token string) (string, error) {
	payload := githubWriteRequest{
		Message: "Update " + name,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     token,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(name), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// 继续解析新的 sha
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// GitHub 对过期的 sha 返回 409 或 422
		return "", ErrConflict
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("写入文档 %s 失败: %d %s", name, resp.StatusCode, string(respBody))
	}

	out := githubWriteResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	return out.Content.SHA, nil
}
