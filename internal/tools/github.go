package tools

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/mohammad-safakhou/taskpilot/config"
)

// GitHubSearch implements repository search against the GitHub search API.
type GitHubSearch struct {
	cfg    config.GitHubConfig
	http   *HTTPClient
	logger *log.Logger
}

func NewGitHubSearch(cfg config.GitHubConfig, httpc *HTTPClient, logger *log.Logger) *GitHubSearch {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.github.com/search/repositories"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	return &GitHubSearch{cfg: cfg, http: httpc, logger: logger}
}

func (g *GitHubSearch) Name() string { return "github.search_repos" }

func (g *GitHubSearch) Description() string {
	return "Searches GitHub repositories by query, sorted by stars."
}

func (g *GitHubSearch) Parameters() map[string]string {
	return map[string]string{
		"query": "search query string (required)",
		"limit": "maximum number of repositories to return (optional)",
	}
}

func (g *GitHubSearch) Validate(input map[string]interface{}) error {
	q, ok := input["query"]
	if !ok {
		return fmt.Errorf("missing required parameter 'query'")
	}
	qs, ok := q.(string)
	if !ok {
		return fmt.Errorf("parameter 'query' must be a string, got %T", q)
	}
	if qs == "" {
		return fmt.Errorf("parameter 'query' cannot be empty")
	}
	if l, ok := input["limit"]; ok {
		switch l.(type) {
		case float64, int:
		default:
			return fmt.Errorf("parameter 'limit' must be a number, got %T", l)
		}
	}
	return nil
}

// Invoke searches repositories. Transport failures surface as the
// error-payload array shape `[{"error": ...}]`, never as a Go error.
func (g *GitHubSearch) Invoke(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	query, _ := input["query"].(string)
	limit := g.cfg.MaxResults
	switch l := input["limit"].(type) {
	case float64:
		if int(l) > 0 {
			limit = int(l)
		}
	case int:
		if l > 0 {
			limit = l
		}
	}

	var resp struct {
		Items []struct {
			Name        string `json:"name"`
			Stars       int    `json:"stargazers_count"`
			URL         string `json:"html_url"`
			Description string `json:"description"`
		} `json:"items"`
	}

	u := fmt.Sprintf("%s?q=%s&sort=stars", g.cfg.Endpoint, url.QueryEscape(query))
	if err := g.http.DoJSON(ctx, "GET", u, nil, nil, &resp); err != nil {
		g.logger.Printf("github search failed for %q: %v", query, err)
		return []interface{}{map[string]interface{}{"error": fmt.Sprintf("repository search failed: %v", err)}}, nil
	}

	repos := make([]interface{}, 0, limit)
	for _, item := range resp.Items {
		if len(repos) >= limit {
			break
		}
		repos = append(repos, map[string]interface{}{
			"name":        item.Name,
			"stars":       item.Stars,
			"url":         item.URL,
			"description": item.Description,
		})
	}
	return repos, nil
}
