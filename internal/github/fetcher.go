// Package github reads markdown documentation from a GitHub repository.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// Fetcher lists and downloads markdown files under a repository directory.
// Paths it returns are relative to the repository root so that version
// directories ("docs/v1.0/...") survive into the index.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	ref      string
	basePath string
}

// NewFetcher creates a fetcher for owner/repo at ref (empty for the default
// branch), rooted at basePath.
func NewFetcher(client *Client, owner, repo, ref, basePath string) *Fetcher {
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		ref:      ref,
		basePath: strings.Trim(basePath, "/"),
	}
}

// ParseRepo splits "owner/repo" into its parts.
func ParseRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.Trim(s, "/"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", s)
	}
	return owner, repo, nil
}

// Name identifies the source in logs.
func (f *Fetcher) Name() string {
	return fmt.Sprintf("github.com/%s/%s/%s", f.owner, f.repo, f.basePath)
}

func (f *Fetcher) options() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// List recursively lists all markdown files under the base path.
func (f *Fetcher) List(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.basePath)
}

func (f *Fetcher) listRecursive(ctx context.Context, dir string) ([]string, error) {
	var docs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, dir, f.options())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", dir, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemPath := path.Join(dir, *item.Name)
		switch *item.Type {
		case "file":
			if strings.HasSuffix(strings.ToLower(*item.Name), ".md") {
				docs = append(docs, itemPath)
			}
		case "dir":
			subDocs, err := f.listRecursive(ctx, itemPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

// Fetch downloads one file by its repository path.
func (f *Fetcher) Fetch(ctx context.Context, filePath string) ([]byte, error) {
	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, filePath, f.options())
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", filePath, err)
	}
	if fileContent == nil || fileContent.Content == nil {
		return nil, fmt.Errorf("no file content returned for %s", filePath)
	}

	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(*fileContent.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", filePath, err)
	}
	return content, nil
}

// Revision returns the SHA of the most recent commit touching the base path.
func (f *Fetcher) Revision(ctx context.Context) (string, error) {
	opts := &github.CommitsListOptions{
		Path:        f.basePath,
		SHA:         f.ref,
		ListOptions: github.ListOptions{PerPage: 1},
	}
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, opts)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}
	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}
	return *commits[0].SHA, nil
}
