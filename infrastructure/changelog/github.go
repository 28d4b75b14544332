// Package changelog retrieves release notes for a package from its GitHub
// repository. Retrieval is best-effort by contract: every failure degrades
// to an empty changelog instead of failing the run.
package changelog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	gh "github.com/google/go-github/v66/github"
	logger "github.com/sirupsen/logrus"

	"github.com/depdoctor/depdoctor/domain"
)

const (
	fetcherName = "changelog"

	// Changelogs can be enormous; cap what is sent to the classifier.
	maxChangelogChars = 40000

	// How many releases the fallback synthesizes notes from.
	maxReleases = 20
	perPage     = 100
)

// changelogCandidates are probed in order at the repository root (and in the
// package's subdirectory for monorepos).
var changelogCandidates = []string{
	"CHANGELOG.md",
	"CHANGELOG",
	"changelog.md",
	"History.md",
	"NEWS.md",
}

// githubRepoPattern extracts "owner/repo" from the repository URLs the npm
// registry reports (https, git+https, git@, with or without .git).
var githubRepoPattern = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/#?]+?)(?:\.git)?/?$`)

// GitHubFetcher implements domain.ChangelogFetcher against the GitHub API.
// An auth token is optional and only raises rate limits.
type GitHubFetcher struct {
	client *gh.Client
}

var _ domain.ChangelogFetcher = (*GitHubFetcher)(nil)

// New creates a fetcher. An empty token means unauthenticated access.
func New(token string) *GitHubFetcher {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubFetcher{client: client}
}

// NewWithClient creates a fetcher around a preconfigured GitHub client.
func NewWithClient(client *gh.Client) *GitHubFetcher {
	return &GitHubFetcher{client: client}
}

// Fetch returns release notes covering the upgrade, or an empty string when
// nothing usable could be retrieved.
func (f *GitHubFetcher) Fetch(
	ctx context.Context,
	name string,
	info *domain.PackageInfo,
	fromVer, toVer string,
) string {
	owner, repo, ok := ParseRepoURL(info.RepositoryURL)
	if !ok {
		logger.Debugf("[%s] No GitHub repository URL for %q", fetcherName, name)
		return ""
	}

	if content := f.fetchChangelogFile(ctx, owner, repo, info.RepositoryDir); content != "" {
		logger.Debugf("[%s] Found changelog file for %s/%s", fetcherName, owner, repo)
		return truncate(content)
	}

	if content := f.fetchReleaseNotes(ctx, owner, repo); content != "" {
		logger.Debugf("[%s] Synthesized changelog from releases of %s/%s", fetcherName, owner, repo)
		return truncate(content)
	}

	logger.Debugf(
		"[%s] No changelog found for %q (%s -> %s)",
		fetcherName, name, fromVer, toVer,
	)
	return ""
}

// fetchChangelogFile probes the well-known changelog filenames, first in the
// package subdirectory (monorepos), then at the repository root.
func (f *GitHubFetcher) fetchChangelogFile(ctx context.Context, owner, repo, dir string) string {
	searchDirs := []string{""}
	if dir != "" && dir != "." {
		searchDirs = []string{dir, ""}
	}

	for _, searchDir := range searchDirs {
		for _, filename := range changelogCandidates {
			path := filename
			if searchDir != "" {
				path = searchDir + "/" + filename
			}

			fileContent, _, _, err := f.client.Repositories.GetContents(
				ctx, owner, repo, path, &gh.RepositoryContentGetOptions{},
			)
			if err != nil || fileContent == nil {
				continue
			}

			content, decodeErr := fileContent.GetContent()
			if decodeErr != nil || content == "" {
				continue
			}
			return content
		}
	}
	return ""
}

// fetchReleaseNotes concatenates the bodies of the most recent releases into
// a synthetic changelog.
func (f *GitHubFetcher) fetchReleaseNotes(ctx context.Context, owner, repo string) string {
	releases, _, err := f.client.Repositories.ListReleases(
		ctx, owner, repo, &gh.ListOptions{PerPage: perPage},
	)
	if err != nil {
		logger.Debugf("[%s] Failed to list releases for %s/%s: %v", fetcherName, owner, repo, err)
		return ""
	}

	var sb strings.Builder
	count := 0
	for _, release := range releases {
		if count >= maxReleases {
			break
		}
		if release.GetBody() == "" {
			continue
		}
		fmt.Fprintf(&sb, "## Version: %s\n\n%s\n\n---\n", release.GetTagName(), release.GetBody())
		count++
	}
	return sb.String()
}

// ParseRepoURL extracts the owner and repository name from a GitHub URL.
func ParseRepoURL(rawURL string) (owner, repo string, ok bool) {
	if rawURL == "" || !strings.Contains(rawURL, "github.com") {
		return "", "", false
	}
	match := githubRepoPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return "", "", false
	}
	return match[1], match[2], true
}

func truncate(s string) string {
	if len(s) > maxChangelogChars {
		return s[:maxChangelogChars]
	}
	return s
}
