// Package registry implements the npm registry client.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	logger "github.com/sirupsen/logrus"

	"github.com/depdoctor/depdoctor/domain"
)

const (
	clientName = "registry"

	// One retry on transient failure, none on a 4xx response.
	maxRetries   = 1
	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 2 * time.Second
)

// NpmClient queries the npm registry's package metadata endpoints.
type NpmClient struct {
	baseURL string
	http    *retryablehttp.Client
}

var _ domain.RegistryClient = (*NpmClient)(nil)

// New creates a registry client for the given base URL (empty means the
// public npm registry) with the given per-request timeout.
func New(baseURL string, timeout time.Duration) *NpmClient {
	client := retryablehttp.NewClient()
	client.RetryMax = maxRetries
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return &NpmClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    client,
	}
}

// packageDocument mirrors the fields depdoctor needs from the registry's
// version metadata.
type packageDocument struct {
	Version          string            `json:"version"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	Deprecated       string            `json:"deprecated"`
	Repository       struct {
		URL       string `json:"url"`
		Directory string `json:"directory"`
	} `json:"repository"`
}

// Latest returns the metadata of the package's latest published release.
func (c *NpmClient) Latest(ctx context.Context, name string) (*domain.PackageInfo, error) {
	doc, err := c.fetchDocument(ctx, name, "latest")
	if err != nil {
		return nil, err
	}

	return &domain.PackageInfo{
		Version:          doc.Version,
		PeerDependencies: doc.PeerDependencies,
		RepositoryURL:    doc.Repository.URL,
		RepositoryDir:    doc.Repository.Directory,
		Deprecated:       doc.Deprecated,
	}, nil
}

// PeerDependencies returns the peer requirements declared by a specific
// version. An unknown version degrades to an empty result.
func (c *NpmClient) PeerDependencies(ctx context.Context, name, version string) (map[string]string, error) {
	doc, err := c.fetchDocument(ctx, name, version)
	if err != nil {
		var regErr *domain.RegistryError
		if errors.As(err, &regErr) && regErr.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return doc.PeerDependencies, nil
}

func (c *NpmClient) fetchDocument(ctx context.Context, name, ref string) (*packageDocument, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, escapePackageName(name), ref)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &domain.RegistryError{Package: name, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	logger.Debugf("[%s] GET %s", clientName, endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.RegistryError{Package: name, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &domain.RegistryError{Package: name, NotFound: true}
	case resp.StatusCode != http.StatusOK:
		return nil, &domain.RegistryError{
			Package: name,
			Err:     fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	var doc packageDocument
	if decodeErr := json.NewDecoder(resp.Body).Decode(&doc); decodeErr != nil {
		return nil, &domain.RegistryError{Package: name, Err: decodeErr}
	}
	return &doc, nil
}

// escapePackageName percent-encodes a package name for the registry URL.
// Scoped packages ("@scope/name") must keep their slash encoded as %2F.
func escapePackageName(name string) string {
	return url.PathEscape(name)
}
