// Package release queries the hosting service for the latest published
// USBLink release. The manifest is fetched fresh on every run and is
// read-only after decoding; any failure here is non-fatal for the run
// because the caller can still build from source.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds the manifest request.
	DefaultTimeout = 30 * time.Second
	// DefaultAPIBase is the release API root.
	DefaultAPIBase = "https://api.github.com"

	userAgent = "usblink-setup/1.0"
)

// Asset is one downloadable artifact of a release.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
}

// Manifest is the decoded "latest release" response.
type Manifest struct {
	Version string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Resolver fetches release manifests.
type Resolver struct {
	client  *http.Client
	apiBase string
}

// NewResolver creates a resolver against the public release API.
func NewResolver() *Resolver {
	return &Resolver{
		client:  &http.Client{Timeout: DefaultTimeout},
		apiBase: DefaultAPIBase,
	}
}

// Latest fetches the latest release manifest for the given repository
// URL. A response without a version tag is treated as a fetch failure,
// not a crash.
func (r *Resolver) Latest(ctx context.Context, repoURL string) (*Manifest, error) {
	owner, name, err := splitRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/latest", r.apiBase, owner, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch latest release: unexpected status %d", resp.StatusCode)
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("decode release manifest: %w", err)
	}
	if manifest.Version == "" {
		return nil, fmt.Errorf("release manifest has no version tag")
	}

	return &manifest, nil
}

// splitRepoURL extracts the owner and repository name from a forge URL
// such as https://github.com/usblink/usblink(.git).
func splitRepoURL(repoURL string) (owner, name string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("parse repository URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository URL %q has no owner/name path", repoURL)
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
