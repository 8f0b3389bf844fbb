// Package install resolves mod releases, downloads and extracts them
// into the game profile through the staged mutation protocol, and
// manages save data preserved across uninstalls.
package install

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/modfoundry/caravan/pkg/caravan/config"
	"github.com/modfoundry/caravan/pkg/caravan/logging"
)

const userAgent = "caravan"

var (
	// ErrUnreachable is returned when the release server cannot be
	// reached at all, as opposed to answering with an error.
	ErrUnreachable = errors.New("release server unreachable")

	// ErrNoRelease is returned when no release matches the request.
	ErrNoRelease = errors.New("no matching release found")

	// ErrNoAsset is returned when a release has no asset for the
	// requested platform.
	ErrNoAsset = errors.New("release has no asset for this platform")
)

// Release is a published mod release.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Client talks to the release API.
type Client struct {
	cfg  config.ReleaseConfig
	http *http.Client
	log  *logging.Logger
}

// NewClient builds a client with the configured timeouts.
func NewClient(cfg config.ReleaseConfig) *Client {
	connect := time.Duration(cfg.ConnectTimeoutSecs) * time.Second
	if connect <= 0 {
		connect = time.Duration(config.DefaultConnectTimeoutSecs) * time.Second
	}
	overall := time.Duration(cfg.DownloadTimeoutSecs) * time.Second
	if overall <= 0 {
		overall = time.Duration(config.DefaultDownloadTimeoutSecs) * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = connect

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   overall,
		},
		log: logging.Get("install"),
	}
}

// Releases lists published, non-prerelease releases, newest first.
func (c *Client) Releases(ctx context.Context) ([]Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=30",
		c.cfg.APIBase, c.cfg.Owner, c.cfg.Repo)

	var all []Release
	if err := c.getJSON(ctx, endpoint, &all); err != nil {
		return nil, err
	}

	releases := all[:0]
	for _, r := range all {
		if r.Prerelease {
			continue
		}
		releases = append(releases, r)
	}
	return releases, nil
}

// Latest returns the newest published release.
func (c *Client) Latest(ctx context.Context) (*Release, error) {
	releases, err := c.Releases(ctx)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, ErrNoRelease
	}
	return &releases[0], nil
}

// ByTag returns the release with the given tag.
func (c *Client) ByTag(ctx context.Context, tag string) (*Release, error) {
	releases, err := c.Releases(ctx)
	if err != nil {
		return nil, err
	}
	for i := range releases {
		if releases[i].TagName == tag {
			return &releases[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoRelease, tag)
}

// AssetFor picks the release asset matching the configured pattern for
// platform.
func (c *Client) AssetFor(rel *Release, platform string) (*Asset, error) {
	pattern, ok := c.cfg.AssetPatterns[platform]
	if !ok {
		return nil, fmt.Errorf("no asset pattern configured for platform %q", platform)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling asset pattern for %s: %w", platform, err)
	}

	for i := range rel.Assets {
		if re.MatchString(rel.Assets[i].Name) {
			return &rel.Assets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s (%s)", ErrNoAsset, rel.TagName, platform)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapNetErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("release server returned %s: %s", resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// wrapNetErr maps transport-level failures to ErrUnreachable.
func wrapNetErr(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return err
}
