// Package upgrade replaces the running classmod binary with the latest GitHub release.
package upgrade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/ux"
	"github.com/pandeptwidyaop/classmod/internal/version"
)

const (
	githubRepo = "pandeptwidyaop/classmod"
	githubAPI  = "https://api.github.com/repos/" + githubRepo + "/releases/latest"
)

// ErrNoAsset means the release has no binary for this platform.
var ErrNoAsset = errors.New("no release asset for this platform")

// Release is the part of a GitHub release the updater reads.
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable release file.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// AssetURL returns the download URL of the named asset.
func (r *Release) AssetURL(name string) (string, error) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a.BrowserDownloadURL, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoAsset, name)
}

// AssetName is the release file built for goos/goarch.
func AssetName(goos, goarch string) string {
	return fmt.Sprintf("classmod-%s-%s", goos, goarch)
}

// NeedsUpgrade reports whether latest differs from current. Dev and pre-release builds always
// upgrade.
func NeedsUpgrade(current, latest string) bool {
	current = strings.TrimPrefix(current, "v")
	latest = strings.TrimPrefix(latest, "v")
	if current == "dev" || strings.Contains(current, "-") {
		return true
	}
	return current != latest
}

// Options configures an Updater. Zero values select GitHub, the build version and the executable
// path of the running process.
type Options struct {
	APIURL     string
	Current    string
	Target     string
	HTTPClient *http.Client
	Printer    *ux.Printer
	Logger     *zap.Logger
}

// Updater checks for, downloads and installs releases.
type Updater struct {
	apiURL  string
	current string
	target  string
	client  *http.Client
	printer *ux.Printer
	logger  *zap.Logger
}

// NewUpdater creates a new Updater instance.
func NewUpdater(opts Options) *Updater {
	u := &Updater{
		apiURL:  opts.APIURL,
		current: opts.Current,
		target:  opts.Target,
		client:  opts.HTTPClient,
		printer: opts.Printer,
		logger:  logging.OrNop(opts.Logger).Named("upgrade"),
	}
	if u.apiURL == "" {
		u.apiURL = githubAPI
	}
	if u.current == "" {
		u.current = version.Version
	}
	if u.client == nil {
		u.client = &http.Client{Timeout: 5 * time.Minute}
	}
	if u.printer == nil {
		u.printer = ux.NewPrinter(os.Stdout, os.Stderr)
	}
	return u
}

func (u *Updater) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

// Latest fetches the latest release.
func (u *Updater) Latest(ctx context.Context) (*Release, error) {
	resp, err := u.get(ctx, u.apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}
	return &release, nil
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// Download saves url into dir and returns the temporary file path.
func (u *Updater) Download(ctx context.Context, url, dir string) (string, error) {
	resp, err := u.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	tmp, err := os.CreateTemp(dir, ".classmod-upgrade-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	counter := &countingWriter{}
	if _, err := io.Copy(io.MultiWriter(tmp, counter), resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	u.logger.Debug("release downloaded", zap.String("url", url), zap.Int64("bytes", counter.n))
	return tmp.Name(), nil
}

// Install moves tmpPath over target, restoring the previous binary on failure.
func Install(tmpPath, target string) error {
	if err := os.Chmod(tmpPath, 0755); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	backup := target + ".backup"
	if err := os.Rename(target, backup); err != nil {
		return fmt.Errorf("failed to backup current binary: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Rename(backup, target)
		return fmt.Errorf("failed to install new binary: %w", err)
	}
	_ = os.Remove(backup)
	return nil
}

func (u *Updater) targetPath() (string, error) {
	if u.target != "" {
		return u.target, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return exe, nil
}

// Run upgrades to the latest release. force reinstalls even when the version matches.
func (u *Updater) Run(ctx context.Context, force bool) error {
	p := u.printer
	p.Println("Current version: %s", p.Highlight(u.current))

	release, err := u.Latest(ctx)
	if err != nil {
		return err
	}
	p.Println("Latest version: %s", p.Highlight(release.TagName))

	if !force && !NeedsUpgrade(u.current, release.TagName) {
		p.Println("You are already running the latest version.")
		return nil
	}

	name := AssetName(runtime.GOOS, runtime.GOARCH)
	url, err := release.AssetURL(name)
	if err != nil {
		return err
	}

	target, err := u.targetPath()
	if err != nil {
		return err
	}

	p.Println("Downloading %s...", p.Accent(name))
	tmp, err := u.Download(ctx, url, filepath.Dir(target))
	if err != nil {
		return err
	}

	if err := Install(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	p.Success("Successfully upgraded to %s!", release.TagName)
	return nil
}
