// Package acquire fetches StatsCan full-table zip archives, extracts them into
// a staging directory and locates the data and metadata CSVs.
//
// Failures come in two kinds. Recoverable ones (bad HTTP response, missing
// data file) wrap ErrSkipped and the caller moves on to the next table.
// Environment violations (path collisions, unreadable archives) are returned
// as *FatalError and must end the run.
//
// The downloader never deletes anything on its own. Everything it creates is
// tracked and removed only when Cleanup is called.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/gathernomics/internal/core"
	"github.com/JonMunkholm/gathernomics/internal/logging"
)

const (
	// DefaultTimeout bounds a single table download, body included.
	DefaultTimeout = 5 * time.Minute

	zipContentType = "application/zip"
)

// Options configures a Downloader.
type Options struct {
	StagingDir string           // Where archives are written and extracted (required)
	Client     *http.Client     // Default: client with Timeout
	Timeout    time.Duration    // Default: DefaultTimeout; ignored when Client is set
	UserAgent  string           // Optional User-Agent header
	Now        func() time.Time // Clock for run timestamps (default: time.Now)
}

// Downloader acquires StatsCan tables one at a time.
type Downloader struct {
	stagingDir string
	client     *http.Client
	userAgent  string
	now        func() time.Time
	tracker    tracker
}

// NewDownloader prepares the staging directory and returns a Downloader.
// An existing directory is reused; a path occupied by anything else, or one
// that cannot be created, is fatal. A directory created here is tracked.
func NewDownloader(opts Options) (*Downloader, error) {
	if opts.StagingDir == "" {
		return nil, fatal("create staging dir", "", errors.New("no staging directory configured"))
	}

	d := &Downloader{
		stagingDir: opts.StagingDir,
		client:     opts.Client,
		userAgent:  opts.UserAgent,
		now:        opts.Now,
	}
	if d.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		d.client = &http.Client{Timeout: timeout}
	}
	if d.now == nil {
		d.now = time.Now
	}

	if err := d.prepareStagingDir(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Downloader) prepareStagingDir() error {
	info, err := os.Stat(d.stagingDir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fatal("create staging dir", d.stagingDir, errors.New("path exists and is not a directory"))
	case !errors.Is(err, os.ErrNotExist):
		return fatal("create staging dir", d.stagingDir, err)
	}

	if err := os.MkdirAll(d.stagingDir, 0o755); err != nil {
		return fatal("create staging dir", d.stagingDir, err)
	}
	d.tracker.addDir(d.stagingDir)
	return nil
}

// StagingDir returns the directory archives are written to.
func (d *Downloader) StagingDir() string {
	return d.stagingDir
}

// Acquire downloads and extracts the table described by desc.
//
// On success the returned Context has ZipPath, ExtractDir and DataCSVPath set,
// and MetaCSVPath set when exactly one metadata CSV was present. Errors wrap
// ErrSkipped or are a *FatalError.
func (d *Downloader) Acquire(ctx context.Context, desc core.TableDescriptor) (*Context, error) {
	logger := logging.WithFields(ctx, "table", desc.Name)

	if desc.Source != core.SourceStatsCan {
		logger.Debug("cannot download table from source", "source", desc.Source)
		return nil, skipf("table %s: unsupported source %s", desc.Name, desc.Source)
	}

	actx := &Context{
		Name:      desc.Name,
		URL:       desc.URL,
		Timestamp: d.now().Format(TimestampLayout),
	}
	stem := filepath.Join(d.stagingDir, fmt.Sprintf("%s-%s", SafeName(desc.Name), actx.Timestamp))

	if err := d.download(ctx, actx, stem+".zip"); err != nil {
		return nil, err
	}
	if err := d.extract(ctx, actx, stem+".d"); err != nil {
		return nil, err
	}
	return actx, nil
}

// download fetches the archive into zipPath. Response headers are validated
// before anything is written.
func (d *Downloader) download(ctx context.Context, actx *Context, zipPath string) error {
	logger := logging.WithFields(ctx, "table", actx.Name)

	if _, err := os.Stat(zipPath); err == nil {
		return fatal("download archive", zipPath, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fatal("download archive", zipPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, actx.URL, nil)
	if err != nil {
		logger.Warn("invalid table url", "url", actx.URL, "error", err)
		return skipf("table %s: invalid url: %v", actx.Name, err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	logger.Debug("downloading table", "url", actx.URL)
	resp, err := d.client.Do(req)
	if err != nil {
		logger.Warn("failed to download table", "url", actx.URL, "error", err)
		return skipf("table %s: download: %v", actx.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("failed to download table", "url", actx.URL, "status", resp.StatusCode)
		return skipf("table %s: unexpected status %d", actx.Name, resp.StatusCode)
	}
	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	size := contentLength(resp)
	if contentType != zipContentType || size <= 0 {
		logger.Warn("failed to download table zip",
			"url", actx.URL,
			"content_type", contentType,
			"content_length", size,
		)
		return skipf("table %s: response is not a zip archive (type %q, length %d)", actx.Name, contentType, size)
	}
	logger.Debug("zip size", "bytes", size)

	out, err := os.OpenFile(zipPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fatal("download archive", zipPath, err)
	}
	d.tracker.addFile(zipPath)

	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		logger.Warn("failed to save table zip", "path", zipPath, "error", copyErr)
		return skipf("table %s: save archive: %v", actx.Name, copyErr)
	}
	if closeErr != nil {
		return fatal("download archive", zipPath, closeErr)
	}

	logger.Debug("saved table zip", "path", zipPath, "bytes", written)
	actx.ZipPath = zipPath
	return nil
}

// contentLength returns the declared Content-Length, or 0 when the header is
// absent or not a positive integer.
func contentLength(resp *http.Response) int64 {
	if h := resp.Header.Get("Content-Length"); h != "" {
		return core.ParseLenientInt(h)
	}
	return max(resp.ContentLength, 0)
}
