package acquire

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/gathernomics/internal/logging"
)

// metadataMarker identifies metadata CSVs by file name.
const metadataMarker = "MetaData"

// extract unpacks actx.ZipPath into outDir and locates the data and metadata
// CSVs. Exactly one data CSV must be present.
func (d *Downloader) extract(ctx context.Context, actx *Context, outDir string) error {
	logger := logging.WithFields(ctx, "table", actx.Name)

	if _, err := os.Stat(outDir); err == nil {
		return fatal("extract archive", outDir, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fatal("extract archive", outDir, err)
	}
	if info, err := os.Stat(actx.ZipPath); err != nil || !info.Mode().IsRegular() {
		return fatal("extract archive", actx.ZipPath, errors.New("zip file does not exist"))
	}

	logger.Debug("opening zip file", "path", actx.ZipPath)
	zr, err := zip.OpenReader(actx.ZipPath)
	if err != nil {
		return fatal("extract archive", actx.ZipPath, err)
	}
	defer zr.Close()

	if err := os.Mkdir(outDir, 0o755); err != nil {
		return fatal("extract archive", outDir, err)
	}
	actx.ExtractDir = outDir
	d.tracker.addDir(outDir)

	logger.Debug("extracting files", "dir", outDir, "entries", len(zr.File))
	var dataFiles, metaFiles []string
	for _, f := range zr.File {
		target, err := d.extractEntry(f, outDir)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".csv") {
			continue
		}
		logger.Debug("extracted", "file", f.Name)
		if strings.Contains(f.Name, metadataMarker) {
			metaFiles = append(metaFiles, target)
		} else {
			dataFiles = append(dataFiles, target)
		}
	}

	if len(dataFiles) != 1 {
		logger.Warn("no single data file available", "data_files", len(dataFiles))
		return skipf("table %s: found %d data csv files, want 1", actx.Name, len(dataFiles))
	}
	if !isFile(dataFiles[0]) {
		return fatal("extract archive", dataFiles[0], errors.New("data csv does not exist"))
	}
	actx.DataCSVPath = dataFiles[0]

	switch len(metaFiles) {
	case 0:
		logger.Debug("no meta file available")
	case 1:
		if !isFile(metaFiles[0]) {
			return fatal("extract archive", metaFiles[0], errors.New("meta csv does not exist"))
		}
		actx.MetaCSVPath = metaFiles[0]
	default:
		logger.Warn("multiple meta files available, ignoring all", "meta_files", len(metaFiles))
	}

	return nil
}

// extractEntry writes one archive entry below outDir and returns its path.
// Entries that would land outside outDir are fatal.
func (d *Downloader) extractEntry(f *zip.File, outDir string) (string, error) {
	target := filepath.Join(outDir, f.Name)
	if !strings.HasPrefix(target, filepath.Clean(outDir)+string(os.PathSeparator)) {
		return "", fatal("extract archive", f.Name, errors.New("entry escapes extraction directory"))
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return "", fatal("extract archive", target, err)
		}
		return target, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fatal("extract archive", target, err)
	}

	src, err := f.Open()
	if err != nil {
		return "", fatal("extract archive", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fatal("extract archive", target, err)
	}
	d.tracker.addFile(target)

	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return "", fatal("extract archive", target, fmt.Errorf("write entry: %w", err))
	}
	return target, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
