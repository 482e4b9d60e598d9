package rewrite

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/refang/pkg/textutil"
	"github.com/Sumatoshi-tech/refang/pkg/uast"
)

const enryLanguagePHP = "PHP"

// ErrNoSources is returned when discovery finds nothing to rewrite.
var ErrNoSources = errors.New("no PHP sources found")

// Discovery finds PHP sources under a set of paths.
type Discovery struct {
	// MaxFileSize skips larger files; zero disables the limit.
	MaxFileSize uint64
	// IncludeVendor keeps vendored and dot-prefixed paths.
	IncludeVendor bool
	Logger        *slog.Logger
}

// Discover reads every PHP file named by paths. Directories are walked;
// files given explicitly are read even when vendored.
func (d Discovery) Discover(paths []string) ([]Source, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sources []Source

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}

		if !info.IsDir() {
			source, ok, readErr := d.read(root, info.Size(), logger)
			if readErr != nil {
				return nil, readErr
			}

			if ok {
				sources = append(sources, source)
			}

			continue
		}

		walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}

			rel = filepath.ToSlash(rel)

			if entry.IsDir() {
				if rel != "." && !d.IncludeVendor && (enry.IsVendor(rel+"/") || enry.IsDotFile(rel)) {
					logger.Debug("skipping directory", "path", path)

					return filepath.SkipDir
				}

				return nil
			}

			if !uast.IsSupported(path) || (!d.IncludeVendor && enry.IsVendor(rel)) {
				return nil
			}

			info, infoErr := entry.Info()
			if infoErr != nil {
				return infoErr
			}

			source, ok, readErr := d.read(path, info.Size(), logger)
			if readErr != nil {
				return readErr
			}

			if ok {
				sources = append(sources, source)
			}

			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("discover %s: %w", root, walkErr)
		}
	}

	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	return sources, nil
}

// read loads path unless it is too large, binary or not PHP.
func (d Discovery) read(path string, size int64, logger *slog.Logger) (Source, bool, error) {
	if !uast.IsSupported(path) {
		logger.Debug("skipping unsupported file", "path", path)

		return Source{}, false, nil
	}

	if d.MaxFileSize > 0 && size > 0 && uint64(size) > d.MaxFileSize {
		logger.Info("skipping large file", "path", path,
			"size", humanize.IBytes(uint64(size)), "limit", humanize.IBytes(d.MaxFileSize))

		return Source{}, false, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Source{}, false, fmt.Errorf("read %s: %w", path, err)
	}

	if textutil.IsBinary(content) {
		logger.Debug("skipping binary file", "path", path)

		return Source{}, false, nil
	}

	// Include files share their extension with other languages.
	if strings.EqualFold(filepath.Ext(path), ".inc") && enry.GetLanguage(filepath.Base(path), content) != enryLanguagePHP {
		logger.Debug("skipping non-PHP include", "path", path)

		return Source{}, false, nil
	}

	return Source{Path: path, Content: content}, true, nil
}

// ParseSize parses a human-readable byte size such as "2 MiB"; "" and "0"
// mean unlimited.
func ParseSize(text string) (uint64, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "0" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(text)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", text, err)
	}

	return size, nil
}
