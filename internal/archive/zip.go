package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tmamon/internal/fileutil"
	"tmamon/internal/services"
)

// CreateZip walks sourceDir and writes every regular file into a new archive
// at zipPath. Entry names are paths relative to sourceDir with up to depth
// leading segments removed, so archives carry portable relative paths rather
// than machine-specific ones. Dotfiles and OS metadata are skipped.
func CreateZip(zipPath, sourceDir string, depth int) (err error) {
	out, err := os.Create(zipPath)
	if err != nil {
		return services.Wrap(services.ErrIO, "archive", "zip", fmt.Sprintf("create archive %q", zipPath), err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = services.Wrap(services.ErrIO, "archive", "zip", fmt.Sprintf("finalize archive %q", zipPath), closeErr)
		}
	}()

	writer := zip.NewWriter(out)
	walkErr := filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || fileutil.IsOSMetadata(name) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		return addEntry(writer, path, stripSegments(filepath.ToSlash(rel), depth))
	})
	if walkErr != nil {
		writer.Close()
		return services.Wrap(services.ErrIO, "archive", "zip", fmt.Sprintf("populate archive %q", zipPath), walkErr)
	}
	if err := writer.Close(); err != nil {
		return services.Wrap(services.ErrIO, "archive", "zip", fmt.Sprintf("finalize archive %q", zipPath), err)
	}
	return nil
}

func addEntry(writer *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	entry, err := writer.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, in)
	return err
}

// stripSegments removes up to depth leading path segments, always retaining
// at least the base name.
func stripSegments(rel string, depth int) string {
	for i := 0; i < depth; i++ {
		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			break
		}
		rel = rel[slash+1:]
	}
	return rel
}
