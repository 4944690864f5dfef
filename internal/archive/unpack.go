package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tmamon/internal/services"
)

// importedMarker tags archives that have already been unpacked into the
// downloads directory.
const importedMarker = "Imported"

// MarkImported renames X.zip to "X Imported.zip" so download polling skips
// the archive on later passes.
func MarkImported(zipPath string) error {
	ext := filepath.Ext(zipPath)
	base := strings.TrimSuffix(zipPath, ext)
	return os.Rename(zipPath, base+" "+importedMarker+ext)
}

// ImportedMarker reports whether an archive name carries the imported tag.
func ImportedMarker(name string) bool {
	return strings.Contains(name, importedMarker)
}

// Unpack extracts a zip archive into destDir. Entries that would escape
// destDir are rejected rather than written.
func Unpack(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return services.Wrap(services.ErrIO, "archive", "unpack", fmt.Sprintf("open archive %q", zipPath), err)
	}
	defer reader.Close()

	root := filepath.Clean(destDir)
	for _, entry := range reader.File {
		target := filepath.Join(root, filepath.FromSlash(entry.Name))
		if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return services.Wrap(services.ErrValidation, "archive", "unpack",
				fmt.Sprintf("archive entry %q escapes destination", entry.Name), nil)
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return services.Wrap(services.ErrIO, "archive", "unpack", fmt.Sprintf("create folder %q", target), err)
			}
			continue
		}
		if err := extractFile(entry, target); err != nil {
			return services.Wrap(services.ErrIO, "archive", "unpack", fmt.Sprintf("extract %q", entry.Name), err)
		}
	}
	return nil
}

func extractFile(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
