package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// UnpackZip extracts a zip archive for HTTP sources delivered in that
// format (spec.md §4.1). Directory entries are detected by a trailing "/"
// in the name or the zip directory-entry bit; every extracted path passes
// through the same sanitizer unpack_zstd uses, plus a reserved-name/
// backslash check zip archives specifically need since zip, unlike tar,
// commonly carries Windows-style paths.
func UnpackZip(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return CorruptArchive("zip: %v", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractZipEntry(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, dest string) error {
	name, err := sanitizeZipName(f.Name)
	if err != nil {
		return err
	}
	target, err := SafeJoin(dest, name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return CorruptArchive("zip: open %s: %v", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm())
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", target, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("archive: write %s: %w", target, err)
	}
	return nil
}

var reservedWindowsNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
}

func sanitizeZipName(name string) (string, error) {
	if strings.ContainsRune(name, '\\') {
		return "", UnsafeArchivePath(name)
	}
	name = strings.TrimSuffix(name, "/")
	for _, part := range strings.Split(name, "/") {
		switch part {
		case ".", "..":
			return "", UnsafeArchivePath(name)
		}
		if reservedWindowsNames[strings.ToLower(part)] {
			return "", UnsafeArchivePath(name)
		}
	}
	return name, nil
}
