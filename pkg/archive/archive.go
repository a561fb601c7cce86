// Package archive implements the archive codec of spec.md §4.1: packing a
// directory tree into a deterministic zstd-compressed tar stream, and
// unpacking tar.zst, zip, gzip, bzip2, and xz archives back onto disk.
//
// Tar walking and path-sanitizing follow the idiom of
// opencontainers-umoci's oci/layer/tar_extract.go; zstd compression uses
// klauspost/compress, the library the teacher (distribution) and umoci both
// depend on for the same purpose.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
)

// CorruptArchive reports a malformed archive stream (spec.md §4.1).
func CorruptArchive(format string, args ...interface{}) error {
	return vorpalerr.New(vorpalerr.CorruptArchive, format, args...)
}

// UnsafeArchivePath reports an entry whose path escapes the extraction
// root (spec.md §4.1).
func UnsafeArchivePath(path string) error {
	return vorpalerr.New(vorpalerr.UnsafeArchivePath, "entry path escapes destination: %s", path)
}

// PackOptions configures PackZstd's compression.
type PackOptions struct {
	Level zstd.EncoderLevel
}

// DefaultPackOptions matches zstd's SpeedDefault level.
func DefaultPackOptions() PackOptions {
	return PackOptions{Level: zstd.SpeedDefault}
}

// PackZstd writes a tar stream compressed with zstd to output, containing
// each file in files stored at its path relative to root.
//
// Entries are written in sorted lexicographic order (invariant: archive
// byte-identity depends only on content, never on filesystem iteration
// order). mtime/atime are normalized to the Unix epoch and owner/group to
// 0 (spec.md I2); mode is preserved from the source file.
func PackZstd(root string, files []string, output io.Writer, opts PackOptions) error {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	enc, err := zstd.NewWriter(output, zstd.WithEncoderLevel(opts.Level))
	if err != nil {
		return fmt.Errorf("archive: zstd writer: %w", err)
	}
	defer enc.Close()

	tw := tar.NewWriter(enc)
	defer tw.Close()

	for _, rel := range sorted {
		if strings.HasSuffix(rel, ".tar.zst") {
			return vorpalerr.New(vorpalerr.CorruptArchive, "source archive nested in pack input: %s", rel)
		}
		full := filepath.Join(root, rel)
		info, err := os.Lstat(full)
		if err != nil {
			return fmt.Errorf("archive: stat %s: %w", full, err)
		}
		if err := writeEntry(tw, full, rel, info); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return enc.Close()
}

func writeEntry(tw *tar.Writer, full, rel string, info fs.FileInfo) error {
	var link string
	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		l, err := os.Readlink(full)
		if err != nil {
			return fmt.Errorf("archive: readlink %s: %w", full, err)
		}
		link = l
	case mode.IsRegular(), mode.IsDir():
		// handled below
	default:
		return fmt.Errorf("archive: %s: unsupported file type %v", full, mode)
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("archive: header for %s: %w", full, err)
	}
	hdr.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		hdr.Name += "/"
	}
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""
	hdr.ModTime = epoch
	hdr.AccessTime = epoch
	hdr.ChangeTime = epoch

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive: write header for %s: %w", rel, err)
	}
	if mode.IsRegular() {
		f, err := os.Open(full)
		if err != nil {
			return fmt.Errorf("archive: open %s: %w", full, err)
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("archive: write content for %s: %w", rel, err)
		}
	}
	return nil
}

// UnpackZstd is the streaming inverse of PackZstd. It never executes
// archive-embedded programs, refuses absolute paths, and refuses any entry
// whose normalized path escapes dest.
func UnpackZstd(r io.Reader, dest string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return CorruptArchive("zstd: %v", err)
	}
	defer dec.Close()
	return unpackTar(tar.NewReader(dec), dest)
}

func unpackTar(tr *tar.Reader, dest string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return CorruptArchive("tar: %v", err)
		}
		target, err := SafeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		if err := extractEntry(tr, hdr, target); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, target string) error {
	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		_ = os.Remove(target)
		return os.Symlink(hdr.Linkname, target)
	case tar.TypeReg, tar.TypeRegA:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode&0o777))
		if err != nil {
			return fmt.Errorf("archive: create %s: %w", target, err)
		}
		defer f.Close()
		if _, err := io.Copy(f, tr); err != nil {
			return fmt.Errorf("archive: write %s: %w", target, err)
		}
		return nil
	default:
		return fmt.Errorf("archive: %s: unsupported tar entry type %v", hdr.Name, hdr.Typeflag)
	}
}

// SafeJoin joins dest and rel, refusing absolute paths and any result that
// escapes dest (spec.md §4.1/§4.2).
func SafeJoin(dest, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", UnsafeArchivePath(rel)
	}
	cleaned := filepath.Join(dest, rel)
	destClean := filepath.Clean(dest) + string(os.PathSeparator)
	if cleaned != filepath.Clean(dest) && !strings.HasPrefix(cleaned+string(os.PathSeparator), destClean) {
		return "", UnsafeArchivePath(rel)
	}
	return cleaned, nil
}
