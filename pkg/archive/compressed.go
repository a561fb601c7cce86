package archive

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"io"

	"github.com/ulikunitz/xz"
)

// UnpackGzip streams a gzip-compressed tar (the common shape of an HTTP
// tarball source) into dest. Decode-only use of stdlib compress/gzip: no
// third-party gzip library appears in any go.mod across the example pack
// for this purpose, and decode-only is exactly what stdlib covers well.
func UnpackGzip(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return CorruptArchive("gzip: %v", err)
	}
	defer gz.Close()
	return unpackTar(tar.NewReader(gz), dest)
}

// UnpackBzip2 streams a bzip2-compressed tar into dest. compress/bzip2 is
// stdlib-only by design (it is a read-only decoder in the standard
// library); no pack side exists because spec.md never produces bzip2
// output, only consumes it from HTTP sources.
func UnpackBzip2(r io.Reader, dest string) error {
	return unpackTar(tar.NewReader(bzip2.NewReader(r)), dest)
}

// UnpackXz streams an xz-compressed tar into dest, using
// github.com/ulikunitz/xz — the xz decoder the Go build-system ecosystem
// reaches for (grounded on the thought-machine/please and containers/image
// example manifests), since the standard library has no xz support at all.
func UnpackXz(r io.Reader, dest string) error {
	xr, err := xz.NewReader(r)
	if err != nil {
		return CorruptArchive("xz: %v", err)
	}
	return unpackTar(tar.NewReader(xr), dest)
}
