package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/nwaples/rardecode/v2"
	"github.com/pierrec/lz4/v4"
	log "github.com/sirupsen/logrus"
)

// Format identifies an archive container
type Format int

const (
	FormatUnknown Format = iota
	FormatRar
	FormatZip
	FormatTar
	FormatTarGzip
	FormatTarZstd
	FormatTarLz4
)

func (f Format) String() string {
	switch f {
	case FormatRar:
		return "rar"
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGzip:
		return "tar.gz"
	case FormatTarZstd:
		return "tar.zst"
	case FormatTarLz4:
		return "tar.lz4"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownFormat is returned for files whose magic bytes match no supported format
	ErrUnknownFormat = errors.New("unsupported archive format")

	// ErrUnsafePath is returned for entries that would land outside the destination
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

var (
	magicRar  = []byte("Rar!\x1a\x07")
	magicZip  = []byte("PK\x03\x04")
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLz4  = []byte{0x04, 0x22, 0x4d, 0x18}
	magicTar  = []byte("ustar")
)

const tarMagicOffset = 257

// Detect sniffs the archive format of the file at path
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	head := make([]byte, tarMagicOffset+len(magicTar))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("failed to read archive header: %w", err)
	}
	return detectBytes(head[:n]), nil
}

func detectBytes(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, magicRar):
		return FormatRar
	case bytes.HasPrefix(head, magicZip):
		return FormatZip
	case bytes.HasPrefix(head, magicGzip):
		return FormatTarGzip
	case bytes.HasPrefix(head, magicZstd):
		return FormatTarZstd
	case bytes.HasPrefix(head, magicLz4):
		return FormatTarLz4
	case len(head) >= tarMagicOffset+len(magicTar) && bytes.Equal(head[tarMagicOffset:], magicTar):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// Extract unpacks the archive at src into dest, creating dest if needed
func Extract(ctx context.Context, src, dest string) error {
	format, err := Detect(src)
	if err != nil {
		return err
	}
	if format == FormatUnknown {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(src))
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	log.Infof("Extracting %s archive %s to %s", format, filepath.Base(src), dest)

	switch format {
	case FormatRar:
		return extractRar(ctx, src, dest)
	case FormatZip:
		return extractZip(ctx, src, dest)
	default:
		return extractTarFile(ctx, src, dest, format)
	}
}

func extractRar(ctx context.Context, src, dest string) error {
	rc, err := rardecode.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open rar archive: %w", err)
	}
	defer rc.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := rc.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read rar entry: %w", err)
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}

		if header.IsDir {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		if err := writeFile(target, rc, header.Mode()); err != nil {
			return err
		}
	}
}

func extractZip(ctx context.Context, src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(dest, file.Name)
		if err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("failed to open zip entry %s: %w", file.Name, err)
		}
		err = writeFile(target, rc, file.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarFile(ctx context.Context, src, dest string, format Format) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch format {
	case FormatTarGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case FormatTarZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case FormatTarLz4:
		r = lz4.NewReader(f)
	}

	return extractTar(ctx, r, dest)
}

func extractTar(ctx context.Context, r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, header.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(dest, target, header.Linkname); err != nil {
				return err
			}
		default:
			log.Debugf("skipping tar entry %s of type %c", header.Name, header.Typeflag)
		}
	}
}

// safeJoin resolves an entry name inside dest, rejecting traversal
func safeJoin(dest, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	target := filepath.Join(dest, filepath.FromSlash(name))

	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func writeFile(target string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	perm := mode.Perm() | 0600
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", filepath.Base(target), err)
	}
	return out.Close()
}

// writeSymlink creates a link whose target stays inside dest
func writeSymlink(dest, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(linkname) {
		resolved = filepath.Join(filepath.Dir(target), linkname)
	}
	rel, err := filepath.Rel(dest, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, target, linkname)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	return os.Symlink(linkname, target)
}
