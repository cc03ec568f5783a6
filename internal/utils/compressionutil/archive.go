package compression

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
)

// Supported archive formats
const (
	FormatXZ    = "xz"
	FormatBZIP2 = "bzip2"
)

var magicNumbers = map[string][]byte{
	FormatBZIP2: {0x42, 0x5A, 0x68},
	FormatXZ:    {0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00},
}

// Extension returns the file extension for a tar archive compressed with format
func Extension(format string) (string, error) {
	switch format {
	case FormatXZ:
		return ".tar.xz", nil
	case FormatBZIP2:
		return ".tar.bz2", nil
	default:
		return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedArch, format)
	}
}

// DetectArchiveFormat determines the archive format using magic numbers
func DetectArchiveFormat(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	header := make([]byte, 6)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	header = header[:n]

	for format, magic := range magicNumbers {
		if bytes.HasPrefix(header, magic) {
			return format, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedArch, filename)
}

// ArchiveDir writes the contents of src as a compressed tar archive at dst.
// Entry names are relative to src and slash-separated.
func ArchiveDir(src, dst, format string) (err error) {
	outFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := outFile.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	var cw io.WriteCloser
	switch format {
	case FormatXZ:
		cw, err = xz.NewWriter(outFile)
	case FormatBZIP2:
		cw, err = bzip2.NewWriter(outFile, nil)
	default:
		err = fmt.Errorf("%w: %s", errors.ErrUnsupportedArch, format)
	}
	if err != nil {
		return err
	}

	tw := tar.NewWriter(cw)
	if err = writeTar(tw, src); err != nil {
		return err
	}
	if err = tw.Close(); err != nil {
		return err
	}
	return cw.Close()
}

func writeTar(tw *tar.Writer, src string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == src {
			return nil
		}
		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(relPath)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tw, file)
		return err
	})
}

// ExtractArchive unpacks a compressed tar archive produced by ArchiveDir into dst
func ExtractArchive(src, dst string) error {
	format, err := DetectArchiveFormat(src)
	if err != nil {
		return err
	}

	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	var r io.Reader
	switch format {
	case FormatXZ:
		r, err = xz.NewReader(file)
	case FormatBZIP2:
		r, err = bzip2.NewReader(file, nil)
	}
	if err != nil {
		return err
	}

	tr := tar.NewReader(r)
	cleanDst := filepath.Clean(dst)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fpath := filepath.Join(cleanDst, filepath.FromSlash(hdr.Name))
		if fpath != cleanDst && !strings.HasPrefix(fpath, cleanDst+string(os.PathSeparator)) {
			return fmt.Errorf("%w: illegal entry %q", errors.ErrInvalidArgument, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := extractFile(tr, fpath, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		}
	}
}

func extractFile(r io.Reader, path string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
