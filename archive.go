package crosspack

import (
	"archive/tar"
	"archive/zip"
	"io"
	"io/fs"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/n0rad/go-erlog/data"
	"github.com/n0rad/go-erlog/errs"
)

const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// archiver wraps a single executable into one archive file.
type archiver interface {
	Extension() string
	Write(w io.Writer, entry string, src io.Reader, info fs.FileInfo) error
}

type zipArchiver struct{}

func (zipArchiver) Extension() string {
	return ".zip"
}

func (zipArchiver) Write(w io.Writer, entry string, src io.Reader, info fs.FileInfo) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errs.WithE(err, "Failed to prepare zip header")
	}
	header.Name = entry
	header.Method = zip.Deflate

	fw, err := zw.CreateHeader(header)
	if err != nil {
		return errs.WithEF(err, data.WithField("entry", entry), "Failed to create zip entry")
	}
	if _, err := io.Copy(fw, src); err != nil {
		return errs.WithEF(err, data.WithField("entry", entry), "Failed to write zip entry")
	}
	return zw.Close()
}

type tarArchiver struct {
	Compression string
}

func (a tarArchiver) Extension() string {
	switch a.Compression {
	case CompressionGzip:
		return ".tar.gz"
	case CompressionZstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

func (a tarArchiver) Write(w io.Writer, entry string, src io.Reader, info fs.FileInfo) error {
	cw, err := a.compressor(w)
	if err != nil {
		return err
	}
	if err := writeTar(cw, entry, src, info); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

func writeTar(w io.Writer, entry string, src io.Reader, info fs.FileInfo) error {
	tw := tar.NewWriter(w)
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return errs.WithE(err, "Failed to prepare tar header")
	}
	header.Name = entry
	header.Uname = ""
	header.Gname = ""

	if err := tw.WriteHeader(header); err != nil {
		return errs.WithEF(err, data.WithField("entry", entry), "Failed to write tar header")
	}
	if _, err := io.Copy(tw, src); err != nil {
		return errs.WithEF(err, data.WithField("entry", entry), "Failed to write tar entry")
	}
	if err := tw.Close(); err != nil {
		return errs.WithE(err, "Failed to close tar stream")
	}
	return nil
}

func (a tarArchiver) compressor(w io.Writer) (io.WriteCloser, error) {
	switch a.Compression {
	case CompressionGzip:
		gw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return nil, errs.WithE(err, "Failed to create gzip writer")
		}
		return gw, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, errs.WithE(err, "Failed to create zstd writer")
		}
		return zw, nil
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
