package crosspack

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/n0rad/go-erlog/data"
	"github.com/n0rad/go-erlog/errs"
	"golang.org/x/crypto/blake2b"
)

const (
	ChecksumSHA256  = "sha256"
	ChecksumSHA512  = "sha512"
	ChecksumBlake2b = "blake2b"
)

func checksumFileName(algorithm string) string {
	switch algorithm {
	case ChecksumSHA256:
		return "SHA256SUMS"
	case ChecksumSHA512:
		return "SHA512SUMS"
	case ChecksumBlake2b:
		return "B2SUMS"
	default:
		return ""
	}
}

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumSHA512:
		return sha512.New(), nil
	case ChecksumBlake2b:
		return blake2b.New512(nil)
	default:
		return nil, errs.WithF(data.WithField("checksum", algorithm), "Unknown checksum algorithm")
	}
}

// WriteChecksums writes a manifest in the sha256sum/b2sum text format into dir,
// one line per file in the given order, and returns its path.
func WriteChecksums(dir string, algorithm string, files []string) (string, error) {
	var manifest strings.Builder
	for _, file := range files {
		sum, err := fileChecksum(algorithm, file)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&manifest, "%s  %s\n", sum, filepath.Base(file))
	}

	dest := filepath.Join(dir, checksumFileName(algorithm))
	if err := os.WriteFile(dest, []byte(manifest.String()), 0644); err != nil {
		return "", fsError("write", dest, err)
	}
	return dest, nil
}

func fileChecksum(algorithm string, path string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fsError("open", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fsError("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
