package crosspack

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, output string, target Target, name string, content string) {
	dir := filepath.Join(output, target.String())
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, target.Executable(name)), []byte(content), 0755))
}

func readZip(t *testing.T, path string) map[string]string {
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	entries := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = string(content)
	}
	return entries
}

func readTar(t *testing.T, r io.Reader) map[string]string {
	entries := make(map[string]string)
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return entries
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[header.Name] = string(content)
	}
}

func readTarFile(t *testing.T, path string) map[string]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	return readTar(t, f)
}

func TestArchivePackager_WindowsIsZip(t *testing.T) {
	output := t.TempDir()
	target := Target{OS: "windows", Arch: "amd64"}
	writeExecutable(t, output, target, "program", "windows binary")

	packager := ArchivePackager{Output: output, Name: "program", Layout: LayoutTarget}
	archive, err := packager.Package(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(output, "windows-amd64.zip"), archive)
	assert.Equal(t, map[string]string{"windows-amd64/program.exe": "windows binary"}, readZip(t, archive))
}

func TestArchivePackager_OthersAreTar(t *testing.T) {
	output := t.TempDir()
	target := Target{OS: "linux", Arch: "arm64"}
	writeExecutable(t, output, target, "program", "linux binary")

	packager := ArchivePackager{Output: output, Name: "program", Layout: LayoutTarget}
	archive, err := packager.Package(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(output, "linux-arm64.tar"), archive)
	assert.Equal(t, map[string]string{"linux-arm64/program": "linux binary"}, readTarFile(t, archive))
}

func TestArchivePackager_TarKeepsExecutableMode(t *testing.T) {
	output := t.TempDir()
	target := Target{OS: "darwin", Arch: "arm64"}
	writeExecutable(t, output, target, "program", "darwin binary")

	archive, err := ArchivePackager{Output: output, Name: "program"}.Package(context.Background(), target)
	require.NoError(t, err)

	f, err := os.Open(archive)
	require.NoError(t, err)
	defer f.Close()
	header, err := tar.NewReader(f).Next()
	require.NoError(t, err)
	assert.Equal(t, int64(0755), header.Mode&0777)
	assert.Equal(t, "", header.Uname)
}

func TestArchivePackager_Layouts(t *testing.T) {
	windows := Target{OS: "windows", Arch: "arm64"}
	linux := Target{OS: "linux", Arch: "amd64"}

	cases := []struct {
		layout  string
		windows string
		linux   string
	}{
		{LayoutTarget, "windows-arm64/program.exe", "linux-amd64/program"},
		{LayoutFlat, "program.exe", "program"},
		{LayoutLegacy, "windows-arm64/program.exe", "program"},
	}
	for _, c := range cases {
		t.Run(c.layout, func(t *testing.T) {
			output := t.TempDir()
			writeExecutable(t, output, windows, "program", "w")
			writeExecutable(t, output, linux, "program", "l")
			packager := ArchivePackager{Output: output, Name: "program", Layout: c.layout}

			zipPath, err := packager.Package(context.Background(), windows)
			require.NoError(t, err)
			tarPath, err := packager.Package(context.Background(), linux)
			require.NoError(t, err)

			assert.Equal(t, map[string]string{c.windows: "w"}, readZip(t, zipPath))
			assert.Equal(t, map[string]string{c.linux: "l"}, readTarFile(t, tarPath))
		})
	}
}

func TestArchivePackager_GzipCompression(t *testing.T) {
	output := t.TempDir()
	target := Target{OS: "freebsd", Arch: "amd64"}
	writeExecutable(t, output, target, "program", "freebsd binary")

	archive, err := ArchivePackager{Output: output, Name: "program", Compression: CompressionGzip}.
		Package(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(output, "freebsd-amd64.tar.gz"), archive)

	f, err := os.Open(archive)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"freebsd-amd64/program": "freebsd binary"}, readTar(t, gr))
}

func TestArchivePackager_ZstdCompression(t *testing.T) {
	output := t.TempDir()
	target := Target{OS: "openbsd", Arch: "arm64"}
	writeExecutable(t, output, target, "program", "openbsd binary")

	archive, err := ArchivePackager{Output: output, Name: "program", Compression: CompressionZstd}.
		Package(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(output, "openbsd-arm64.tar.zst"), archive)

	f, err := os.Open(archive)
	require.NoError(t, err)
	defer f.Close()
	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()
	assert.Equal(t, map[string]string{"openbsd-arm64/program": "openbsd binary"}, readTar(t, zr))
}

func TestArchivePackager_ZipIgnoresCompression(t *testing.T) {
	packager := ArchivePackager{Output: "build", Name: "program", Compression: CompressionZstd}

	assert.Equal(t, filepath.Join("build", "windows-amd64.zip"), packager.ArchivePath(Target{OS: "windows", Arch: "amd64"}))
	assert.Equal(t, filepath.Join("build", "netbsd-amd64.tar.zst"), packager.ArchivePath(Target{OS: "netbsd", Arch: "amd64"}))
}

func TestArchivePackager_MissingExecutable(t *testing.T) {
	output := t.TempDir()

	_, err := ArchivePackager{Output: output, Name: "program"}.Package(context.Background(), Target{OS: "linux", Arch: "amd64"})

	var fsErr *FilesystemError
	require.True(t, errors.As(err, &fsErr))
	assert.Equal(t, "open", fsErr.Op)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.NoFileExists(t, filepath.Join(output, "linux-amd64.tar"))
}

func TestArchivePackager_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ArchivePackager{Output: t.TempDir(), Name: "program"}.Package(ctx, Target{OS: "linux", Arch: "amd64"})
	assert.Equal(t, ErrInterrupted, err)
}

func TestArchivePackager_FailedWriteRemovesArchive(t *testing.T) {
	output := t.TempDir()
	target := Target{OS: "linux", Arch: "amd64"}
	require.NoError(t, os.MkdirAll(filepath.Join(output, target.String(), "program"), 0755))

	packager := ArchivePackager{Output: output, Name: "program"}
	_, err := packager.Package(context.Background(), target)

	var fsErr *FilesystemError
	require.True(t, errors.As(err, &fsErr))
	assert.Equal(t, "write", fsErr.Op)
	assert.NoFileExists(t, packager.ArchivePath(target))
}
