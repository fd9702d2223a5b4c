package crosspack

import (
	"context"
	"os"
	"path"
	"path/filepath"
)

// Entry path layouts inside a packaged archive.
const (
	LayoutTarget = "target" // <os>-<arch>/<program> in both formats
	LayoutFlat   = "flat"   // <program> in both formats
	LayoutLegacy = "legacy" // prefixed in zip, flat in tar
)

type Packager interface {
	Package(ctx context.Context, target Target) (string, error)
}

// ArchivePackager writes <output>/<os>-<arch>.zip for the windows family and
// <output>/<os>-<arch>.tar[.gz|.zst] for every other OS, from the executable
// previously built in <output>/<os>-<arch>/.
type ArchivePackager struct {
	Output      string
	Name        string
	Compression string
	Layout      string
}

func (p ArchivePackager) archiverFor(t Target) archiver {
	if t.IsWindows() {
		return zipArchiver{}
	}
	return tarArchiver{Compression: p.Compression}
}

// ArchivePath returns where the package of a target is written.
func (p ArchivePackager) ArchivePath(t Target) string {
	return filepath.Join(p.Output, t.String()+p.archiverFor(t).Extension())
}

func (p ArchivePackager) EntryName(t Target) string {
	exe := t.Executable(p.Name)
	switch p.Layout {
	case LayoutFlat:
		return exe
	case LayoutLegacy:
		if t.IsWindows() {
			return path.Join(t.String(), exe)
		}
		return exe
	default:
		return path.Join(t.String(), exe)
	}
}

func (p ArchivePackager) Package(ctx context.Context, t Target) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrInterrupted
	}

	source := filepath.Join(p.Output, t.String(), t.Executable(p.Name))
	src, err := os.Open(source)
	if err != nil {
		return "", fsError("open", source, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", fsError("stat", source, err)
	}

	dest := p.ArchivePath(t)
	out, err := os.Create(dest)
	if err != nil {
		return "", fsError("create", dest, err)
	}
	if err := p.archiverFor(t).Write(out, p.EntryName(t), src, info); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", fsError("write", dest, err)
	}
	if err := out.Close(); err != nil {
		return "", fsError("close", dest, err)
	}
	return dest, nil
}
