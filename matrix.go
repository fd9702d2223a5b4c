package crosspack

import (
	"slices"
	"strings"

	"github.com/n0rad/go-erlog/data"
	"github.com/n0rad/go-erlog/errs"
)

// Target is one (operating system, architecture) pair to build for.
type Target struct {
	OS   string
	Arch string
}

// ParseTarget reads the "os-arch" form returned by Target.String.
func ParseTarget(s string) (Target, error) {
	os, arch, ok := strings.Cut(s, "-")
	if !ok || os == "" || arch == "" {
		return Target{}, errs.WithF(data.WithField("target", s), "Target must be in os-arch form")
	}
	return Target{OS: os, Arch: arch}, nil
}

func (t Target) String() string {
	return t.OS + "-" + t.Arch
}

func (t Target) IsWindows() bool {
	return t.OS == "windows"
}

// Executable returns the file name of a program built for this target.
func (t Target) Executable(name string) string {
	if t.IsWindows() {
		return name + ".exe"
	}
	return name
}

// Exclusion removes every target whose OS and Arch are both listed.
// An empty list matches any value.
type Exclusion struct {
	OS   []string
	Arch []string
}

func (e Exclusion) Matches(t Target) bool {
	return (len(e.OS) == 0 || slices.Contains(e.OS, t.OS)) &&
		(len(e.Arch) == 0 || slices.Contains(e.Arch, t.Arch))
}

type Matrix struct {
	OS      []string
	Arch    []string
	Exclude []Exclusion
}

// DefaultMatrix is used when no configuration overrides it.
// The toolchain cannot produce arm64 binaries for solaris and plan9.
func DefaultMatrix() Matrix {
	return Matrix{
		OS:   []string{"windows", "linux", "darwin", "freebsd", "netbsd", "openbsd", "plan9", "solaris"},
		Arch: []string{"amd64", "arm64"},
		Exclude: []Exclusion{
			{OS: []string{"solaris", "plan9"}, Arch: []string{"arm64"}},
		},
	}
}

func (m Matrix) Excluded(t Target) bool {
	for _, e := range m.Exclude {
		if e.Matches(t) {
			return true
		}
	}
	return false
}

// Targets returns the cross product of OS and Arch, OS-major, without excluded
// pairs. Each remaining pair appears exactly once.
func (m Matrix) Targets() []Target {
	var targets []Target
	seen := make(map[Target]struct{})
	for _, os := range m.OS {
		for _, arch := range m.Arch {
			t := Target{OS: os, Arch: arch}
			if _, ok := seen[t]; ok || m.Excluded(t) {
				continue
			}
			seen[t] = struct{}{}
			targets = append(targets, t)
		}
	}
	return targets
}

// Filter keeps the targets named by selectors, in matrix order. No selector
// means every target. Selecting a target absent from the matrix is an error.
func (m Matrix) Filter(selectors []string) ([]Target, error) {
	targets := m.Targets()
	if len(selectors) == 0 {
		return targets, nil
	}

	wanted := make(map[Target]struct{}, len(selectors))
	for _, s := range selectors {
		t, err := ParseTarget(s)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(targets, t) {
			return nil, errs.WithF(data.WithField("target", s), "Target is not part of the matrix")
		}
		wanted[t] = struct{}{}
	}

	var filtered []Target
	for _, t := range targets {
		if _, ok := wanted[t]; ok {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}
