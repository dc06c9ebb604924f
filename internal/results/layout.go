// Package results owns the on-disk layout of sample files:
// <root>/L<L>_beta<beta>/L<L>_beta<beta>_v<N>.txt.
package results

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
)

// ErrNoVersions is returned when a run folder holds no versioned sample file.
var ErrNoVersions = errors.New("results: no versioned sample files")

var (
	folderPattern  = regexp.MustCompile(`^L(\d+)_beta([0-9.]+)$`)
	versionPattern = regexp.MustCompile(`_v(\d+)\.txt$`)
)

// BaseName names the run folder and its files for one (L, beta) pair.
func BaseName(l int, beta float64) string {
	return fmt.Sprintf("L%d_beta%f", l, beta)
}

// Folder returns <root>/<BaseName>.
func Folder(root string, l int, beta float64) string {
	return filepath.Join(root, BaseName(l, beta))
}

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	return nil
}

// VersionPath returns <folder>/<base>_v<n>.txt.
func VersionPath(folder, base string, n int) string {
	return filepath.Join(folder, fmt.Sprintf("%s_v%d.txt", base, n))
}

// NextVersionPath returns the first <folder>/<base>_v<N>.txt, N ≥ 1, that does
// not exist yet.
func NextVersionPath(folder, base string) (string, error) {
	for n := 1; ; n++ {
		p := VersionPath(folder, base, n)
		_, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
}

// Versions lists the version numbers present for base in folder, ascending.
func Versions(folder, base string) ([]int, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read results folder: %w", err)
	}
	var out []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := versionPattern.FindStringSubmatch(e.Name())
		if m == nil || e.Name() != fmt.Sprintf("%s_v%s.txt", base, m[1]) {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}

// LatestVersionPath returns the highest-numbered sample file for base.
func LatestVersionPath(folder, base string) (string, error) {
	versions, err := Versions(folder, base)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoVersions, filepath.Join(folder, base))
	}
	return VersionPath(folder, base, versions[len(versions)-1]), nil
}

// Run identifies one run folder under a results root.
type Run struct {
	L    int
	Beta float64
	Name string
	Path string
}

// Scan lists the run folders directly under root, ordered by L then beta.
// Entries that do not match L<int>_beta<float> are ignored.
func Scan(root string) ([]Run, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	var runs []Run
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := folderPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		l, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		beta, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		runs = append(runs, Run{L: l, Beta: beta, Name: e.Name(), Path: filepath.Join(root, e.Name())})
	}
	slices.SortFunc(runs, func(a, b Run) int {
		if a.L != b.L {
			return a.L - b.L
		}
		switch {
		case a.Beta < b.Beta:
			return -1
		case a.Beta > b.Beta:
			return 1
		}
		return 0
	})
	return runs, nil
}
