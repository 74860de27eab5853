// Package workspace manages the upload and result folders used by the
// server and the batch CLI.
package workspace

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidName is returned for file names that would escape a folder.
var ErrInvalidName = eris.New("workspace: invalid file name")

// Workspace owns an upload folder and a result folder.
type Workspace struct {
	uploadDir string
	resultDir string
}

// New creates both folders if needed.
func New(uploadDir, resultDir string) (*Workspace, error) {
	for _, dir := range []string{uploadDir, resultDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "workspace: create %s", dir)
		}
	}
	return &Workspace{uploadDir: uploadDir, resultDir: resultDir}, nil
}

// RunDir returns the per-run upload folder, creating it.
func (w *Workspace) RunDir(runID string) (string, error) {
	name, err := cleanName(runID)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(w.uploadDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "workspace: create %s", dir)
	}
	return dir, nil
}

// SaveUpload copies r into the run's upload folder under the base name of
// filename and returns the saved path. A name already used in the run gets
// a numeric prefix.
func (w *Workspace) SaveUpload(runID, filename string, r io.Reader) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}
	dir, err := w.RunDir(runID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(dir, strconv.Itoa(i)+"_"+name)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", eris.Wrapf(err, "workspace: create %s", path)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck
		return "", eris.Wrapf(err, "workspace: write %s", path)
	}
	return path, eris.Wrapf(f.Close(), "workspace: close %s", path)
}

// ResultPath resolves filename inside the result folder.
func (w *Workspace) ResultPath(filename string) (string, error) {
	if filename != filepath.Base(filename) {
		return "", eris.Wrapf(ErrInvalidName, "%q", filename)
	}
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(w.resultDir, name), nil
}

// ReportName is the per-run report file name.
func ReportName(runID string) string {
	return "unmatched-" + runID + ".xlsx"
}

func cleanName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	switch base {
	case "", ".", "..", "/":
		return "", eris.Wrapf(ErrInvalidName, "%q", name)
	}
	return base, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
