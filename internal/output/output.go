// Package output writes packaged diagrams to disk and hands them to the
// platform browser.
package output

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/colordep/core/errors"
)

// Injectable for tests.
var (
	osCreateTemp = os.CreateTemp
	osRename     = os.Rename
	osMkdirAll   = os.MkdirAll
	xzNewWriter  = xz.NewWriter
)

// DigestLength is the number of hex digits of the digest used in file names.
const DigestLength = 12

// CompressedSuffix marks targets that are written xz-compressed.
const CompressedSuffix = ".xz"

// Digest returns the hex BLAKE3 digest of data.
func Digest(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// FileName is the content-addressed name for a document of the given mode:
// colordep-<mode>-<digest prefix>.html. Equal documents get equal names.
func FileName(mode string, doc []byte) string {
	if mode == "" {
		mode = "diagram"
	}
	return "colordep-" + mode + "-" + Digest(doc)[:DigestLength] + ".html"
}

// Target says where a document goes. With no Path the document is written
// to Dir (the system temp directory when empty) under FileName.
type Target struct {
	Path string
	Dir  string
	Mode string
}

// Resolve returns the path doc will be written to.
func (t Target) Resolve(doc []byte) string {
	if t.Path != "" {
		return t.Path
	}
	dir := t.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, FileName(t.Mode, doc))
}

// Compressed reports whether path is written through xz.
func Compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), CompressedSuffix)
}

// Write stores doc at the resolved target and returns the path. The file
// appears atomically: data goes to a temp file in the same directory that
// is renamed into place.
func Write(doc []byte, t Target) (string, error) {
	path := t.Resolve(doc)
	dir := filepath.Dir(path)
	if err := osMkdirAll(dir, 0755); err != nil {
		return "", errors.NewIO("mkdir", dir, err)
	}

	tmp, err := osCreateTemp(dir, ".colordep-*")
	if err != nil {
		return "", errors.NewIO("create", dir, err)
	}
	tmpPath := tmp.Name()

	if err := writeBody(tmp, doc, Compressed(path)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", errors.NewIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", errors.NewIO("close", path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return "", errors.NewIO("chmod", path, err)
	}
	if err := osRename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", errors.NewIO("rename", path, err)
	}
	return path, nil
}

func writeBody(w io.Writer, doc []byte, compress bool) error {
	if !compress {
		_, err := w.Write(doc)
		return err
	}
	zw, err := xzNewWriter(w)
	if err != nil {
		return err
	}
	if _, err := zw.Write(doc); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Read returns the document stored at path, decompressing .xz files.
func Read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if Compressed(path) {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		r = xr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return data, nil
}
