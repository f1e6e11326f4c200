package output

import (
	"context"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/FocuswithJustin/colordep/core/errors"
)

var (
	goos       = runtime.GOOS
	runCommand = func(ctx context.Context, name string, args ...string) error {
		return exec.CommandContext(ctx, name, args...).Run()
	}
)

// URL returns the file:// URL for path.
func URL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if goos == "windows" {
		u.Path = "/" + u.Path
	}
	return u.String()
}

func browserCommand(system, target string) (string, []string) {
	switch system {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

// Open shows the document at path in the default browser.
func Open(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, args := browserCommand(goos, URL(path))
	if err := runCommand(ctx, name, args...); err != nil {
		return errors.NewIO("open", path, err)
	}
	return nil
}
