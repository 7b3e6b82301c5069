package pdf

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ResolvePath turns a file field path into a filesystem path.
// Relative paths are taken relative to root when root is set.
func ResolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}

// Exists reports whether path names an existing regular file.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking PDF: %w", err)
	}
	return !info.IsDir(), nil
}

// Opener opens PDF files in a viewer.
type Opener struct {
	reader string
}

// NewOpener creates an opener for the given reader preference.
func NewOpener(reader string) *Opener {
	if reader == "" {
		reader = "system"
	}
	return &Opener{reader: reader}
}

// Open starts the viewer on fullPath without waiting for it.
func (o *Opener) Open(fullPath string) error {
	ok, err := Exists(fullPath)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("PDF file does not exist: %s", fullPath)
	}

	cmd, err := o.command(runtime.GOOS, fullPath)
	if err != nil {
		return err
	}
	return cmd.Start()
}

// command returns the viewer command for an OS.
func (o *Opener) command(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		switch o.reader {
		case "skim":
			return exec.Command("open", "-a", "Skim", path), nil
		case "preview":
			return exec.Command("open", "-a", "Preview", path), nil
		default:
			return exec.Command("open", path), nil
		}
	case "linux":
		switch o.reader {
		case "zathura", "evince", "okular":
			return exec.Command(o.reader, path), nil
		default:
			return exec.Command("xdg-open", path), nil
		}
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
