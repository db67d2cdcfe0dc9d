package worker

import (
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"strings"
)

// OCR reads the text drawn in an image file.
type OCR interface {
	Text(ctx context.Context, path string) (string, error)
}

// Gocr runs the gocr command line tool.
type Gocr struct {
	Exe string
}

func (g *Gocr) Text(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, g.Exe, "-i", path).Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return "", &GocrNotInstalledError{Exe: g.Exe}
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

const marginColumns = 6

// tooLong reports whether the address drawn in the image reaches its right
// edge, in which case Forumactif cut it.
func tooLong(img image.Image) bool {
	b := img.Bounds()
	for x := max(b.Max.X-marginColumns, b.Min.X); x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != 0xffff || g != 0xffff || bl != 0xffff {
				return true
			}
		}
	}
	return false
}
