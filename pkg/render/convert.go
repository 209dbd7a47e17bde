package render

import (
	"bytes"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
)

// DefaultPNGScale is the raster scale factor used when none is given:
// 2x resolution for high-DPI displays.
const DefaultPNGScale = 2.0

// ToPDF converts SVG bytes to PDF using the external rsvg-convert tool.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func ToPDF(svg []byte) ([]byte, error) {
	return rsvgConvert(svg, "--format", "pdf")
}

// ToPNG converts SVG bytes to PNG using the external rsvg-convert tool.
// A non-positive scale falls back to [DefaultPNGScale].
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func ToPNG(svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = DefaultPNGScale
	}
	return rsvgConvert(svg, "--format", "png",
		"--zoom", strconv.FormatFloat(scale, 'f', -1, 64))
}

func rsvgConvert(svg []byte, args ...string) ([]byte, error) {
	path, err := exec.LookPath("rsvg-convert")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupported, err,
			"rsvg-convert not found, install librsvg")
	}

	cmd := exec.Command(path, args...)
	cmd.Stdin = bytes.NewReader(svg)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "rsvg-convert: %s", msg)
	}
	return out.Bytes(), nil
}
