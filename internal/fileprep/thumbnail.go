package fileprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const thumbnailJPEGQuality = 82

// Thumbnail decodes a raster image and scales it so its longest edge is at
// most maxEdge. Formats that can carry transparency are re-encoded as PNG;
// everything else becomes JPEG on a white background.
func Thumbnail(data []byte, maxEdge int) (mimeType string, out []byte, err error) {
	if maxEdge <= 0 {
		return "", nil, errors.New("thumbnail: max edge must be positive")
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("thumbnail: decode: %w", err)
	}

	bounds := src.Bounds()
	w, h := scaledSize(bounds.Dx(), bounds.Dy(), maxEdge)
	keepAlpha := format == "png" || format == "gif" || format == "webp"

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if !keepAlpha {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if keepAlpha {
		if err := png.Encode(&buf, dst); err != nil {
			return "", nil, fmt.Errorf("thumbnail: encode png: %w", err)
		}
		return "image/png", buf.Bytes(), nil
	}
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailJPEGQuality}); err != nil {
		return "", nil, fmt.Errorf("thumbnail: encode jpeg: %w", err)
	}
	return "image/jpeg", buf.Bytes(), nil
}

func scaledSize(w, h, maxEdge int) (int, int) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}
