// Package thumbnail produces small JPEG previews of images and video frames
// for the remote vision model.
package thumbnail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"namewise/internal/errors"
)

// maxInputBytes caps how much of a file is read for decoding.
const maxInputBytes = 100 << 20

// Options controls thumbnail size and encoding.
type Options struct {
	MaxDimension int
	Quality      int
}

// DefaultOptions matches the configuration defaults
func DefaultOptions() Options {
	return Options{MaxDimension: 1024, Quality: 80}
}

// Thumbnail is an encoded JPEG preview.
type Thumbnail struct {
	Data   []byte
	Width  int
	Height int
	// SourceFormat is the format name reported by the decoder, e.g. "png".
	SourceFormat string
}

// DataURL returns the preview as a data:image/jpeg;base64 URL
func (t Thumbnail) DataURL() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(t.Data)
}

// Image decodes r, scales it to fit within opts.MaxDimension on its longest
// edge (never upscaling) and re-encodes it as JPEG.
func Image(r io.Reader, opts Options) (thumb Thumbnail, err error) {
	if opts.MaxDimension <= 0 || opts.Quality <= 0 {
		opts = DefaultOptions()
	}

	img, format, err := image.Decode(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return Thumbnail{}, errors.NewAnalysisError("cannot decode image", "", errors.AnalysisUnsupported, err)
	}

	// Corrupt images can panic inside the resampler
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.NewAnalysisError("cannot scale image", "", errors.AnalysisUnsupported, fmt.Errorf("%v", rec))
		}
	}()

	// Paletted images are converted before resampling
	if _, isPaletted := img.(*image.Paletted); isPaletted {
		rgba := image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
		img = rgba
	}

	edge := uint(opts.MaxDimension)
	scaled := resize.Thumbnail(edge, edge, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return Thumbnail{}, errors.NewAnalysisError("cannot encode thumbnail", "", errors.AnalysisUnsupported, err)
	}

	b := scaled.Bounds()
	return Thumbnail{
		Data:         buf.Bytes(),
		Width:        b.Dx(),
		Height:       b.Dy(),
		SourceFormat: format,
	}, nil
}
