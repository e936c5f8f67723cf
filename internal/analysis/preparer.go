package analysis

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/spf13/afero"

	"namewise/internal/config"
	"namewise/internal/errors"
	"namewise/internal/log"
	"namewise/internal/thumbnail"
	"namewise/pkg/types"
)

var registerExif sync.Once

// FrameSource extracts a preview frame from a video file.
type FrameSource interface {
	Frame(ctx context.Context, path string) (thumbnail.Thumbnail, error)
}

// Preparer reads files and builds analysis requests.
type Preparer struct {
	fs     afero.Fs
	cfg    *config.Config
	frames FrameSource
	logger log.Logging
}

// NewPreparer creates a preparer reading from fs. Video frames are extracted
// with the ffmpeg binary named in the thumbnail configuration.
func NewPreparer(fs afero.Fs, cfg *config.Config, logger log.Logging) *Preparer {
	registerExif.Do(func() {
		exif.RegisterParsers(mknote.All...)
	})
	if logger == nil {
		logger = log.Default()
	}
	frames := thumbnail.NewFrameExtractor(cfg.Thumbnail.FFmpegPath, cfg.FrameOffsetDuration(), thumbnailOptions(cfg))
	return &Preparer{fs: fs, cfg: cfg, frames: frames, logger: logger}
}

// WithFrameSource replaces the ffmpeg frame extractor
func (p *Preparer) WithFrameSource(frames FrameSource) *Preparer {
	p.frames = frames
	return p
}

func thumbnailOptions(cfg *config.Config) thumbnail.Options {
	return thumbnail.Options{MaxDimension: cfg.Thumbnail.MaxDimension, Quality: cfg.Thumbnail.JPEGQuality}
}

// Prepare builds the request for entry. Images and videos whose preview
// cannot be produced degrade to a textual request rather than failing.
func (p *Preparer) Prepare(ctx context.Context, entry types.FileEntry) (Request, error) {
	logger := p.logger.With(log.F("path", entry.Path))

	kind := p.cfg.KindOf(entry.Ext())
	if kind == types.KindUnsupported {
		return Request{}, errors.NewAnalysisError("unsupported file type", entry.Path, errors.AnalysisUnsupported, nil)
	}

	req := Request{
		Path:  entry.Path,
		Name:  entry.Name,
		Mode:  Textual,
		Kind:  kind,
		Size:  entry.Size,
		Hints: make(map[string]string),
	}
	if entry.HasModTime() {
		req.Hints["Modified"] = entry.ModifiedAt.Format("2006-01-02")
	}

	mime, err := p.detect(entry.Path)
	if err != nil {
		return Request{}, err
	}
	req.MimeType = mime.String()

	switch kind {
	case types.KindImage:
		p.addExifHints(&req, logger)
		thumb, err := p.imageThumbnail(entry.Path)
		if err != nil {
			logger.Debugf("No preview for image, sending metadata only: %v", err)
			break
		}
		req.Mode = Visual
		req.Image = thumb.DataURL()

	case types.KindVideo:
		if p.frames == nil {
			break
		}
		thumb, err := p.frames.Frame(ctx, entry.Path)
		if err != nil {
			logger.Debugf("No frame for video, sending metadata only: %v", err)
			break
		}
		req.Mode = Visual
		req.Image = thumb.DataURL()

	default:
		if isText(mime) {
			text, err := p.sample(entry.Path)
			if err != nil {
				logger.Debugf("Could not sample text content: %v", err)
				break
			}
			req.Text = text
		}
	}

	logger.With(log.F("mode", req.Mode.String()), log.F("mime", req.MimeType)).Debug("Prepared analysis request")
	return req, nil
}

func (p *Preparer) open(path string) (afero.File, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		kind := errors.FileOperationFailed
		switch {
		case os.IsNotExist(err):
			kind = errors.FileNotFound
		case os.IsPermission(err):
			kind = errors.FileAccessDenied
		}
		fileErr := errors.NewFileError("failed to open file", path, kind, err)
		return nil, errors.NewAnalysisError("cannot read content", path, errors.AnalysisUnsupported, fileErr)
	}
	return f, nil
}

func (p *Preparer) detect(path string) (*mimetype.MIME, error) {
	f, err := p.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, errors.NewAnalysisError("content type detection failed", path, errors.AnalysisUnsupported, err)
	}
	return mime, nil
}

func isText(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func (p *Preparer) addExifHints(req *Request, logger log.Logging) {
	f, err := p.open(req.Path)
	if err != nil {
		return
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		logger.Debugf("No EXIF data found or failed to decode: %v", err)
		return
	}

	if dt, err := x.Get(exif.DateTimeOriginal); err == nil {
		if s, _ := dt.StringVal(); s != "" {
			req.Hints["Taken"] = s
		}
	}
	if model, err := x.Get(exif.Model); err == nil {
		if s, _ := model.StringVal(); s != "" {
			req.Hints["Camera"] = strings.TrimSpace(s)
		}
	}
}

func (p *Preparer) imageThumbnail(path string) (thumbnail.Thumbnail, error) {
	f, err := p.open(path)
	if err != nil {
		return thumbnail.Thumbnail{}, err
	}
	defer f.Close()
	return thumbnail.Image(f, thumbnailOptions(p.cfg))
}

// sample reads up to MaxTextBytes, dropping invalid UTF-8 such as a rune cut
// at the limit.
func (p *Preparer) sample(path string) (string, error) {
	limit := p.cfg.Analyzer.MaxTextBytes
	if limit <= 0 {
		return "", nil
	}

	f, err := p.open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, int64(limit)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(buf), "")), nil
}
