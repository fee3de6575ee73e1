package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"mime"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 512
	defaultJPEGQuality  = 85
)

var ErrUnsupportedImage = errors.New("media: unsupported image")

type Upload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

type Result struct {
	Bytes       []byte
	ContentType string
	Resized     bool
}

type Processor interface {
	Process(ctx context.Context, upload Upload, maxDimension int) (*Result, error)
}

// ScaleProcessor shrinks images to fit a square bounding box. JPEG stays JPEG;
// everything else is re-encoded as PNG since webp has no Go encoder.
type ScaleProcessor struct {
	maxDimension int
	jpegQuality  int
	scaler       draw.Scaler
}

func NewScaleProcessor(maxDimension int) *ScaleProcessor {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &ScaleProcessor{
		maxDimension: maxDimension,
		jpegQuality:  defaultJPEGQuality,
		scaler:       draw.CatmullRom,
	}
}

func (p *ScaleProcessor) Process(ctx context.Context, upload Upload, maxDimension int) (*Result, error) {
	if upload.Reader == nil {
		return nil, fmt.Errorf("media: empty reader")
	}
	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return nil, fmt.Errorf("media: read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("media: empty image data")
	}

	width, height, format, err := decodeDimensions(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	contentType := contentTypeForFormat(format, upload.ContentType, upload.FileName)

	targetMax := maxDimension
	if targetMax <= 0 {
		targetMax = p.maxDimension
	}
	if width <= targetMax && height <= targetMax {
		return &Result{Bytes: data, ContentType: contentType, Resized: false}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	targetW, targetH := scaleToFit(width, height, targetMax)
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	p.scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if format == "jpeg" {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.jpegQuality})
	} else {
		contentType = "image/png"
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("media: encode: %w", err)
	}

	return &Result{
		Bytes:       buf.Bytes(),
		ContentType: contentType,
		Resized:     true,
	}, nil
}

func decodeDimensions(r io.Reader) (int, int, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, "", fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, format, nil
}

func scaleToFit(width, height, maxDim int) (int, int) {
	if width >= height {
		newW := maxDim
		newH := int(math.Round(float64(height) * float64(maxDim) / float64(width)))
		return ensureMin(newW), ensureMin(newH)
	}
	newH := maxDim
	newW := int(math.Round(float64(width) * float64(maxDim) / float64(height)))
	return ensureMin(newW), ensureMin(newH)
}

func ensureMin(value int) int {
	if value < 1 {
		return 1
	}
	return value
}

func contentTypeForFormat(format, declared, fileName string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	}
	return NormalizeContentType(declared, fileName)
}

// NormalizeContentType trusts the declared type and falls back to the file
// extension.
func NormalizeContentType(value, fileName string) string {
	ct := strings.ToLower(strings.TrimSpace(value))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct != "" && ct != "application/octet-stream" {
		if ct == "image/jpg" {
			return "image/jpeg"
		}
		return ct
	}
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(fileName)))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	}
	if ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return strings.ToLower(mt)
		}
	}
	return "application/octet-stream"
}
