package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/media"
)

type stubImageProcessor struct {
	output      []byte
	contentType string
	err         error

	calls   int
	lastMax int
}

func (s *stubImageProcessor) Process(ctx context.Context, upload media.Upload, maxDimension int) (*media.Result, error) {
	s.calls++
	s.lastMax = maxDimension
	if s.err != nil {
		return nil, s.err
	}
	return &media.Result{Bytes: append([]byte(nil), s.output...), ContentType: s.contentType, Resized: true}, nil
}

func TestPrepareImageUsesProcessorOutput(t *testing.T) {
	stub := &stubImageProcessor{output: []byte("scaled"), contentType: "image/png"}
	upload := media.Upload{Reader: strings.NewReader("original"), Size: 8, FileName: "me.webp", ContentType: "image/webp"}

	reader, size, ct, err := prepareImageForUpload(context.Background(), stub, upload, 128)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	body, _ := io.ReadAll(reader)
	if string(body) != "scaled" || size != 6 || ct != "image/png" {
		t.Fatalf("unexpected output %q %d %s", body, size, ct)
	}
	if stub.calls != 1 || stub.lastMax != 128 {
		t.Fatalf("processor called %d times with max %d", stub.calls, stub.lastMax)
	}
	if imageExtension(ct) != ".png" {
		t.Fatalf("unexpected extension %q", imageExtension(ct))
	}
}

func TestPrepareImageRejectsUnsupported(t *testing.T) {
	stub := &stubImageProcessor{err: media.ErrUnsupportedImage}
	_, _, _, err := prepareImageForUpload(context.Background(), stub, media.Upload{Reader: strings.NewReader("%PDF")}, 64)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPrepareImageWithoutProcessor(t *testing.T) {
	upload := media.Upload{Reader: strings.NewReader("raw"), Size: 3, FileName: "photo.JPG"}
	reader, size, ct, err := prepareImageForUpload(context.Background(), nil, upload, 64)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if reader != upload.Reader || size != 3 || ct != "image/jpeg" {
		t.Fatalf("expected pass-through, got %d %s", size, ct)
	}
}
