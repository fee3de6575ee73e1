package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/media"
)

// prepareImageForUpload runs the upload through the processor when one is
// set. Without a processor the original stream is passed through unchanged.
func prepareImageForUpload(ctx context.Context, processor media.Processor, upload media.Upload, maxDimension int) (io.Reader, int64, string, error) {
	if processor == nil {
		return upload.Reader, upload.Size, media.NormalizeContentType(upload.ContentType, upload.FileName), nil
	}
	result, err := processor.Process(ctx, upload, maxDimension)
	if err != nil {
		return nil, 0, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return bytes.NewReader(result.Bytes), int64(len(result.Bytes)), result.ContentType, nil
}

func imageExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}
