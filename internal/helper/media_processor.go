// internal/helper/media_processor.go
package helper

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "github.com/mat/besticon/ico"
)

const (
	MaxMediaSizeMB    = 16
	MaxMediaSizeBytes = MaxMediaSizeMB * 1024 * 1024

	// WhatsApp preview thumbnails are tiny; 72px matches what official
	// clients attach.
	thumbnailDimension = 72

	MaxDecompressedSizeMB = 50
	maxDecompressedSize   = MaxDecompressedSizeMB * 1024 * 1024
)

// ValidateMedia runs the cheap checks on an uploaded attachment before it is
// handed to the send path.
func ValidateMedia(data []byte, mimeType string) error {
	if len(data) == 0 {
		return errors.New("empty media file")
	}
	if len(data) > MaxMediaSizeBytes {
		return fmt.Errorf("media too large: maximum %d MB", MaxMediaSizeMB)
	}
	if DetectMaliciousContent(data) {
		return errors.New("malicious content detected in file")
	}
	return nil
}

// DetectMaliciousContent scans the head of a file for embedded scripts.
func DetectMaliciousContent(data []byte) bool {
	if len(data) > 8192 {
		data = data[:8192]
	}
	content := strings.ToLower(string(data))

	maliciousPatterns := []string{
		"<?php",
		"<script",
		"eval(",
		"base64_decode",
		"shell_exec",
		"<iframe",
		"javascript:",
		"onerror=",
		"onload=",
	}

	for _, pattern := range maliciousPatterns {
		if strings.Contains(content, pattern) {
			return true
		}
	}

	return false
}

// BuildJPEGThumbnail produces the small JPEG preview attached to outgoing
// image messages. Returns nil without error for undecodable input; a missing
// thumbnail only degrades the preview.
func BuildJPEGThumbnail(data []byte, mimeType string) ([]byte, error) {
	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, nil
	}

	// Guard against decompression bombs before resizing.
	bounds := img.Bounds()
	if bounds.Dx()*bounds.Dy()*4 > maxDecompressedSize {
		return nil, fmt.Errorf("image too large when decompressed")
	}

	thumb := imaging.Fit(img, thumbnailDimension, thumbnailDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte, mimeType string) (image.Image, error) {
	r := bytes.NewReader(data)

	switch mimeType {
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	case "image/webp":
		return webp.Decode(r)
	default:
		// Generic fallback; the ico decoder is registered via import.
		img, _, err := image.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("unsupported image format or corrupted file")
		}
		return img, nil
	}
}
