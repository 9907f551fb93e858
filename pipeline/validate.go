package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"
)

var allowedExtensions = map[string]bool{
	"mp4":  true,
	"avi":  true,
	"mov":  true,
	"mkv":  true,
	"flv":  true,
	"webm": true,
}

func IsAllowedVideo(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return allowedExtensions[ext]
}

func allowedExtensionList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// ValidateUpload checks an uploaded file before any decoding happens.
func ValidateUpload(path string, maxBytes int64) error {
	if !IsAllowedVideo(path) {
		return xerrors.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return xerrors.Errorf("%s: %v: %w", path, err, ErrUnreadableVideo)
	}

	if maxBytes > 0 && fi.Size() > maxBytes {
		return xerrors.Errorf("%s is %d bytes (max %d): %w", filepath.Base(path), fi.Size(), maxBytes, ErrFileTooLarge)
	}

	return nil
}
