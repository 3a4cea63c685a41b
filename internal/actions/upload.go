package actions

import (
	"context"
	"mime"
	"slices"
	"strconv"
	"strings"
)

// AllowedAudioTypes are the MIME types accepted for upload.
var AllowedAudioTypes = []string{
	"audio/mpeg",
	"audio/mp3",
	"audio/mp4",
	"audio/m4a",
	"audio/x-m4a",
	"audio/wav",
	"audio/x-wav",
	"audio/wave",
	"audio/aac",
	"audio/aacp",
	"audio/ogg",
	"audio/opus",
	"audio/webm",
	"audio/flac",
	"audio/x-flac",
	"audio/3gpp",
	"audio/3gpp2",
}

// IsAllowedAudioType reports whether mimeType, ignoring parameters and case,
// is an accepted audio type.
func IsAllowedAudioType(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	return slices.Contains(AllowedAudioTypes, mediaType)
}

// FileFormat returns the extension of fileName without the dot, or "Unknown".
func FileFormat(fileName string) string {
	i := strings.LastIndex(fileName, ".")
	if i < 0 || i == len(fileName)-1 {
		return "Unknown"
	}
	return fileName[i+1:]
}

// UploadCheck describes a file the client is about to upload.
type UploadCheck struct {
	FileSize int64
	Duration *float64
}

// ValidateUpload checks a pending upload against the size limit before the
// client sends any bytes to storage.
func (s *Service) ValidateUpload(ctx context.Context, in UploadCheck) error {
	id, err := authenticate(ctx, "")
	if err != nil {
		return err
	}

	if err := s.checkUploadLimits(in.FileSize); err != nil {
		s.logger.Info("upload rejected",
			"user_id", id.UserID,
			"file_size", in.FileSize,
			"reason", err.Error(),
		)
		return err
	}

	attrs := []any{
		"user_id", id.UserID,
		"file_size", in.FileSize,
		"file_size_mb", float64(in.FileSize) / (1024 * 1024),
	}
	if in.Duration != nil {
		attrs = append(attrs, "duration_seconds", *in.Duration)
	}
	s.logger.Info("upload validated", attrs...)
	return nil
}

func (s *Service) checkUploadLimits(size int64) error {
	if size <= 0 {
		return invalid("Invalid file size")
	}
	if size > s.maxFileSize {
		limitMB := strconv.FormatFloat(float64(s.maxFileSize)/(1024*1024), 'f', -1, 64)
		return invalid("File exceeds %sMB plan limit. Upgrade your plan to upload larger files or more projects.", limitMB)
	}
	return nil
}
