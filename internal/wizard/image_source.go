package wizard

import (
	"context"
	"fmt"
	"strings"
)

// MaxImageBytes is the per-file limit of the browser path
const MaxImageBytes = 10 << 20

// ImageSource captures images and uploads them, returning the stored URLs.
type ImageSource interface {
	Capture(ctx context.Context, uploads UploadService) ([]string, error)
}

// Capabilities describes the client environment
type Capabilities struct {
	NativeShell bool
}

// SelectImageSource picks the capture path for the environment
func SelectImageSource(caps Capabilities, bridge CameraBridge, files []File) ImageSource {
	if caps.NativeShell && bridge != nil {
		return &NativeCameraSource{Bridge: bridge}
	}
	return &FilePickerSource{Files: files}
}

// NativeCameraSource takes one photo through the native shell bridge
type NativeCameraSource struct {
	Bridge CameraBridge
}

func (s *NativeCameraSource) Capture(ctx context.Context, uploads UploadService) ([]string, error) {
	shot, err := s.Bridge.OpenNativeCamera(ctx)
	if err != nil {
		return nil, fmt.Errorf("native camera: %w", err)
	}
	if shot == nil || !shot.Success || shot.Base64 == "" {
		return nil, ErrCaptureCancelled
	}
	mime := shot.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotAnImage, mime)
	}

	files, err := uploads.UploadImagesBase64(ctx, []Base64Image{{
		Base64:   shot.Base64,
		MimeType: mime,
		FileName: shot.FileName,
	}})
	if err != nil {
		return nil, classifyUploadError(err)
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if f.URL != "" {
			urls = append(urls, f.URL)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no url returned", ErrUploadRejected)
	}
	return urls, nil
}

// FilePickerSource uploads files chosen in the browser
type FilePickerSource struct {
	Files []File
}

func (s *FilePickerSource) Capture(ctx context.Context, uploads UploadService) ([]string, error) {
	if len(s.Files) == 0 {
		return nil, ErrNoFiles
	}
	for _, f := range s.Files {
		if err := ValidateImageFile(f); err != nil {
			return nil, err
		}
	}
	urls, err := uploads.UploadImages(ctx, s.Files)
	if err != nil {
		// files stored before the failure are never routed anywhere
		discardUploaded(ctx, uploads, urls)
		return nil, classifyUploadError(err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no url returned", ErrUploadRejected)
	}
	return urls, nil
}

// ValidateImageFile checks the MIME type and size of a picked file
func ValidateImageFile(f File) error {
	if !strings.HasPrefix(f.ContentType, "image/") {
		return fmt.Errorf("%w: %s", ErrNotAnImage, f.Name)
	}
	size := f.Size
	if size == 0 {
		size = int64(len(f.Data))
	}
	if size > MaxImageBytes {
		return fmt.Errorf("%w: %s", ErrFileTooLarge, f.Name)
	}
	return nil
}

// discardUploaded is a best-effort delete of stored objects nobody references
func discardUploaded(ctx context.Context, uploads UploadService, urls []string) {
	for _, u := range urls {
		_ = uploads.DeleteImage(ctx, u)
	}
}
