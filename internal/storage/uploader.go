// Package storage stores wizard images in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"homezoo/partner-portal/onboarding-service/internal/wizard"
	objectstore "homezoo/partner-portal/onboarding-service/pkg/storage"
)

var ErrForeignURL = errors.New("url is not served from this bucket")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Options configures an Uploader
type Options struct {
	Bucket    string
	PublicURL string
	// MaxDimension bounds the longer image side. Zero stores originals.
	MaxDimension int
}

// Uploader implements wizard.UploadService on top of an S3 client
type Uploader struct {
	client objectstore.S3Client
	opts   Options
	folder string
	logger *zap.Logger
	now    func() time.Time
}

func NewUploader(client objectstore.S3Client, opts Options, logger *zap.Logger) *Uploader {
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")
	return &Uploader{
		client: client,
		opts:   opts,
		folder: "shared",
		logger: logger,
		now:    time.Now,
	}
}

var _ wizard.UploadService = (*Uploader)(nil)

// ForFolder returns an uploader that keeps its objects under a URL-safe
// folder derived from name, typically the partner id.
func (u *Uploader) ForFolder(name string) *Uploader {
	cp := *u
	if s := slug.Make(name); s != "" {
		cp.folder = s
	}
	return &cp
}

// URLPrefix is the public prefix of every object this uploader writes
func (u *Uploader) URLPrefix() string {
	return u.opts.PublicURL + "/"
}

func (u *Uploader) UploadImages(ctx context.Context, files []wizard.File) ([]string, error) {
	if len(files) == 0 {
		return nil, wizard.ErrNoFiles
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if err := wizard.ValidateImageFile(f); err != nil {
			return urls, err
		}
		url, _, err := u.put(ctx, f.Name, f.ContentType, f.Data)
		if err != nil {
			return urls, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (u *Uploader) UploadImagesBase64(ctx context.Context, images []wizard.Base64Image) ([]wizard.UploadedFile, error) {
	if len(images) == 0 {
		return nil, wizard.ErrNoFiles
	}
	out := make([]wizard.UploadedFile, 0, len(images))
	for _, img := range images {
		data, mime, err := decodeBase64(img)
		if err != nil {
			return out, err
		}
		err = wizard.ValidateImageFile(wizard.File{Name: img.FileName, ContentType: mime, Data: data})
		if err != nil {
			return out, err
		}
		url, key, err := u.put(ctx, img.FileName, mime, data)
		if err != nil {
			return out, err
		}
		out = append(out, wizard.UploadedFile{URL: url, PublicID: key})
	}
	return out, nil
}

// DeleteImage removes an object previously returned by this uploader
func (u *Uploader) DeleteImage(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, u.URLPrefix())
	if !ok || key == "" || u.opts.PublicURL == "" {
		return fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	if err := u.client.Delete(ctx, u.opts.Bucket, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	u.logger.Debug("Deleted image", zap.String("key", key))
	return nil
}

func (u *Uploader) put(ctx context.Context, name, mime string, data []byte) (string, string, error) {
	data, mime = u.normalize(name, mime, data)

	ext, ok := extensions[mime]
	if !ok {
		ext = strings.ToLower(path.Ext(name))
	}
	id := fmt.Sprintf("%d-%s", u.now().UnixNano(), uuid.New().String())
	key := path.Join("properties", u.folder, "images", id+ext)

	if err := u.client.Upload(ctx, u.opts.Bucket, key, mime, bytes.NewReader(data)); err != nil {
		if errors.Is(err, objectstore.ErrEntityTooLarge) {
			return "", "", fmt.Errorf("%w: %w", wizard.ErrPayloadTooLarge, err)
		}
		return "", "", fmt.Errorf("%w: %v", wizard.ErrUploadRejected, err)
	}

	u.logger.Info("Stored image",
		zap.String("key", key),
		zap.String("content_type", mime),
		zap.Int("bytes", len(data)))
	return u.URLPrefix() + key, key, nil
}

// normalize downsizes images whose longer side exceeds MaxDimension.
// Images that cannot be decoded are stored untouched.
func (u *Uploader) normalize(name, mime string, data []byte) ([]byte, string) {
	if u.opts.MaxDimension <= 0 {
		return data, mime
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (cfg.Width <= u.opts.MaxDimension && cfg.Height <= u.opts.MaxDimension) {
		return data, mime
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, mime
	}
	resized := imaging.Fit(img, u.opts.MaxDimension, u.opts.MaxDimension, imaging.Lanczos)

	format, outMime := imaging.JPEG, "image/jpeg"
	if mime == "image/png" {
		format, outMime = imaging.PNG, "image/png"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		u.logger.Warn("Could not re-encode image, storing original", zap.String("file", name), zap.Error(err))
		return data, mime
	}
	u.logger.Debug("Downsized image",
		zap.String("file", name),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height))
	return buf.Bytes(), outMime
}

// decodeBase64 accepts raw base64 or a data URL
func decodeBase64(img wizard.Base64Image) ([]byte, string, error) {
	raw, mime := img.Base64, img.MimeType
	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("%w: malformed data url", wizard.ErrNotAnImage)
		}
		if m, _, _ := strings.Cut(header, ";"); m != "" {
			mime = m
		}
		raw = payload
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid base64: %v", wizard.ErrNotAnImage, err)
	}
	return data, mime, nil
}
