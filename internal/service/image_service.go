package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"bookswap/internal/config"
	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	CoverMaxSize                = 1080
	AvatarSize                  = 512
	WebPQuality                 = 70
)

// ImageKind selects how an upload is normalised and where it is stored.
type ImageKind string

const (
	ImageKindCover  ImageKind = "books"
	ImageKindAvatar ImageKind = "avatars"
)

type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage is the public URL and storage key of a normalised upload.
type StoredImage struct {
	URL string
	Key string
}

// ImageService converts uploads to WebP and writes them to object storage.
type ImageService struct {
	store              storage.ObjectStore
	maxUploadSizeBytes int64
}

func NewImageService(store storage.ObjectStore, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Store validates the upload, normalises it for kind and saves it.
func (s *ImageService) Store(ctx context.Context, kind ImageKind, in UploadImageInput) (*StoredImage, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	sniffed, ok := uploadFormats[http.DetectContentType(in.Content)]
	if !ok {
		return nil, models.NewValidationError("Invalid image type")
	}
	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil || format != sniffed {
		return nil, models.NewValidationError("Invalid image file")
	}
	if declared := mediaType(in.ContentType); strings.HasPrefix(declared, "image/") && uploadFormats[declared] != format {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	out := resizeToFit(decoded, CoverMaxSize)
	if kind == ImageKindAvatar {
		out = resizeToFit(cropSquare(decoded), AvatarSize)
	}

	encoded, err := encodeWebP(out)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	key := storage.NewKey(string(kind), ".webp")
	url, err := s.store.Put(ctx, key, encoded, "image/webp")
	if err != nil {
		return nil, models.NewDependencyError("storage", err)
	}
	return &StoredImage{URL: url, Key: key}, nil
}

// Remove deletes stored objects. Failures are logged and skipped.
func (s *ImageService) Remove(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete stored image", "key", key, "error", err)
		}
	}
}

// cropSquare keeps the centred square of src.
func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	if side <= 0 || b.Dx() == b.Dy() {
		return src
	}
	offset := image.Pt(b.Min.X+(b.Dx()-side)/2, b.Min.Y+(b.Dy()-side)/2)
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), src, offset, draw.Src)
	return dst
}

// resizeToFit scales src down, preserving aspect ratio, until it fits in a
// limit x limit box. Smaller images are returned untouched.
func resizeToFit(src image.Image, limit int) image.Image {
	b := src.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest <= limit || min(b.Dx(), b.Dy()) <= 0 {
		return src
	}
	scale := float64(limit) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0,
		max(int(float64(b.Dx())*scale), 1),
		max(int(float64(b.Dy())*scale), 1)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	err := webp.Encode(&buf, img, &webp.Options{Quality: WebPQuality})
	return buf.Bytes(), err
}

// uploadFormats maps an accepted media type to the image package format name.
var uploadFormats = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// mediaType strips parameters and case from a Content-Type header.
func mediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
