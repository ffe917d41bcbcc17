package imaging

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

// DefaultThumbnailSize is the thumbnail width used when none is given.
const DefaultThumbnailSize = 200

// folderWorkers bounds the number of images processed at once by ListFolder.
const folderWorkers = 5

// FileMD5 returns the hex MD5 digest of a file's contents. It is used as a
// stable content identifier, not for security.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ThumbnailResult contains a downscaled JPEG preview of an image.
type ThumbnailResult struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	DataURL string `json:"data_url"`
}

// Thumbnail scales buf to the given width (preserving aspect ratio, never
// upscaling) and returns it as a base64 JPEG data URL.
func Thumbnail(buf *ImageBuffer, width int) (*ThumbnailResult, error) {
	if width <= 0 {
		width = DefaultThumbnailSize
	}
	var src = buf
	if buf.Width > width {
		scaled := imaging.Resize(buf.ToDisplay(), width, 0, imaging.Lanczos)
		var err error
		if src, err = FromImage(scaled); err != nil {
			return nil, err
		}
	}

	data, err := EncodeBytes(src, FormatJPEG, EncodeOptions{Quality: 80})
	if err != nil {
		return nil, err
	}
	return &ThumbnailResult{
		Width:   src.Width,
		Height:  src.Height,
		DataURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// FitPreview scales buf down so neither side exceeds maxSide. Buffers that
// already fit are returned unchanged.
func FitPreview(buf *ImageBuffer, maxSide int) (*ImageBuffer, error) {
	if maxSide <= 0 || (buf.Width <= maxSide && buf.Height <= maxSide) {
		return buf, nil
	}
	return FromImage(imaging.Fit(buf.ToDisplay(), maxSide, maxSide, imaging.Lanczos))
}

// FolderImage describes one image found by ListFolder.
type FolderImage struct {
	ID        string           `json:"id"`
	Path      string           `json:"path"`
	Name      string           `json:"name"`
	Thumbnail *ThumbnailResult `json:"thumbnail,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// FolderResult lists the images of a directory in name order.
type FolderResult struct {
	Folder string        `json:"folder"`
	Count  int           `json:"count"`
	Images []FolderImage `json:"images"`
}

// ListFolder returns every decodable image directly inside dir together with
// its MD5 content id and a thumbnail. At most five images are processed at a
// time. A missing directory yields an empty result, matching a folder with
// no images. Images that fail to decode are listed with an Error instead of
// aborting the whole listing.
func ListFolder(ctx context.Context, dir string, thumbWidth int) (*FolderResult, error) {
	result := &FolderResult{Folder: dir, Images: []FolderImage{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	images := make([]FolderImage, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(folderWorkers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			images[i] = describeFolderImage(path, thumbWidth)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Images = images
	result.Count = len(images)
	return result, nil
}

func describeFolderImage(path string, thumbWidth int) FolderImage {
	base := filepath.Base(path)
	item := FolderImage{
		Path: path,
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
	}

	id, err := FileMD5(path)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.ID = id

	f, err := os.Open(path)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	defer f.Close()

	buf, _, err := Decode(f)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	thumb, err := Thumbnail(buf, thumbWidth)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.Thumbnail = thumb
	return item
}
