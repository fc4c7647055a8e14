package media

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	CoverJpegQuality   = 80
	FullJpegQuality    = 90
	ItemFileExtension  = ".jpg"
	VideoFileExtension = ".mp4"
)

// Processor turns an uploaded file into stored assets: a normalized
// full-size asset and a cover thumbnail. it relies on a Store
// implementation for saving the results.
type Processor struct {
	store      Store
	coverWidth int
}

func NewProcessor(store Store, coverWidth int) *Processor {
	return &Processor{store: store, coverWidth: coverWidth}
}

// ProcessImage decodes an uploaded image, re-encodes it as a JPEG full
// asset, derives a cover of the configured width, and saves both under
// the given asset type and directory hint. capture time is read from
// EXIF when present.
func (p *Processor) ProcessImage(data []byte, assetType AssetType, dirHint string) (*ProcessedUpload, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode uploaded image: %w", err)
	}
	log.Printf("processor: Decoded uploaded image (format: %s)", format)

	bounds := img.Bounds()
	itemUUID := uuid.New()

	fullRelPath, err := p.encodeAndSave(img, assetType, dirHint, itemUUID.String()+ItemFileExtension, FullJpegQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to save full asset: %w", err)
	}

	cover := imaging.Resize(img, p.coverWidth, 0, imaging.Lanczos)
	coverRelPath, err := p.encodeAndSave(cover, assetType, dirHint, itemUUID.String()+"_cover"+ItemFileExtension, CoverJpegQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to save cover: %w", err)
	}

	return &ProcessedUpload{
		Path:      fullRelPath,
		CoverPath: coverRelPath,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		TakenAt:   TakenAtFromEXIF(data),
	}, nil
}

// ProcessVideo stores an uploaded video as-is. Frame extraction and
// normalization are a transcoder's job, not handled here.
func (p *Processor) ProcessVideo(data []byte, assetType AssetType, dirHint string) (*ProcessedUpload, error) {
	videoUUID := uuid.New()
	relPath, err := p.store.Save(assetType, dirHint, videoUUID.String()+VideoFileExtension, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to save video asset: %w", err)
	}
	return &ProcessedUpload{Path: relPath}, nil
}

func (p *Processor) encodeAndSave(img image.Image, assetType AssetType, dirHint, filename string, quality int) (string, error) {
	reader, writer := io.Pipe()

	go func() {
		defer writer.Close()
		err := imaging.Encode(writer, img, imaging.JPEG, imaging.JPEGQuality(quality))
		if err != nil {
			log.Printf("processor: Failed to encode %s: %v", filename, err)
			writer.CloseWithError(fmt.Errorf("jpeg encoding failed: %w", err))
		}
	}()

	return p.store.Save(assetType, dirHint, filename, reader)
}

// BinaryTypeOf maps an upload content type to the media kind it holds.
// Anything that is neither image nor video is unsupported.
func BinaryTypeOf(contentType string) (string, bool) {
	kind := strings.SplitN(contentType, "/", 2)[0]
	switch kind {
	case "image", "video":
		return kind, true
	default:
		return "", false
	}
}
