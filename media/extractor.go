package media

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// MaxDetectionSize bounds the longest side of an image before face
// detection. Larger inputs are downscaled first; this bounds memory and
// latency at a possible cost in recall on very large originals.
const MaxDetectionSize = 1920

// ErrUndecodable is returned when input bytes cannot be decoded as an image.
var ErrUndecodable = errors.New("media: input is not a decodable image")

// Extractor chains the face detector and the recognition model into a
// single pass: image in, one embedding per detected face out, in the
// detector's scan order. An image with no faces yields an empty slice,
// not an error.
type Extractor struct {
	mu         sync.Mutex
	detector   *DNNFaceDetector
	recognizer *FaceRecognitionModel
}

// NewExtractor loads the detection and recognition networks once. The
// networks are not concurrency-safe, so extraction is serialized with
// an internal lock; the Extractor itself can be shared freely.
func NewExtractor(detectorConfigPath, detectorModelPath, recognitionModelPath, recognitionModelName string) *Extractor {
	return &Extractor{
		detector:   NewDNNFaceDetector(detectorConfigPath, detectorModelPath),
		recognizer: NewFaceRecognitionModel(recognitionModelPath, recognitionModelName),
	}
}

func (e *Extractor) Close() {
	e.detector.Close()
	e.recognizer.Close()
}

// Extract decodes image bytes and returns one embedding per detected face.
func (e *Extractor) Extract(data []byte) ([][]float32, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || img.Empty() {
		return nil, fmt.Errorf("%w: decode failed", ErrUndecodable)
	}
	defer img.Close()

	return e.extractFromMat(img)
}

// ExtractFile reads and decodes an image file and returns one embedding
// per detected face.
func (e *Extractor) ExtractFile(path string) ([][]float32, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat image file '%s': %w", path, err)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("%w: '%s'", ErrUndecodable, path)
	}
	defer img.Close()

	return e.extractFromMat(img)
}

func (e *Extractor) extractFromMat(img gocv.Mat) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bounded, resized := downscaleToBound(img, MaxDetectionSize)
	if resized {
		defer bounded.Close()
	}

	detections := e.detector.DetectFaces(bounded)

	embeddings := make([][]float32, 0, len(detections))
	for _, det := range detections {
		region, ok := cropRegion(bounded, det)
		if !ok {
			continue
		}
		embedding := e.recognizer.ExtractEmbedding(region)
		region.Close()
		if embedding == nil {
			log.Printf("extractor: skipping face region %dx%d, no embedding produced", det.W, det.H)
			continue
		}
		embeddings = append(embeddings, embedding)
	}

	return embeddings, nil
}

// downscaleToBound resizes img so its longest side is at most maxSize.
// returns img itself (and false) when it is already within bounds.
func downscaleToBound(img gocv.Mat, maxSize int) (gocv.Mat, bool) {
	rows := img.Rows()
	cols := img.Cols()
	longest := rows
	if cols > longest {
		longest = cols
	}
	if longest <= maxSize {
		return img, false
	}

	scale := float64(maxSize) / float64(longest)
	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(0, 0), scale, scale, gocv.InterpolationArea)
	return resized, true
}

// cropRegion extracts a detection's pixel region, clamped to the image bounds.
func cropRegion(img gocv.Mat, det FaceDetection) (gocv.Mat, bool) {
	x1 := max(0, det.X)
	y1 := max(0, det.Y)
	x2 := min(img.Cols(), det.X+det.W)
	y2 := min(img.Rows(), det.Y+det.H)
	if x2 <= x1 || y2 <= y1 {
		return gocv.Mat{}, false
	}

	region := img.Region(image.Rect(x1, y1, x2, y2))
	return region, true
}
