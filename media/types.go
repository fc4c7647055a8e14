package media

type AssetType string

const (
	AssetTypeItem       AssetType = "item"
	AssetTypeEnrollment AssetType = "enrollment"
)

// ProcessedUpload is the result of running an uploaded file through the
// ingestion pipeline: the stored full asset, its cover, and dimensions.
type ProcessedUpload struct {
	Path      string // relative to the media storage root
	CoverPath string // empty for videos, no frame extraction here
	Width     int
	Height    int
	TakenAt   *int64 // EXIF capture time, Unix timestamp
}
