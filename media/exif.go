package media

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
)

// TakenAtFromEXIF extracts the capture time from an image's EXIF block,
// if one exists. Files without EXIF (or without a date tag) simply
// yield nil; that is not an error.
func TakenAtFromEXIF(data []byte) *int64 {
	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	taken, err := exifData.DateTime()
	if err != nil {
		return nil
	}

	unix := taken.Unix()
	return &unix
}
