package garmin

import (
	"bytes"
)

// FileType is the sniffed type of a downloaded activity file.
type FileType string

const (
	FileTypeFIT     FileType = "fit"
	FileTypeTCX     FileType = "tcx"
	FileTypeGPX     FileType = "gpx"
	FileTypeKML     FileType = "kml"
	FileTypeZIP     FileType = "zip"
	FileTypeUnknown FileType = "unknown"
)

// DetectFileType inspects the leading bytes of data.
func DetectFileType(data []byte) FileType {
	if len(data) >= 12 && bytes.Equal(data[8:12], []byte(".FIT")) {
		return FileTypeFIT
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return FileTypeZIP
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimSpace(head)
	if bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<")) {
		switch {
		case bytes.Contains(head, []byte("<gpx")), bytes.Contains(head, []byte("topografix.com/GPX")):
			return FileTypeGPX
		case bytes.Contains(head, []byte("TrainingCenterDatabase")):
			return FileTypeTCX
		case bytes.Contains(head, []byte("<kml")):
			return FileTypeKML
		}
	}

	return FileTypeUnknown
}

// ContentType maps a file type to the response media type.
func (t FileType) ContentType() string {
	switch t {
	case FileTypeFIT:
		return "application/vnd.ant.fit"
	case FileTypeZIP:
		return "application/zip"
	case FileTypeGPX:
		return "application/gpx+xml"
	case FileTypeTCX:
		return "application/vnd.garmin.tcx+xml"
	case FileTypeKML:
		return "application/vnd.google-earth.kml+xml"
	default:
		return "application/octet-stream"
	}
}
