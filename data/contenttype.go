package data

import (
	"path/filepath"
	"strings"
)

// ContentType is the MIME type attached to objects by stores that keep one.
type ContentType string

const (
	ContentTypeTextPlain         ContentType = "text/plain"
	ContentTypeTextHTML          ContentType = "text/html"
	ContentTypeTextCSV           ContentType = "text/csv"
	ContentTypeImageJPEG         ContentType = "image/jpeg"
	ContentTypeImagePNG          ContentType = "image/png"
	ContentTypeApplicationPDF    ContentType = "application/pdf"
	ContentTypeApplicationGZip   ContentType = "application/gzip"
	ContentTypeApplicationJSON   ContentType = "application/json"
	ContentTypeApplicationYAML   ContentType = "application/yaml"
	ContentTypeApplicationStream ContentType = "application/octet-stream"
)

var extensions = map[string]ContentType{
	".txt":  ContentTypeTextPlain,
	".log":  ContentTypeTextPlain,
	".md":   ContentTypeTextPlain,
	".html": ContentTypeTextHTML,
	".csv":  ContentTypeTextCSV,
	".jpg":  ContentTypeImageJPEG,
	".jpeg": ContentTypeImageJPEG,
	".png":  ContentTypeImagePNG,
	".pdf":  ContentTypeApplicationPDF,
	".gz":   ContentTypeApplicationGZip,
	".json": ContentTypeApplicationJSON,
	".yaml": ContentTypeApplicationYAML,
	".yml":  ContentTypeApplicationYAML,
}

// GetMIMEType returns the MIME type for the extension of a real path.
// Unknown extensions are reported as a plain byte stream.
func GetMIMEType(path string) ContentType {
	if index := strings.LastIndex(path, Delimiter); index >= 0 {
		path = path[index+len(Delimiter):]
	}

	if contentType, exists := extensions[strings.ToLower(filepath.Ext(path))]; exists {
		return contentType
	}

	return ContentTypeApplicationStream
}
