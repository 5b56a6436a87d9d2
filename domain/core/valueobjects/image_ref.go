package valueobjects

import (
	"errors"
	"path"
	"strings"
)

// ImagePathSegment separates the public base URL from the stored file name
const ImagePathSegment = "/images/"

// ImageRef is the public location of a stored sauce image.
// The file name is always recoverable from the URL.
type ImageRef struct {
	url string
}

// NewImageRef builds a reference from a public base URL and a stored file name
func NewImageRef(baseURL, fileName string) (ImageRef, error) {
	if fileName == "" || strings.ContainsAny(fileName, `/\`) {
		return ImageRef{}, errors.New("image file name must be a bare, non-empty name")
	}
	return ImageRef{url: strings.TrimRight(baseURL, "/") + ImagePathSegment + fileName}, nil
}

// ParseImageRef restores a reference from its stored URL
func ParseImageRef(url string) (ImageRef, error) {
	idx := strings.LastIndex(url, ImagePathSegment)
	if idx < 0 {
		return ImageRef{}, errors.New("image URL must contain " + ImagePathSegment)
	}
	name := url[idx+len(ImagePathSegment):]
	if name == "" || name != path.Base(name) {
		return ImageRef{}, errors.New("image URL must end with a file name")
	}
	return ImageRef{url: url}, nil
}

// URL returns the public URL of the image
func (r ImageRef) URL() string {
	return r.url
}

// FileName returns the name the blob is stored under
func (r ImageRef) FileName() string {
	idx := strings.LastIndex(r.url, ImagePathSegment)
	if idx < 0 {
		return ""
	}
	return r.url[idx+len(ImagePathSegment):]
}

// IsZero reports whether no image is referenced
func (r ImageRef) IsZero() bool {
	return r.url == ""
}

// Equals checks if two references point at the same blob
func (r ImageRef) Equals(other ImageRef) bool {
	return r.url == other.url
}

// String returns the URL
func (r ImageRef) String() string {
	return r.url
}
