package domain

import (
	"fmt"
	"strings"
)

// allowedExtensions is the intake allow-list, matched case-insensitively
// against the substring after the last dot.
var allowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// allowedContentTypes mirrors the MIME allow-list of the classification
// service. A declared content type outside this set is rejected; an empty
// one is tolerated since browsers do not always send it.
var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/pjpeg":     {},
	"image/png":       {},
}

// ValidateFilename accepts a candidate filename when its extension is on
// the allow-list. Empty names and names without an extension are rejected.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return WrapError(ErrValidationRejected, "validate", fmt.Errorf("empty filename"))
	}
	dot := strings.LastIndex(name, ".")
	if dot < 0 || dot == len(name)-1 {
		return WrapError(ErrValidationRejected, "validate", fmt.Errorf("%q has no extension", name))
	}
	ext := strings.ToLower(name[dot+1:])
	if _, ok := allowedExtensions[ext]; !ok {
		return WrapError(ErrValidationRejected, "validate", fmt.Errorf("extension %q not allowed for %q", ext, name))
	}
	return nil
}

// ValidateBatch checks a whole candidate batch before any network call.
// One bad file rejects the entire batch: partially uploaded drops confuse
// the operator more than a clean rejection.
func ValidateBatch(batch []FileUpload) error {
	if len(batch) == 0 {
		return WrapError(ErrValidationRejected, "validate", fmt.Errorf("empty batch"))
	}
	for _, f := range batch {
		if err := ValidateFilename(f.Name); err != nil {
			return err
		}
		if f.ContentType == "" {
			continue
		}
		if _, ok := allowedContentTypes[f.ContentType]; !ok {
			return WrapError(ErrValidationRejected, "validate", fmt.Errorf("content type %q not allowed for %q", f.ContentType, f.Name))
		}
	}
	return nil
}
