// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify maps an artifact's declared media type to the single
// analyzer modality that applies to it. Classification trusts the declared
// type supplied by the upload collaborator; an unrecognized type is a
// rejection, never a best-effort guess.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pishield/pishield/pkg/types"
)

// ErrUnsupportedMediaType is returned for any declared type outside the
// image/*, video/*, and text/* families, including an empty type. It is not
// retryable and is surfaced to the caller verbatim.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// modalityByPrefix is the complete set of accepted MIME prefixes.
var modalityByPrefix = []struct {
	prefix   string
	modality types.Modality
}{
	{"image/", types.ModalityImage},
	{"video/", types.ModalityVideo},
	{"text/", types.ModalityText},
}

// Classify selects the analyzer modality for a declared MIME type. Any MIME
// parameters (e.g. "text/plain; charset=utf-8") are ignored.
func Classify(declaredType string) (types.Modality, error) {
	t := strings.ToLower(strings.TrimSpace(declaredType))
	if t == "" {
		return "", fmt.Errorf("%w: no declared type", ErrUnsupportedMediaType)
	}

	for _, m := range modalityByPrefix {
		if strings.HasPrefix(t, m.prefix) {
			return m.modality, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, declaredType)
}
