// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pishield/pishield/pkg/types"
)

type fakeBlob struct {
	data []byte
	err  error
	urls []string
}

func (f *fakeBlob) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeVision struct {
	ann VisionAnnotation
	err error
}

func (f *fakeVision) Annotate(_ context.Context, _ []byte) (VisionAnnotation, error) {
	return f.ann, f.err
}

type fakeLanguage struct {
	ann  LanguageAnnotation
	err  error
	text string
}

func (f *fakeLanguage) Annotate(_ context.Context, text string) (LanguageAnnotation, error) {
	f.text = text
	return f.ann, f.err
}

type fakeVideo struct {
	ann VideoAnnotation
	err error
	url string
}

func (f *fakeVideo) Annotate(_ context.Context, videoURL string) (VideoAnnotation, error) {
	f.url = videoURL
	return f.ann, f.err
}

func TestFailedWrapsOrdinaryCauses(t *testing.T) {
	cause := errors.New("connection refused")
	err := failed(types.ModalityImage, cause)

	var extErr *ExtractionError
	assert.ErrorAs(t, err, &extErr)
	assert.Equal(t, types.ModalityImage, extErr.Modality)
	assert.ErrorIs(t, err, cause)
}

func TestFailedPassesThroughSignals(t *testing.T) {
	for _, cause := range []error{ErrAnalysisPending, context.Canceled, context.DeadlineExceeded} {
		err := failed(types.ModalityVideo, cause)
		assert.Equal(t, cause, err)

		var extErr *ExtractionError
		assert.False(t, errors.As(err, &extErr))
	}
}
