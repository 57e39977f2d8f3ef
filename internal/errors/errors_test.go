package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/edgard/studybuddy/internal/errors"
)

func TestCodeWalksWrapChain(t *testing.T) {
	t.Parallel()

	base := apperrors.NewTranscriptError("Transcript extraction failed", stderrors.New("no captions"))
	wrapped := fmt.Errorf("ask video: %w", base)

	assert.Equal(t, apperrors.CodeTranscriptUnavailable, apperrors.Code(wrapped))
	assert.True(t, apperrors.HasCode(wrapped, apperrors.CodeTranscriptUnavailable))
	assert.Equal(t, apperrors.CodeUnknown, apperrors.Code(stderrors.New("plain")))
	assert.Equal(t, "Transcript extraction failed: no captions", base.Error())
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want int
	}{
		{apperrors.CodeInvalidInput, http.StatusBadRequest},
		{apperrors.CodeTranscriptUnavailable, http.StatusBadRequest},
		{apperrors.CodeNotFound, http.StatusNotFound},
		{apperrors.CodeRateLimited, http.StatusTooManyRequests},
		{apperrors.CodeUnauthorized, http.StatusForbidden},
		{apperrors.CodeUpstream, http.StatusInternalServerError},
		{apperrors.CodeDatabase, http.StatusInternalServerError},
		{apperrors.CodeUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, apperrors.HTTPStatus(tt.code))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "internal error", apperrors.PublicMessage(stderrors.New("secret dsn")))
	assert.Equal(t, "session not found", apperrors.PublicMessage(apperrors.NewNotFoundError("session not found")))
}
