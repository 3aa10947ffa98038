package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")
	err := storeUnavailable("create paper", "abcd", cause)

	assert.Equal(t, "STORE_UNAVAILABLE: create paper (key=abcd): connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsStoreUnavailable(err))
	assert.False(t, IsInvalidInput(err))
}

func TestCodeOfWrapped(t *testing.T) {
	err := &Error{Code: CodeAlreadyRegistered, Message: "paper already registered"}
	wrapped := errors.Join(errors.New("outer"), err)

	assert.Equal(t, CodeAlreadyRegistered, CodeOf(wrapped))
	assert.True(t, IsAlreadyRegistered(wrapped))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestBoundsErrorCarriesField(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RegisterSection(context.Background(), authorA, SectionRequest{
		Author:      authorA,
		SectionType: strings.Repeat("x", 33),
		ContentHash: "c1",
	})
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeInvalidInput, re.Code)
	assert.Equal(t, "section_type", re.Field)
}
