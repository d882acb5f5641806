package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageContainsKindAndPath(t *testing.T) {
	err := ParseError(CodeEmptyContent, "file has no content", "src/a.swift")

	msg := err.Error()
	assert.Contains(t, msg, "parse")
	assert.Contains(t, msg, CodeEmptyContent)
	assert.Contains(t, msg, "src/a.swift")
}

func TestErrorMessageContainsQuery(t *testing.T) {
	err := New(KindSearch, CodeInvalidInput, "bad query", nil).WithQuery("((")
	assert.Contains(t, err.Error(), `"(("`)
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := ProviderError(CodeTimeout, "took too long", nil)
	target := &Error{Code: CodeTimeout}

	assert.True(t, stderrors.Is(err, target))
	assert.False(t, stderrors.Is(err, &Error{Code: CodeRateLimited}))
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := StoreError(CodeIO, "write failed", cause)

	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(ConfigError("bad", nil), KindConfig))
	assert.False(t, IsKind(ConfigError("bad", nil), KindStore))
	assert.False(t, IsKind(fmt.Errorf("plain"), KindConfig))
}

func TestDimensionMismatch(t *testing.T) {
	err := DimensionMismatch(768, 256)
	assert.Equal(t, KindStore, err.Kind)
	assert.Equal(t, CodeDimensionMismatch, err.Code)
	assert.Contains(t, err.Error(), "768")
	assert.Contains(t, err.Error(), "256")
}
