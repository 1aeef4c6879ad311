package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUpstreamUnavailable", ErrUpstreamUnavailable},
		{"ErrRetrievalUnavailable", ErrRetrievalUnavailable},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrSearchUnavailable", ErrSearchUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
		{"ErrRerankerUnavailable", ErrRerankerUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUpstreamUnavailable,
		ErrRetrievalUnavailable, ErrLLMUnavailable, ErrEmbeddingUnavailable,
		ErrSearchUnavailable, ErrVectorIndexUnavailable, ErrRerankerUnavailable,
	}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("lexical: %w", ErrRetrievalUnavailable)
	assert.True(t, errors.Is(err, ErrRetrievalUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "retrieval unavailable")
}
