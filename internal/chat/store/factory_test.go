package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeopts "github.com/kart-io/catalog-chat/pkg/options/store"
)

func TestOpenMemory(t *testing.T) {
	s, err := Open(&storeopts.Options{Backend: storeopts.BackendMemory}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(&storeopts.Options{Backend: "faiss"}, nil, nil)
	assert.ErrorContains(t, err, "faiss")
}
