package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-registry/internal/facematch"
	"github.com/kozaktomas/face-registry/internal/faces/mock"
	"github.com/kozaktomas/face-registry/internal/records"
	"github.com/kozaktomas/face-registry/internal/registry"
)

func TestRecognizeImage_VerboseExtractsOnce(t *testing.T) {
	ctx := context.Background()
	extractor := mock.NewMockExtractor()
	extractor.AddImage([]byte("alice"), []float32{0, 0})
	extractor.AddImage([]byte("bob"), []float32{5, 5})

	matcher, err := facematch.NewMatcher(facematch.MetricEuclidean, 0.6)
	require.NoError(t, err)
	service := registry.NewService(records.NewMemoryStore(), extractor, matcher, nil)
	require.NoError(t, service.Register(ctx, "alice", "a.jpg", []byte("alice")))
	require.NoError(t, service.Register(ctx, "bob", "b.jpg", []byte("bob")))
	before := extractor.Calls()

	output, err := recognizeImage(ctx, service, []byte("bob"), true)
	require.NoError(t, err)

	assert.Equal(t, 1, extractor.Calls()-before)
	assert.True(t, output.IsValid)
	assert.Equal(t, "bob", output.ID)
	require.Len(t, output.Candidates, 2)
	assert.False(t, output.Candidates[0].Match)
	assert.True(t, output.Candidates[1].Match)
	assert.Zero(t, output.Candidates[1].Distance)
}

func TestRecognizeImage_Plain(t *testing.T) {
	ctx := context.Background()
	extractor := mock.NewMockExtractor()
	extractor.AddImage([]byte("alice"), []float32{0, 0})

	matcher, err := facematch.NewMatcher(facematch.MetricEuclidean, 0.6)
	require.NoError(t, err)
	service := registry.NewService(records.NewMemoryStore(), extractor, matcher, nil)

	output, err := recognizeImage(ctx, service, []byte("alice"), false)
	require.NoError(t, err)

	assert.False(t, output.IsValid)
	assert.Empty(t, output.Candidates)
	assert.Equal(t, 1, extractor.Calls())
}
