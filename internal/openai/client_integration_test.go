//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)

	embedding, err := client.GenerateEmbedding(context.Background(), "Incident postmortem for the March database failover.")

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)

	// Same input twice should not error; vectors may differ slightly, so
	// only the dimension contract is asserted here.
	again, err := client.GenerateEmbedding(context.Background(), "Incident postmortem for the March database failover.")
	require.NoError(t, err)
	assert.Len(t, again, DefaultEmbeddingDimensions)
}
