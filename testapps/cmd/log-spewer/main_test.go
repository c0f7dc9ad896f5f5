package main

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/go-go-golems/caddy-pretty-print/pkg/record"
	"github.com/stretchr/testify/require"
)

func TestAccessRecord_Decodes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		b, err := json.Marshal(accessRecord(rng, 1700000000.25))
		require.NoError(t, err)

		rec, err := record.Decode(string(b))
		require.NoError(t, err)
		require.NotNil(t, rec.Request)
		require.NotNil(t, rec.Status)
		require.NotNil(t, rec.Duration)
	}
}
