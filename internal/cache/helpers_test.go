package cache

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeEnvelope(data []byte, env *envelope) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(env)
}

func encodeEnvelope(t *testing.T, env envelope) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(env))
	return buf.Bytes()
}
