package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

// formatVersion is bumped whenever the envelope layout changes.
const formatVersion = 1

// ErrCorrupt marks an entry whose payload is truncated, fails its checksum
// or was written by an incompatible version.
var ErrCorrupt = errors.New("corrupt cache entry")

// envelope is the on-disk representation of an entry.
type envelope struct {
	Version  int
	Checksum uint64
	Payload  []byte
}

func encode(value any) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(value); err != nil {
		return nil, err
	}

	env := envelope{
		Version:  formatVersion,
		Checksum: Checksum(payload.Bytes()),
		Payload:  payload.Bytes(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decode(data []byte, value any) error {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		return err
	}

	if env.Version != formatVersion {
		return fmt.Errorf("%w: format version %d, want %d", ErrCorrupt, env.Version, formatVersion)
	}

	if Checksum(env.Payload) != env.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	return gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(value)
}
