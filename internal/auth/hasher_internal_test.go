// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrScottSevenoaks/autism-tools/pkg/errutil"
)

func TestDecodeHash(t *testing.T) {
	t.Run("decodes current parameters", func(t *testing.T) {
		params, salt, key, err := decodeHash(dummyPasswordHash)
		require.NoError(t, err)
		assert.Equal(t, uint32(argon2Memory), params.memory)
		assert.Equal(t, uint32(argon2Time), params.time)
		assert.Equal(t, uint8(argon2Threads), params.threads)
		assert.Len(t, salt, argon2SaltLen)
		assert.Len(t, key, argon2KeyLen)
	})

	tests := []struct {
		name    string
		hash    string
		message string
	}{
		{"wrong segment count", "a$b$c", "invalid hash format"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported hash algorithm"},
		{"wrong version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported argon2 version"},
		{"threads overflow", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA", "threads value"},
		{"zero time", "$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$aGFzaA", "time value"},
		{"memory too large", "$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdA$aGFzaA", "memory value"},
		{"empty key", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$", "invalid hash key length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := decodeHash(tt.hash)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
