package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicID_Stable(t *testing.T) {
	first := DeterministicID("10001abc:0")
	second := DeterministicID("10001abc:0")
	assert.Equal(t, first, second)
}

func TestDeterministicID_DistinctInputs(t *testing.T) {
	ids := map[string]struct{}{}
	for _, key := range []string{"10001abc:0", "10001abc:1", "10001abc:2", "20002def:0"} {
		ids[DeterministicID(key)] = struct{}{}
	}
	assert.Len(t, ids, 4)
}

func TestDeterministicID_IsUUID(t *testing.T) {
	id := DeterministicID("10001abc:3")
	assert.Len(t, id, 36)
	assert.Equal(t, byte('-'), id[8])
}
