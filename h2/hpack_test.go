package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHPACKEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewHPACK()
	dec := NewHPACK()

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set(":method", "GET")

	var block []byte
	block, err := enc.AppendField(block, hf, true)
	require.NoError(t, err)

	hf2 := AcquireHeaderField()
	defer ReleaseHeaderField(hf2)
	hf2.Set("content-type", "application/json")
	block, err = enc.AppendField(block, hf2, true)
	require.NoError(t, err)

	fields, err := dec.Decode(block)
	require.NoError(t, err)
	defer ReleaseFields(fields)

	require.Len(t, fields, 2)
	assert.Equal(t, ":method", fields[0].Key())
	assert.Equal(t, "GET", fields[0].Value())
	assert.True(t, fields[0].IsPseudo())

	assert.Equal(t, "content-type", fields[1].Key())
	assert.Equal(t, "application/json", fields[1].Value())
	assert.False(t, fields[1].IsPseudo())
}

func TestHPACKSensibleFieldNeverIndexed(t *testing.T) {
	enc := NewHPACK()
	dec := NewHPACK()

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set("authorization", "Bearer secret")
	hf.SetSensible(true)

	block, err := enc.AppendField(nil, hf, true)
	require.NoError(t, err)

	fields, err := dec.Decode(block)
	require.NoError(t, err)
	defer ReleaseFields(fields)

	require.Len(t, fields, 1)
	assert.True(t, fields[0].IsSensible())
	assert.Equal(t, "Bearer secret", fields[0].Value())
}

func TestHPACKDynamicTableSizeUpdateIsApplied(t *testing.T) {
	enc := NewHPACK()
	dec := NewHPACK()
	dec.SetPeerMaxTableSize(128)
	enc.SetMaxDynamicTableSize(128)

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set("x-custom", "value")

	block, err := enc.AppendField(nil, hf, true)
	require.NoError(t, err)

	fields, err := dec.Decode(block)
	require.NoError(t, err)
	defer ReleaseFields(fields)
	require.Len(t, fields, 1)
	assert.Equal(t, "value", fields[0].Value())
}

func TestHeaderFieldSizeAccountsForOverhead(t *testing.T) {
	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set("a", "b")
	// RFC 7541 §4.1: name + value + 32 bytes of entry overhead.
	assert.Equal(t, 34, hf.Size())
}
