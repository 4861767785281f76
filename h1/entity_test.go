package h1

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifiedReaderExact(t *testing.T) {
	v := NewVerifiedReader(strings.NewReader("yeah"), 4)
	got, err := io.ReadAll(v)
	require.NoError(t, err)
	assert.Equal(t, "yeah", string(got))
}

func TestVerifiedReaderUnderflow(t *testing.T) {
	v := NewVerifiedReader(strings.NewReader("ye"), 4)
	_, err := io.ReadAll(v)
	assert.Error(t, err)
}

func TestVerifiedReaderOverflow(t *testing.T) {
	v := NewVerifiedReader(strings.NewReader("yeahbuddy"), 4)
	_, err := io.ReadAll(v)
	assert.Error(t, err)
}
