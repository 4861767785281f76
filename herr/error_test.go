package herr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	cause := errors.New("boom")
	err := New(Protocol, "bad frame", "", cause)

	assert.True(t, errors.Is(err, KindOnly(Protocol)))
	assert.False(t, errors.Is(err, KindOnly(Hpack)))
	assert.ErrorIs(t, err, cause)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "framing", Framing.String())
	assert.Equal(t, "flow_control", FlowControl.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
