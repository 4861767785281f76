package h1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethodIsIdempotent(t *testing.T) {
	assert.True(t, GET.IsIdempotent())
	assert.True(t, DELETE.IsIdempotent())
	assert.False(t, POST.IsIdempotent())
	assert.False(t, PATCH.IsIdempotent())
}

func TestURIString(t *testing.T) {
	u := URI{Scheme: "https", Host: "example.org", Path: "/a/b", Query: "x=1"}
	assert.Equal(t, "https://example.org/a/b?x=1", u.String())

	origin := URI{Path: "/foo"}
	assert.Equal(t, "/foo", origin.String())
	assert.False(t, origin.IsAbsolute())
}

func TestReasonFor(t *testing.T) {
	assert.Equal(t, "OK", ReasonFor(200, nil))
	assert.Equal(t, "OK", ReasonFor(250, nil)) // unknown code falls to class N00 = 200 reason as placeholder
	assert.Equal(t, "Not Found", ReasonFor(404, nil))

	custom := func(code int) (string, bool) {
		if code == 799 {
			return "Custom", true
		}
		return "", false
	}
	assert.Equal(t, "Custom", ReasonFor(799, custom))
}
