package h1

import "testing"

func TestDecideConnectionScenarios(t *testing.T) {
	// spec §8 scenario 3, first case.
	value, closeAfter := DecideConnection(HTTP10, HTTP11, ConnKeepAlive, ConnNone, false)
	if value != "keep-alive" || closeAfter {
		t.Fatalf("got (%q, %v), want (keep-alive, false)", value, closeAfter)
	}

	// spec §8 scenario 3, second case.
	value, closeAfter = DecideConnection(HTTP11, HTTP10, ConnNone, ConnKeepAlive, true)
	if value != "close" || !closeAfter {
		t.Fatalf("got (%q, %v), want (close, true)", value, closeAfter)
	}
}

func TestDecideConnectionTruthTable(t *testing.T) {
	cases := []struct {
		reqProto, resProto Protocol
		reqConn, resConn   ConnDirective
		closeDelim         bool
		value              string
		closeAfter         bool
	}{
		{HTTP11, HTTP11, ConnNone, ConnNone, false, "", false},
		{HTTP11, HTTP11, ConnClose, ConnNone, false, "close", true},
		{HTTP11, HTTP11, ConnNone, ConnClose, false, "close", true},
		{HTTP11, HTTP11, ConnKeepAlive, ConnNone, false, "", false},
		{HTTP10, HTTP10, ConnNone, ConnNone, false, "close", true},
		{HTTP10, HTTP10, ConnKeepAlive, ConnKeepAlive, false, "keep-alive", false},
		{HTTP10, HTTP10, ConnKeepAlive, ConnNone, false, "close", true},
		{HTTP11, HTTP11, ConnNone, ConnNone, true, "close", true},
	}
	for _, c := range cases {
		value, closeAfter := DecideConnection(c.reqProto, c.resProto, c.reqConn, c.resConn, c.closeDelim)
		if value != c.value || closeAfter != c.closeAfter {
			t.Errorf("DecideConnection(%v,%v,%v,%v,%v) = (%q,%v), want (%q,%v)",
				c.reqProto, c.resProto, c.reqConn, c.resConn, c.closeDelim,
				value, closeAfter, c.value, c.closeAfter)
		}
	}
}
