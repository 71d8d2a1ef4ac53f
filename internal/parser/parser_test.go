package parser

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBase(t *testing.T) *url.URL {
	u, err := url.Parse("http://example.com")
	require.NoError(t, err)
	return u
}

// E1 — POST with content-length.
func TestParsePostWithContentLength(t *testing.T) {
	p := NewRequestParser(mustBase(t))
	input := []byte("POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 11\r\n\r\nhello world")

	_, err := p.ParseBuf(input)
	require.NoError(t, err)

	assert.True(t, p.IsComplete())
	req := p.Request()
	assert.Equal(t, "POST", req.Method().String())
	assert.Equal(t, "/", req.Path())

	body, err := req.Body().Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}

// E2 — chunked response.
func TestParseChunkedResponse(t *testing.T) {
	p := NewResponseParser()
	input := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\n12345\r\nA\r\n1234567890\r\n0\r\n\r\n")

	_, perr := p.ParseBuf(input)
	require.NoError(t, perr)
	assert.True(t, p.IsComplete())

	resp := p.Response()
	assert.Equal(t, 200, resp.Status().Code)

	full, err := resp.Body().FullConcatenated()
	require.NoError(t, err)
	assert.Equal(t, "123451234567890", string(full))
	assert.Equal(t, 2, resp.Body().ChunkCount())
}

// Byte-split independence: feeding the same bytes in arbitrarily small
// pieces must reach the same final state as one call.
func TestByteSplitIndependence(t *testing.T) {
	input := []byte("POST /foo HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhowdy")

	whole := NewRequestParser(mustBase(t))
	_, werr := whole.ParseBuf(input)
	require.NoError(t, werr)

	split := NewRequestParser(mustBase(t))
	for i := 0; i < len(input); i++ {
		_, serr := split.ParseBuf(input[i : i+1])
		require.NoError(t, serr)
	}

	assert.Equal(t, whole.IsComplete(), split.IsComplete())
	wb, _ := whole.Request().Body().Bytes()
	sb, _ := split.Request().Body().Bytes()
	assert.Equal(t, string(wb), string(sb))
	assert.Equal(t, whole.Request().Path(), split.Request().Path())
}

// State machine safety: invalid transitions are rejected.
func TestInvalidStateTransition(t *testing.T) {
	p := NewRequestParser(mustBase(t))
	err := p.updateState(InBody) // StartRequest -> InBody is not permitted
	require.Error(t, err)
	var target *InvalidStateTransitionError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, StartRequest, target.From)
	assert.Equal(t, InBody, target.To)
}

func TestNoBodyRequestCompletesAtHeaders(t *testing.T) {
	p := NewRequestParser(mustBase(t))
	_, err := p.ParseBuf([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)
	assert.True(t, p.IsComplete())
	assert.True(t, p.Ready())
}

func TestUnexpectedEOF(t *testing.T) {
	p := NewRequestParser(mustBase(t))
	// EOF before the request line's newline leaves the parser in InMethod,
	// where EOF is not a legitimate terminator.
	_, err := p.ParseBuf([]byte("GET / HTTP/1.1"))
	require.NoError(t, err)
	err = p.ParseEOF()
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestInvalidMethod(t *testing.T) {
	p := NewRequestParser(mustBase(t))
	_, err := p.ParseBuf([]byte("FROB / HTTP/1.1\r\n"))
	require.Error(t, err)
	var target *InvalidMethodError
	require.ErrorAs(t, err, &target)
}
