package middleware

import (
	"net/http"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	hdr.Set("X-Custom", "value")
	body := []byte(`{"id":1,"status":"ACTIVE"}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	check.Nil(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	check.True(t, ok)
	check.Equal(t, http.StatusOK, status)
	check.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	check.Equal(t, "value", gotHdr.Get("X-Custom"))
	check.Equal(t, string(body), string(gotBody))
}

func TestPayloadEmptyBody(t *testing.T) {
	bs, err := encodePayload(http.StatusOK, http.Header{}, nil)
	check.Nil(t, err)

	status, _, body, ok := decodePayload(bs)
	check.True(t, ok)
	check.Equal(t, http.StatusOK, status)
	check.Equal(t, 0, len(body))
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, _, _, ok := decodePayload(nil)
	check.False(t, ok)

	_, _, _, ok = decodePayload([]byte{1, 2, 3})
	check.False(t, ok)

	// header length pointing past the end of the buffer
	bad, err := encodePayload(200, http.Header{"A": {"b"}}, []byte("x"))
	check.Nil(t, err)
	_, _, _, ok = decodePayload(bad[:9])
	check.False(t, ok)
}
