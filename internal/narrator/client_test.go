package narrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func testClient(url string) *HTTPClient {
	return NewHTTPClient(HTTPConfig{
		BaseURL:    url,
		Timeout:    time.Second,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
	})
}

func TestAsk_LenientReplyParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		require.NoError(t, decodeBody(r, &req))
		assert.Equal(t, "is it tall?", req.Question)
		assert.Equal(t, "lighthouse", req.Content)

		// models love fences and prose around the payload
		w.Write([]byte("Sure, here you go:\n```json\n" +
			`{"answer":"Yes","score":12,"feedback":"very warm","progress":150}` +
			"\n```"))
	}))
	defer srv.Close()

	v, err := testClient(srv.URL).Ask(context.Background(), "is it tall?", "lighthouse")
	require.NoError(t, err)
	assert.Equal(t, "yes", v.Answer)
	assert.Equal(t, 10, v.Score, "score clamped to the contract range")
	assert.Equal(t, 100, v.Progress)
	assert.Equal(t, "very warm", v.Feedback)
}

func TestAsk_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"answer":"no","score":3,"feedback":"cold","progress":5}`))
	}))
	defer srv.Close()

	v, err := testClient(srv.URL).Ask(context.Background(), "q", "c")
	require.NoError(t, err)
	assert.Equal(t, "no", v.Answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAsk_PersistentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Ask(context.Background(), "q", "c")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseVerdict(t *testing.T) {
	_, err := parseVerdict([]byte("no json here"))
	assert.Error(t, err)

	_, err = parseVerdict([]byte(`{"answer":"maybe","score":5}`))
	assert.Error(t, err, "answer outside the contract")

	v, err := parseVerdict([]byte(`{"answer":" UNRELATED ","score":-4,"progress":-1}`))
	require.NoError(t, err)
	assert.Equal(t, "unrelated", v.Answer)
	assert.Equal(t, 1, v.Score)
	assert.Equal(t, 0, v.Progress)
}
