package cricapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crickstream/cricket-ingest/internal/ingest"
)

func TestNewValidatesEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Endpoint: "ftp://example.com"})
	require.Error(t, err)

	f, err := New(Config{Endpoint: "https://example.com/v1/currentMatches", APIKey: "k"})
	require.NoError(t, err)
	require.Contains(t, f.endpoint, "apikey=k")
}

func TestFetchDecodesMatchList(t *testing.T) {
	t.Parallel()

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": [
				{"id": "m1", "teams": ["A", "B"]},
				{"id": "m2", "teams": ["C", "D"]}
			]
		}`))
	}))
	defer srv.Close()

	f, err := New(Config{Endpoint: srv.URL, APIKey: "secret", Timeout: 5 * time.Second})
	require.NoError(t, err)

	result, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "secret", gotKey)
	require.Len(t, result.Records, 2)
	require.NotEmpty(t, result.Body)
}

func TestFetchNonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f, err := New(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	var fe *ingest.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ingest.FetchErrStatus, fe.Kind)
	require.Equal(t, http.StatusTooManyRequests, fe.StatusCode)
}

func TestFetchDecodeErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"invalid json":     `{"data": [`,
		"missing data key": `{"status": "success", "info": {}}`,
		"data not a list":  `{"data": {"id": "m1"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			f, err := New(Config{Endpoint: srv.URL})
			require.NoError(t, err)

			_, err = f.Fetch(context.Background())
			var fe *ingest.FetchError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, ingest.FetchErrDecode, fe.Kind)
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // immediately, so the address refuses connections

	f, err := New(Config{Endpoint: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	var fe *ingest.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ingest.FetchErrNetwork, fe.Kind)
}

func TestFetchTimeoutIsNetworkError(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	f, err := New(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	var fe *ingest.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ingest.FetchErrNetwork, fe.Kind)
}
