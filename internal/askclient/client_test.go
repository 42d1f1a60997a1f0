package askclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/astro-go/internal/errs"
)

func TestAsk_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/ask", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{"message": "hello", "session_id": "user_1"}, body)

		_, _ = w.Write([]byte(`{"response":"hi there","context":"N/A","response_time":0.01}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL+"/", 0).Ask(context.Background(), "hello", "user_1")
	require.NoError(t, err)
	require.Equal(t, "hi there", got)
}

func TestAsk_Failures(t *testing.T) {
	cases := map[string]struct {
		status  int
		body    string
		wantErr string
		is      error
	}{
		"server error with message": {status: 500, body: `{"error":"boom"}`, wantErr: "boom (status 500)"},
		"bad request":               {status: 400, body: `{"error":"No message received"}`, wantErr: "No message received (status 400)"},
		"non json error page":       {status: 502, body: `<html>bad gateway</html>`, wantErr: "unexpected status code: 502"},
		"non json success":          {status: 200, body: `not json`, is: errs.ErrMalformedResponse},
		"missing response":          {status: 200, body: `{"context":"N/A"}`, is: errs.ErrMalformedResponse},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, 0).Ask(context.Background(), "hello", "user_1")
			require.Error(t, err)
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
			}
			if tc.is != nil {
				require.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestAsk_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Ask(context.Background(), "hello", "user_1")
	require.Error(t, err)
}

func TestAsk_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL, 0).Ask(ctx, "hello", "user_1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
