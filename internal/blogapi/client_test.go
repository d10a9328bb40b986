package blogapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// countingTransport counts round trips and can fail the first n of them.
type countingTransport struct {
	calls    atomic.Int64
	failures int64
	inner    http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := t.calls.Add(1)
	if n <= t.failures {
		return nil, errors.New("connection refused")
	}
	if t.inner == nil {
		return nil, errors.New("no upstream configured")
	}
	return t.inner.RoundTrip(req)
}

func envelope(data string) string {
	return fmt.Sprintf(`{"success":true,"data":%s}`, data)
}

func TestGetRetriesOnceOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, envelope(`{"id":"r1","title":"Soup"}`))
	}))
	defer srv.Close()

	transport := &countingTransport{failures: 1, inner: http.DefaultTransport}
	client := NewClient(srv.URL, WithHTTPClient(&http.Client{Transport: transport}))

	var out struct {
		ID string `json:"id"`
	}
	if err := client.get(context.Background(), "/recipes/r1", "tok", &out); err != nil {
		t.Fatalf("get after one transport failure: %v", err)
	}
	if out.ID != "r1" {
		t.Errorf("decoded id = %q, want r1", out.ID)
	}
	if got := transport.calls.Load(); got != 2 {
		t.Errorf("round trips = %d, want 2 (one retry)", got)
	}
}

func TestGetRetriesAtMostOnce(t *testing.T) {
	transport := &countingTransport{failures: 10}
	client := NewClient("http://backend.invalid", WithHTTPClient(&http.Client{Transport: transport}))

	err := client.get(context.Background(), "/recipes", "tok", nil)
	if KindOf(err) != KindNetwork {
		t.Fatalf("kind = %q, want network", KindOf(err))
	}
	if got := transport.calls.Load(); got != 2 {
		t.Errorf("round trips = %d, want 2", got)
	}
}

func TestMutationsNeverRetry(t *testing.T) {
	transport := &countingTransport{failures: 10}
	client := NewClient("http://backend.invalid", WithHTTPClient(&http.Client{Transport: transport}))

	err := client.send(context.Background(), http.MethodPost, "/recipes", "tok", map[string]string{"title": "x"}, nil)
	if KindOf(err) != KindNetwork {
		t.Fatalf("kind = %q, want network", KindOf(err))
	}
	if got := transport.calls.Load(); got != 1 {
		t.Errorf("round trips = %d, want 1 (mutations must not retry)", got)
	}
}

func TestAuthHeaderOmittedForEmptyToken(t *testing.T) {
	var header atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Authorization"]
		header.Store(fmt.Sprintf("%v|%s", present, r.Header.Get("Authorization")))
		fmt.Fprint(w, envelope("{}"))
	}))
	defer srv.Close()
	client := NewClient(srv.URL)

	if err := client.get(context.Background(), "/recipes", "", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := header.Load().(string); got != "false|" {
		t.Errorf("empty token sent Authorization header: %q", got)
	}

	if err := client.get(context.Background(), "/recipes", "abc123", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := header.Load().(string); got != "true|Bearer abc123" {
		t.Errorf("Authorization = %q, want Bearer abc123", got)
	}
}

func TestErrorKindByStatus(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusNotFound, KindNotFound},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusInternalServerError, KindServer},
		{http.StatusBadGateway, KindServer},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			fmt.Fprint(w, `{"error":"nope"}`)
		}))
		client := NewClient(srv.URL)
		err := client.send(context.Background(), http.MethodPost, "/x", "tok", nil, nil)
		srv.Close()
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: error type %T", tc.status, err)
		}
		if apiErr.Kind != tc.kind {
			t.Errorf("status %d: kind = %q, want %q", tc.status, apiErr.Kind, tc.kind)
		}
		if apiErr.Status != tc.status {
			t.Errorf("status %d: recorded status = %d", tc.status, apiErr.Status)
		}
		if apiErr.Message != "nope" {
			t.Errorf("status %d: message = %q, want backend error text", tc.status, apiErr.Message)
		}
	}
}

func TestTimeoutKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	client := NewClient(srv.URL, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))

	err := client.send(context.Background(), http.MethodPost, "/slow", "tok", nil, nil)
	if KindOf(err) != KindTimeout {
		t.Errorf("kind = %q, want timeout", KindOf(err))
	}
}

func TestEnvelopeDecoding(t *testing.T) {
	t.Run("wrapped data", func(t *testing.T) {
		var out struct {
			Title string `json:"title"`
		}
		if err := decodeEnvelope([]byte(envelope(`{"title":"Pie"}`)), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Title != "Pie" {
			t.Errorf("title = %q", out.Title)
		}
	})

	t.Run("bare body without envelope", func(t *testing.T) {
		var out struct {
			Token string `json:"token"`
		}
		if err := decodeEnvelope([]byte(`{"token":"t1"}`), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Token != "t1" {
			t.Errorf("token = %q", out.Token)
		}
	})

	t.Run("success false carries backend message", func(t *testing.T) {
		err := decodeEnvelope([]byte(`{"success":false,"error":"broken"}`), nil)
		if err == nil || !strings.Contains(err.Error(), "broken") {
			t.Errorf("err = %v, want backend message", err)
		}
	})

	t.Run("empty body is ok", func(t *testing.T) {
		if err := decodeEnvelope(nil, nil); err != nil {
			t.Errorf("decode empty: %v", err)
		}
	})
}

func TestUploadRecipeImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload/recipe-image" {
			t.Errorf("path = %q", r.URL.Path)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		file.Close()
		if header.Filename != "cake.jpg" {
			t.Errorf("filename = %q", header.Filename)
		}
		fmt.Fprint(w, envelope(`{"filename":"2024-cake.jpg"}`))
	}))
	defer srv.Close()
	client := NewClient(srv.URL)

	name, err := client.UploadRecipeImage(context.Background(), "tok", "cake.jpg", strings.NewReader("jpegbytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if name != "2024-cake.jpg" {
		t.Errorf("filename = %q, want backend-assigned name", name)
	}
}

func TestUploadResponseMissingFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, envelope(`{}`))
	}))
	defer srv.Close()
	client := NewClient(srv.URL)

	_, err := client.UploadRecipeImage(context.Background(), "tok", "cake.jpg", strings.NewReader("x"))
	if KindOf(err) != KindServer {
		t.Errorf("kind = %q, want server", KindOf(err))
	}
}
