package buddy

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestImageURL(t *testing.T) {
	tests := []struct {
		name   string
		photos map[string]string
		want   string
		wantOK bool
	}{
		{"medium only", map[string]string{"medium": "m.jpg"}, "m.jpg", true},
		{"full beats small", map[string]string{"small": "s.jpg", "full": "f.jpg"}, "f.jpg", true},
		{"large beats medium", map[string]string{"medium": "m.jpg", "large": "l.jpg"}, "l.jpg", true},
		{"no photos", nil, "", false},
		{"unknown sizes", map[string]string{"huge": "h.jpg"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ImageURL(&Listing{PrimaryPhotoCropped: tt.photos})
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ImageURL() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	f := NewImageFetcher(server.Client())

	data, err := f.Fetch(context.Background(), server.URL+"/dog.jpg")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !bytes.Equal(data, []byte("jpeg-bytes")) {
		t.Errorf("Fetch() = %q", data)
	}

	_, err = f.Fetch(context.Background(), server.URL+"/missing.jpg")
	var fetchErr FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error = %v, want FetchError", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("FetchError.StatusCode = %d, want 404", fetchErr.StatusCode)
	}
}
