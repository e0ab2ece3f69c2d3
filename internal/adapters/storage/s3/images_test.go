package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"nutrition-call-assistant/internal/ports/storage"
)

func setFakeCredentials(t *testing.T) {
	t.Helper()
	missing := filepath.Join(t.TempDir(), "none")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", missing)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", missing)
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
}

func TestImageStore_SaveAgainstS3CompatibleEndpoint(t *testing.T) {
	setFakeCredentials(t)

	var gotPath, gotMethod, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewImageStore(context.Background(), Config{
		Bucket:   "meals",
		Region:   "us-east-1",
		Endpoint: srv.URL,
		Prefix:   "uploads",
	})
	if err != nil {
		t.Fatalf("NewImageStore: %v", err)
	}

	url, err := s.Save(context.Background(), "img.jpg", "image/jpeg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if gotMethod != http.MethodPut || gotPath != "/meals/uploads/img.jpg" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotType != "image/jpeg" || string(gotBody) != "jpeg-bytes" {
		t.Fatalf("unexpected object: %q %q", gotType, gotBody)
	}
	if url != srv.URL+"/meals/uploads/img.jpg" {
		t.Fatalf("unexpected public url %q", url)
	}
}

func TestImageStore_Validation(t *testing.T) {
	setFakeCredentials(t)

	if _, err := NewImageStore(context.Background(), Config{}); err == nil {
		t.Fatalf("bucket is required")
	}

	s, err := NewImageStore(context.Background(), Config{Bucket: "b", PublicURL: "https://cdn.example.com/"})
	if err != nil {
		t.Fatalf("NewImageStore: %v", err)
	}
	if s.publicURL != "https://cdn.example.com" {
		t.Fatalf("public url not normalized: %q", s.publicURL)
	}
	if _, err := s.Save(context.Background(), "a/b.png", "image/png", []byte("x")); !errors.Is(err, storage.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}
