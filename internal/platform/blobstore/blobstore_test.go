package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"consultations/abc_report.pdf", "consultations_abc_report.pdf"},
		{`a\b:c*d?e"f<g>h|i`, "a_b_c_d_e_f_g_h_i"},
		{"plain.txt", "plain.txt"},
	}
	for _, tt := range tests {
		if got := SanitizeKey(tt.in); got != tt.want {
			t.Errorf("SanitizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	key, err := store.Upload(ctx, "consultation-attachments", strings.NewReader("hello"), 5, "text/plain", "consultations/1_note.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "consultations_1_note.txt" {
		t.Errorf("expected sanitized key, got %q", key)
	}

	ok, err := store.Exists(ctx, "consultation-attachments", key)
	if err != nil || !ok {
		t.Fatalf("expected blob to exist, got %v, %v", ok, err)
	}

	rc, err := store.Download(ctx, "consultation-attachments", key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello" {
		t.Errorf("expected 'hello', got %q", data)
	}

	u, _ := store.URL(ctx, "consultation-attachments", key)
	if u != "memory://consultation-attachments/consultations_1_note.txt" {
		t.Errorf("unexpected url %q", u)
	}
}

func TestMemoryStore_MissingBlob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.Exists(ctx, "nowhere", "x.pdf")
	if err != nil || ok {
		t.Errorf("expected false, nil; got %v, %v", ok, err)
	}
	if _, err := store.Download(ctx, "nowhere", "x.pdf"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
	deleted, err := store.Delete(ctx, "nowhere", "x.pdf")
	if err != nil || deleted {
		t.Errorf("expected false, nil; got %v, %v", deleted, err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key, _ := store.Upload(ctx, "c", strings.NewReader("x"), 1, "text/plain", "a.txt")

	deleted, err := store.Delete(ctx, "c", key)
	if err != nil || !deleted {
		t.Fatalf("expected deletion, got %v, %v", deleted, err)
	}
	if store.Len("c") != 0 {
		t.Errorf("expected empty container, got %d", store.Len("c"))
	}
	deleted, _ = store.Delete(ctx, "c", key)
	if deleted {
		t.Error("second delete should report false")
	}
}

func TestMemoryStore_RequiresNames(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Upload(context.Background(), "", strings.NewReader("x"), 1, "", "a.txt"); !errors.Is(err, ErrMissingContainer) {
		t.Errorf("expected ErrMissingContainer, got %v", err)
	}
	if _, err := store.Upload(context.Background(), "c", strings.NewReader("x"), 1, "", ""); !errors.Is(err, ErrMissingName) {
		t.Errorf("expected ErrMissingName, got %v", err)
	}
}

func TestMemoryStore_ConcurrentUploads(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "file-" + string(rune('a'+i)) + ".txt"
			if _, err := store.Upload(context.Background(), "c", strings.NewReader("x"), 1, "text/plain", name); err != nil {
				t.Errorf("upload %s: %v", name, err)
			}
		}(i)
	}
	wg.Wait()
	if store.Len("c") != 20 {
		t.Errorf("expected 20 blobs, got %d", store.Len("c"))
	}
}

func TestMinioStore_PlainURL(t *testing.T) {
	store, err := NewMinio(MinioOptions{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("NewMinio: %v", err)
	}

	u, err := store.URL(context.Background(), "Consultation-Attachments", "consultations_x.pdf")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if u != "http://localhost:9000/consultation-attachments/consultations_x.pdf" {
		t.Errorf("unexpected url %q", u)
	}
}

func TestMinioStore_PresignedURL(t *testing.T) {
	store, err := NewMinio(MinioOptions{
		Endpoint:   "localhost:9000",
		AccessKey:  "minio",
		SecretKey:  "minio123",
		Region:     "us-east-1",
		PresignTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewMinio: %v", err)
	}

	u, err := store.URL(context.Background(), "consultation-attachments", "consultations_x.pdf")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if !strings.Contains(u, "X-Amz-Signature=") {
		t.Errorf("expected presigned url, got %q", u)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Error("NoSuchKey should be not found")
	}
	if !isNotFound(minio.ErrorResponse{Code: "NoSuchBucket"}) {
		t.Error("NoSuchBucket should be not found")
	}
	if isNotFound(minio.ErrorResponse{Code: "AccessDenied"}) {
		t.Error("AccessDenied should not be not found")
	}
	if !isBucketOwned(minio.ErrorResponse{Code: "BucketAlreadyOwnedByYou"}) {
		t.Error("expected bucket owned")
	}
}
