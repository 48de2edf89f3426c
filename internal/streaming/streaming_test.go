package streaming

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.WriteTimeout != 30*time.Second {
		t.Errorf("Expected WriteTimeout=30s, got %v", config.WriteTimeout)
	}
	if config.ChunkSize != 256*1024 {
		t.Errorf("Expected ChunkSize=256KB, got %d", config.ChunkSize)
	}
}

func TestTimeoutWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	tw := NewTimeoutWriter(context.Background(), w, DefaultConfig())
	defer tw.Close()

	data := []byte("test data")
	n, err := tw.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}
	if tw.Written() != int64(len(data)) {
		t.Errorf("Expected Written()=%d, got %d", len(data), tw.Written())
	}
	if w.Body.String() != "test data" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestTimeoutWriterChunkedWrites(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		size      int
	}{
		{"Smaller than chunk", 1024, 100},
		{"Exact multiple", 1024, 4096},
		{"Uneven", 1000, 4096},
		{"Chunking disabled", 0, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tw := NewTimeoutWriter(context.Background(), w, Config{WriteTimeout: time.Second, ChunkSize: tt.chunkSize})
			defer tw.Close()

			data := bytes.Repeat([]byte("a"), tt.size)
			n, err := tw.Write(data)
			if err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if n != tt.size || w.Body.Len() != tt.size {
				t.Errorf("wrote %d, body %d, want %d", n, w.Body.Len(), tt.size)
			}
			if tt.chunkSize > 0 && tt.size > tt.chunkSize && !w.Flushed {
				t.Error("expected chunked write to flush")
			}
		})
	}
}

func TestTimeoutWriterClose(t *testing.T) {
	tw := NewTimeoutWriter(context.Background(), httptest.NewRecorder(), DefaultConfig())

	if err := tw.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := tw.Write([]byte("x")); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("Write after Close error = %v, want ErrStreamCanceled", err)
	}
}

func TestTimeoutWriterClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tw := NewTimeoutWriter(ctx, httptest.NewRecorder(), DefaultConfig())
	defer tw.Close()

	cancel()

	if _, err := tw.Write([]byte("x")); !errors.Is(err, ErrClientGone) {
		t.Errorf("Write error = %v, want ErrClientGone", err)
	}
}

// blockingWriter never completes a write until released.
type blockingWriter struct {
	header  http.Header
	release chan struct{}
}

func (b *blockingWriter) Header() http.Header { return b.header }
func (b *blockingWriter) WriteHeader(int)     {}
func (b *blockingWriter) Write(p []byte) (int, error) {
	<-b.release
	return len(p), nil
}

func TestTimeoutWriterWriteTimeout(t *testing.T) {
	bw := &blockingWriter{header: http.Header{}, release: make(chan struct{})}
	defer close(bw.release)

	tw := NewTimeoutWriter(context.Background(), bw, Config{WriteTimeout: 50 * time.Millisecond})
	defer tw.Close()

	start := time.Now()
	_, err := tw.Write([]byte("stalled"))
	if !errors.Is(err, ErrWriteTimeout) {
		t.Fatalf("Write error = %v, want ErrWriteTimeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("write timeout not enforced")
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	errs := []error{ErrWriteTimeout, ErrClientGone, ErrStreamCanceled}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestServeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_1_1.webm")
	content := bytes.Repeat([]byte("v"), 300*1024)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	w.Header().Set("X-Job-Id", "abc")

	n, err := ServeFile(context.Background(), w, File{
		Path: path, Name: "converted_video.webm", ContentType: "video/webm",
	}, DefaultConfig())
	if err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}
	if n != int64(len(content)) {
		t.Errorf("sent %d bytes, want %d", n, len(content))
	}

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	headers := map[string]string{
		"Content-Type":        "video/webm",
		"Content-Length":      "307200",
		"Content-Disposition": `attachment; filename=converted_video.webm`,
		"X-Job-Id":            "abc",
	}
	for k, want := range headers {
		if got := resp.Header.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Error("body does not match file")
	}
}

func TestServeFileDefaultsContentType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	if _, err := ServeFile(context.Background(), w, File{Path: path, Name: "out"}, DefaultConfig()); err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestServeFileMissing(t *testing.T) {
	w := httptest.NewRecorder()
	_, err := ServeFile(context.Background(), w, File{Path: filepath.Join(t.TempDir(), "gone")}, DefaultConfig())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Error("nothing should be written for a missing file")
	}
}

func BenchmarkTimeoutWriterWrite(b *testing.B) {
	tw := NewTimeoutWriter(context.Background(), httptest.NewRecorder(), DefaultConfig())
	defer tw.Close()
	data := make([]byte, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tw.Write(data)
	}
}
