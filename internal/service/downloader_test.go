package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"ticketmirror/internal/client/zendesk"
)

func newTestDownloader(t *testing.T, baseURL string) *AttachmentDownloader {
	t.Helper()
	client := zendesk.NewClient(nil, baseURL, "ops@example.com", "token")
	return NewAttachmentDownloader(client, t.TempDir(), true, zap.NewNop())
}

func testAttachment(t *testing.T, payload string) *zendesk.Attachment {
	t.Helper()
	var a zendesk.Attachment
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		t.Fatalf("decode attachment: %v", err)
	}
	return &a
}

func TestDownloaderFetchAndReuse(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, "blob-bytes")
	}))
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)
	a := testAttachment(t, fmt.Sprintf(`{"id":42,"file_name":"trace.log","content_url":"%s/blob"}`, srv.URL))

	path, err := d.Fetch(context.Background(), 100, a)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "blob-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
	if !strings.Contains(path, "100") || !strings.Contains(path, "42__trace.log") {
		t.Fatalf("unexpected layout %q", path)
	}

	again, err := d.Fetch(context.Background(), 100, a)
	if err != nil {
		t.Fatalf("Fetch (reuse): %v", err)
	}
	if again != path {
		t.Fatalf("reuse returned %q, want %q", again, path)
	}
	if hits != 1 {
		t.Fatalf("existing file must not be re-downloaded, server hit %d times", hits)
	}
}

func TestDownloaderDisabled(t *testing.T) {
	d := NewAttachmentDownloader(nil, t.TempDir(), false, zap.NewNop())
	a := testAttachment(t, `{"id":1,"file_name":"x","content_url":"https://example.com/x"}`)
	path, err := d.Fetch(context.Background(), 1, a)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if path != "" {
		t.Fatalf("disabled downloader must return an empty path, got %q", path)
	}
}

func TestDownloaderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)
	a := testAttachment(t, fmt.Sprintf(`{"id":42,"file_name":"gone.bin","content_url":"%s/gone"}`, srv.URL))
	if _, err := d.Fetch(context.Background(), 100, a); err == nil {
		t.Fatalf("Fetch must fail on a 404")
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"":                       "attachment.bin",
		"report.pdf":             "report.pdf",
		"../../etc/passwd":       ".._.._etc_passwd",
		"a\\b:c":                 "a_b_c",
		"a*b?.log":               "a_b_.log",
		`<v>|"q"`:                "_v___q_",
		strings.Repeat("x", 300): strings.Repeat("x", maxAttachmentFileName),
	}
	for in, want := range cases {
		if got := sanitizeFileName(in); got != want {
			t.Fatalf("sanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
