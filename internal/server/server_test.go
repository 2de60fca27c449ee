package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testApp() *App {
	return NewApp(nil, "", 1<<20, nil)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(testApp().Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAnalyzeRequiresFile(t *testing.T) {
	srv := httptest.NewServer(testApp().Router())
	defer srv.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("session", "abc")
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/analyze", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a missing file, got %d", resp.StatusCode)
	}
}

func TestAnalyzeRejectsUnsupportedType(t *testing.T) {
	srv := httptest.NewServer(testApp().Router())
	defer srv.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("screenshot", "report.txt")
	fw.Write([]byte("not an image"))
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/analyze", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for a text upload, got %d", resp.StatusCode)
	}
}

func TestResetSession(t *testing.T) {
	app := testApp()
	app.storeMemory("abc", app.memoryFor("abc"))
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sessions/abc/reset", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}

	app.mu.Lock()
	_, exists := app.sessions["abc"]
	app.mu.Unlock()
	if exists {
		t.Error("session memory should be dropped after reset")
	}
}
