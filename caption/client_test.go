package caption

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCaptionSendsTemplateAndBoxes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.TemplateID != "181913649" || len(req.Boxes) != 3 || req.Boxes[1].Text != "" || req.Boxes[2].Text != "c" {
			t.Errorf("unexpected payload %+v", req)
		}
		if req.Username != "" {
			t.Errorf("credentials should be omitted by default")
		}
		w.Write([]byte(`{"success":true,"data":{"url":"https://i.imgflip.com/x.jpg","page_url":"https://imgflip.com/i/x"}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL})
	data, err := c.Caption(context.Background(), NewRequest("181913649", []string{"a", "", "c"}))
	if err != nil {
		t.Fatalf("caption: %v", err)
	}
	if data.URL != "https://i.imgflip.com/x.jpg" || data.PageURL != "https://imgflip.com/i/x" {
		t.Fatalf("unexpected data %+v", data)
	}
}

func TestCaptionFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rejected":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"error":"template_id is required"}`))
		case "/nourl":
			w.Write([]byte(`{"success":true,"data":{"url":""}}`))
		default:
			w.Write([]byte(`<html>oops</html>`))
		}
	}))
	defer srv.Close()

	_, err := NewClient(Options{Endpoint: srv.URL + "/rejected"}).Caption(context.Background(), NewRequest("1", nil))
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Status != http.StatusBadRequest || svcErr.Message != "template_id is required" {
		t.Fatalf("expected service error, got %v", err)
	}

	if _, err := NewClient(Options{Endpoint: srv.URL + "/nourl"}).Caption(context.Background(), NewRequest("1", nil)); !errors.Is(err, ErrNoURL) {
		t.Fatalf("expected ErrNoURL, got %v", err)
	}

	if _, err := NewClient(Options{Endpoint: srv.URL + "/html"}).Caption(context.Background(), NewRequest("1", nil)); err == nil {
		t.Fatalf("non-json response should fail")
	}

	if _, err := NewClient(Options{Endpoint: srv.URL}).Caption(context.Background(), NewRequest(" ", nil)); err == nil {
		t.Fatalf("missing template id should fail before sending")
	}
}

func TestCaptionForwardsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "u" || req.Password != "p" {
			t.Errorf("credentials not forwarded: %+v", req)
		}
		w.Write([]byte(`{"success":true,"data":{"url":"https://x/y.jpg"}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, Username: "u", Password: "p"})
	if _, err := c.Caption(context.Background(), NewRequest("1", []string{"a"})); err != nil {
		t.Fatalf("caption: %v", err)
	}
	if NewClient(Options{}).Endpoint() != DefaultEndpoint {
		t.Fatalf("default endpoint")
	}
}
