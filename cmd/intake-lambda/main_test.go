package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func newEvent(method, path, body string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Body:    body,
		Headers: map[string]string{"content-type": "application/json"},
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   method,
				Path:     path,
				SourceIP: "203.0.113.7",
			},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	called := false
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	resp, err := handle(context.Background(), h, newEvent(http.MethodGet, "/_health", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "ok" {
		t.Fatalf("expected ok health response, got %d %q", resp.StatusCode, resp.Body)
	}
	if called {
		t.Fatalf("health check should not reach the router")
	}
}

func TestHandleForwardsRequest(t *testing.T) {
	var got struct {
		method, path, query, contentType, realIP string
		body                                     map[string]string
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.contentType = r.Header.Get("Content-Type")
		got.realIP = r.Header.Get("X-Real-Ip")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	evt := newEvent(http.MethodPost, "/process-appointment", `{"text":"dentist tomorrow 10am"}`)
	evt.RawQueryString = "debug=1"

	resp, err := handle(context.Background(), h, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, resp.StatusCode)
	}
	if resp.Body != `{"status":"ok"}` || resp.IsBase64Encoded {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if resp.Headers["content-type"] != "application/json" {
		t.Fatalf("expected content-type header, got %v", resp.Headers)
	}
	if got.method != http.MethodPost || got.path != "/process-appointment" || got.query != "debug=1" {
		t.Fatalf("unexpected request %s %s?%s", got.method, got.path, got.query)
	}
	if got.contentType != "application/json" || got.realIP != "203.0.113.7" {
		t.Fatalf("headers not forwarded: %q %q", got.contentType, got.realIP)
	}
	if got.body["text"] != "dentist tomorrow 10am" {
		t.Fatalf("body not forwarded: %v", got.body)
	}
}

func TestHandleInvalidBase64Body(t *testing.T) {
	evt := newEvent(http.MethodPost, "/process-appointment", "not-base64")
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), http.NotFoundHandler(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestHandleEncodesBinaryResponses(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(image)
	})

	resp, err := handle(context.Background(), h, newEvent(http.MethodGet, "/admin/intakes/x/image", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsBase64Encoded {
		t.Fatalf("expected base64 body for binary response")
	}
	decoded, err := base64.StdEncoding.DecodeString(resp.Body)
	if err != nil || string(decoded) != string(image) {
		t.Fatalf("unexpected body round trip: %v", err)
	}
}

func TestDecodeBodyBase64(t *testing.T) {
	raw := []byte("text=dentist+friday")
	evt := events.APIGatewayV2HTTPRequest{
		Body:            base64.StdEncoding.EncodeToString(raw),
		IsBase64Encoded: true,
	}
	decoded, err := decodeBody(evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Fatalf("expected %q, got %q", raw, decoded)
	}
}
