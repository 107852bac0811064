package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	limiter := make(chan time.Time, 10)
	for i := 0; i < 10; i++ {
		limiter <- time.Now()
	}
	return &Client{
		baseURL:   srv.URL,
		apiKey:    "test-key",
		apiKeyHdr: "X-API-Key",
		fromName:  "Camp Office",
		fromEmail: "office@camp.test",
		http:      srv.Client(),
		limiter:   limiter,
	}
}

func TestSendReturnsMessageId(t *testing.T) {
	var gotReq sendRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/send" {
			t.Errorf("path = %q, want /v1/send", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "msg-123"})
	})

	id, err := client.Send(context.Background(), Message{
		To:      "camper@example.com",
		Subject: "Your camp ID card",
		Body:    "see attached",
		Attachments: []Attachment{
			{Filename: "C1-0001.png", ContentType: "image/png", ContentBase64: "aGk="},
		},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "msg-123" {
		t.Errorf("message id = %q, want msg-123", id)
	}
	if gotReq.FromEmail != "office@camp.test" || gotReq.To != "camper@example.com" {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.Attachments) != 1 || gotReq.Attachments[0].Filename != "C1-0001.png" {
		t.Errorf("attachments = %+v", gotReq.Attachments)
	}
}

func TestSendFallsBackToIdField(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "alt-456"})
	})

	id, err := client.Send(context.Background(), Message{To: "a@b.test", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "alt-456" {
		t.Errorf("message id = %q, want alt-456", id)
	}
}

func TestSendErrors(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid recipient", http.StatusUnprocessableEntity)
	})

	if _, err := client.Send(context.Background(), Message{To: "bad", Subject: "s", Body: "b"}); err == nil {
		t.Error("expected error on non-2xx response")
	}

	if _, err := client.Send(context.Background(), Message{Subject: "s", Body: "b"}); err == nil {
		t.Error("expected error on empty recipient")
	}
}
