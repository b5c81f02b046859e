package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fpang/ig-link-hub/internal/reply"
)

const (
	testVerifyToken = "my_test_verify_token"
	testAppSecret   = "my_test_app_secret"
)

// fakeDispatcher records every dispatched comment and returns a canned result.
type fakeDispatcher struct {
	result reply.Result
	calls  []struct{ mediaID, commentID string }
}

func (f *fakeDispatcher) DispatchCommentReply(_ context.Context, mediaID, commentID string) reply.Result {
	f.calls = append(f.calls, struct{ mediaID, commentID string }{mediaID, commentID})
	return f.result
}

func newTestHandler() (*Handler, *fakeDispatcher) {
	d := &fakeDispatcher{result: reply.Sent}
	return NewHandler(testVerifyToken, testAppSecret, d), d
}

func signPayload(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postSigned(h *Handler, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", signPayload(testAppSecret, payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- Verification (GET) Tests ---

func TestVerification_ValidToken(t *testing.T) {
	h, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=1158201444",
		nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "1158201444" {
		t.Errorf("expected challenge '1158201444', got '%s'", body)
	}
}

func TestVerification_InvalidToken(t *testing.T) {
	h, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong_token&hub.challenge=12345",
		nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

func TestVerification_MissingMode(t *testing.T) {
	h, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.verify_token="+testVerifyToken+"&hub.challenge=12345",
		nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestVerification_MissingChallenge(t *testing.T) {
	h, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token="+testVerifyToken,
		nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestVerification_InvalidMode(t *testing.T) {
	h, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=unsubscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=12345",
		nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

// --- Event Notification (POST) Tests ---

func TestEvent_CommentDispatched(t *testing.T) {
	h, d := newTestHandler()
	payload := `{"object":"instagram","entry":[{"id":"17841400000000000","time":1520383571,` +
		`"changes":[{"field":"comments","value":{"id":"c-1","text":"hello",` +
		`"from":{"id":"u-9"},"media":{"id":"m-42"}}}]}]}`

	rr := postSigned(h, payload)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "EVENT_RECEIVED" {
		t.Errorf("expected body EVENT_RECEIVED, got %q", body)
	}
	if len(d.calls) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(d.calls))
	}
	if d.calls[0].mediaID != "m-42" || d.calls[0].commentID != "c-1" {
		t.Errorf("dispatched wrong ids: %+v", d.calls[0])
	}
}

func TestEvent_MalformedEntryDoesNotAbortSiblings(t *testing.T) {
	h, d := newTestHandler()
	// First entry: messaging item without a sender. Second entry: valid comment.
	payload := `{"object":"instagram","entry":[` +
		`{"id":"e1","messaging":[{"message":{"mid":"mid-1","text":"hi"}}]},` +
		`{"id":"e2","changes":[{"field":"comments","value":{"id":"c-2",` +
		`"from":{"id":"u-3"},"media":{"id":"m-7"}}}]}]}`

	rr := postSigned(h, payload)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(d.calls) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(d.calls))
	}
	if d.calls[0].mediaID != "m-7" {
		t.Errorf("expected media m-7, got %s", d.calls[0].mediaID)
	}
}

func TestEvent_DispatchFailureStillAcknowledged(t *testing.T) {
	h, d := newTestHandler()
	d.result = reply.Failed
	payload := `{"object":"instagram","entry":[{"id":"e1","changes":[` +
		`{"field":"comments","value":{"id":"c-1","from":{"id":"u"},"media":{"id":"m"}}}]}]}`

	rr := postSigned(h, payload)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200 despite dispatch failure, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "EVENT_RECEIVED" {
		t.Errorf("expected body EVENT_RECEIVED, got %q", body)
	}
}

func TestEvent_UnparseableBody(t *testing.T) {
	h, d := newTestHandler()
	rr := postSigned(h, `{"object":"instagram","entry":[`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if len(d.calls) != 0 {
		t.Errorf("expected no dispatches, got %d", len(d.calls))
	}
}

func TestEvent_UnexpectedObjectIgnored(t *testing.T) {
	h, d := newTestHandler()
	payload := `{"object":"page","entry":[{"id":"e1","changes":[` +
		`{"field":"comments","value":{"id":"c","media":{"id":"m"}}}]}]}`

	rr := postSigned(h, payload)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if len(d.calls) != 0 {
		t.Errorf("expected no dispatches for foreign object, got %d", len(d.calls))
	}
}

func TestEvent_NilDispatcher(t *testing.T) {
	h := NewHandler(testVerifyToken, testAppSecret, nil)
	payload := `{"object":"instagram","entry":[{"id":"e1","changes":[` +
		`{"field":"comments","value":{"id":"c","from":{"id":"u"},"media":{"id":"m"}}}]}]}`

	rr := postSigned(h, payload)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestEvent_InvalidSignature(t *testing.T) {
	h, d := newTestHandler()
	payload := `{"object":"instagram","entry":[]}`
	sig := signPayload("wrong_secret", payload)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", sig)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
	if len(d.calls) != 0 {
		t.Errorf("expected no dispatches, got %d", len(d.calls))
	}
}

func TestEvent_EmptySecretRejectsAll(t *testing.T) {
	// A handler without an App Secret must reject every delivery, even
	// one signed with the empty key it would otherwise hash with.
	d := &fakeDispatcher{result: reply.Sent}
	h := NewHandler(testVerifyToken, "", d)
	payload := `{"object":"instagram","entry":[]}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", signPayload("", payload))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
	if len(d.calls) != 0 {
		t.Errorf("expected no dispatches, got %d", len(d.calls))
	}
}

func TestEvent_MissingSignature(t *testing.T) {
	h, _ := newTestHandler()
	payload := `{"object":"instagram","entry":[]}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

func TestEvent_EmptyBody(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(""))
	req.Header.Set("X-Hub-Signature-256", "sha256=abc123")
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestEvent_MalformedSignaturePrefix(t *testing.T) {
	h, _ := newTestHandler()
	payload := `{"object":"instagram"}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", "md5=abc123")
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

// --- Method Tests ---

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPut, "/webhook", nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}
