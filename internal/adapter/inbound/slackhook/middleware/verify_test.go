package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func testVerifier(t *testing.T, secret string, at time.Time) *SlackVerifier {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSlackVerifier(secret, false, logger).WithClock(func() time.Time { return at })
}

func TestVerify_ValidSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte("payload=%7B%22type%22%3A%22block_actions%22%7D")
	ts := strconv.FormatInt(now.Unix(), 10)

	v := testVerifier(t, testSecret, now)
	if err := v.Verify(ts, sign(testSecret, ts, body), body); err != nil {
		t.Errorf("expected valid signature to verify, got: %v", err)
	}
}

func TestVerify_SingleByteMutation(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte("payload=%7B%22type%22%3A%22block_actions%22%7D")
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := sign(testSecret, ts, body)

	mutated := append([]byte(nil), body...)
	mutated[0] ^= 0x01

	v := testVerifier(t, testSecret, now)
	if err := v.Verify(ts, sig, mutated); err == nil {
		t.Error("expected mutated body to fail verification")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte("payload=x")
	ts := strconv.FormatInt(now.Unix(), 10)

	v := testVerifier(t, testSecret, now)
	if err := v.Verify(ts, sign("other-secret", ts, body), body); err == nil {
		t.Error("expected signature from wrong secret to fail")
	}
}

func TestVerify_FreshnessWindow(t *testing.T) {
	signedAt := time.Unix(1700000000, 0)
	body := []byte("payload=x")
	ts := strconv.FormatInt(signedAt.Unix(), 10)
	sig := sign(testSecret, ts, body)

	// Accepted right up to the boundary.
	v := testVerifier(t, testSecret, signedAt.Add(300*time.Second))
	if err := v.Verify(ts, sig, body); err != nil {
		t.Errorf("expected signature at +300s to verify, got: %v", err)
	}

	// Rejected one second past it.
	v = testVerifier(t, testSecret, signedAt.Add(301*time.Second))
	if err := v.Verify(ts, sig, body); err == nil {
		t.Error("expected signature at +301s to be rejected as stale")
	}

	// Future timestamps are just as suspect.
	v = testVerifier(t, testSecret, signedAt.Add(-301*time.Second))
	if err := v.Verify(ts, sig, body); err == nil {
		t.Error("expected signature 301s in the future to be rejected")
	}
}

func TestVerify_NonNumericTimestamp(t *testing.T) {
	v := testVerifier(t, testSecret, time.Now())
	if err := v.Verify("not-a-number", "v0=abc", []byte("x")); err == nil {
		t.Error("expected non-numeric timestamp to be rejected")
	}
}

func TestVerify_MissingHeaders(t *testing.T) {
	v := testVerifier(t, testSecret, time.Now())
	if err := v.Verify("", "", []byte("x")); err == nil {
		t.Error("expected missing headers to be rejected")
	}
}

func TestVerify_FailsClosedWithoutSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte("payload=x")
	ts := strconv.FormatInt(now.Unix(), 10)

	v := testVerifier(t, "", now)
	if err := v.Verify(ts, sign("", ts, body), body); err == nil {
		t.Error("expected verification without a configured secret to fail closed")
	}
}

func TestVerifierMiddleware(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := "payload=%7B%7D"
	ts := strconv.FormatInt(now.Unix(), 10)

	v := testVerifier(t, testSecret, now)
	handler := BodyReader(v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("valid request passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader(body))
		req.Header.Set("X-Slack-Request-Timestamp", ts)
		req.Header.Set("X-Slack-Signature", sign(testSecret, ts, []byte(body)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("bad signature gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader(body))
		req.Header.Set("X-Slack-Request-Timestamp", ts)
		req.Header.Set("X-Slack-Signature", "v0="+strings.Repeat("0", 64))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("missing headers gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}

func TestVerifierMiddleware_DevBypass(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := NewSlackVerifier("", true, logger)

	handler := BodyReader(v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})))

	req := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader("payload=x"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected bypass to admit unsigned request, got %d", rec.Code)
	}
}
