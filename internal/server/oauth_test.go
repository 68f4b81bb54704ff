package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestOAuthHandler(t *testing.T) {
	t.Run("Valid Callback", func(t *testing.T) {
		handler := NewOAuthHandler("expected-state")

		req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=expected-state", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page in response")
		}

		select {
		case result := <-handler.Result():
			if err := result.Error(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Code != "auth-code" {
				t.Errorf("expected code 'auth-code', got %s", result.Code)
			}
		case <-time.After(time.Second):
			t.Fatal("expected a result on the channel")
		}
	})

	t.Run("State Mismatch", func(t *testing.T) {
		handler := NewOAuthHandler("expected-state")

		req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=forged", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected error for state mismatch")
		}
	})

	t.Run("User Denied Consent", func(t *testing.T) {
		handler := NewOAuthHandler("expected-state")

		req := httptest.NewRequest(http.MethodGet,
			"/callback?state=expected-state&error=access_denied&error_description=User+denied", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Fatal("expected error for denied consent")
		}
		if !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected denial reason in error, got %v", result.Error())
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		handler := NewOAuthHandler("expected-state")

		first := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=expected-state", nil)
		handler.ServeHTTP(httptest.NewRecorder(), first)

		second := httptest.NewRequest(http.MethodGet, "/callback?code=other-code&state=expected-state", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, second)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replayed callback, got %d", rec.Code)
		}

		// Only the first code is delivered.
		result := <-handler.Result()
		if result.Code != "auth-code" {
			t.Errorf("expected first code to win, got %s", result.Code)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	t.Run("Start And Shutdown", func(t *testing.T) {
		handler := NewOAuthHandler("state")
		srv := NewCallbackServer("127.0.0.1", 0, handler)

		if err := srv.Start(); err != nil {
			t.Fatalf("expected server to start, got %v", err)
		}

		resp, err := http.Get("http://" + srv.Addr() + "/callback?code=c&state=state")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}

		if err := srv.Shutdown(t.Context()); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	})

	t.Run("Port Conflict", func(t *testing.T) {
		first := NewCallbackServer("127.0.0.1", 0, NewOAuthHandler("a"))
		if err := first.Start(); err != nil {
			t.Fatalf("expected first server to start, got %v", err)
		}
		defer first.Shutdown(t.Context())

		_, portStr, err := net.SplitHostPort(first.Addr())
		if err != nil {
			t.Fatalf("failed to parse address: %v", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			t.Fatalf("failed to parse port: %v", err)
		}

		second := NewCallbackServer("127.0.0.1", port, NewOAuthHandler("b"))
		if err := second.Start(); err == nil {
			second.Shutdown(t.Context())
			t.Error("expected bind error on occupied port")
		}
	})
}
