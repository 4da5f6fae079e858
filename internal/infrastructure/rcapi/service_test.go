package rcapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetProfile(t *testing.T) {
	t.Run("sends bearer token and returns body verbatim", func(t *testing.T) {
		body := `{"name":"Ada Lovelace","pronouns":"she/her"}`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/profiles/me" {
				t.Errorf("Got path %q, want /profiles/me", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
				t.Errorf("Got Authorization %q", got)
			}
			if got := r.Header.Get("Accept"); got != "application/json" {
				t.Errorf("Got Accept %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}))
		defer srv.Close()

		svc := NewService(srv.URL)
		got, err := svc.GetProfile(context.Background(), "secret-token")
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if string(got) != body {
			t.Errorf("Got body %q, want it unchanged", string(got))
		}
	})

	t.Run("non-2xx maps to DownstreamError", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
		}{
			{"unauthorized", http.StatusUnauthorized},
			{"server error", http.StatusInternalServerError},
			{"rate limited", http.StatusTooManyRequests},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, "downstream says no", tt.status)
				}))
				defer srv.Close()

				svc := NewService(srv.URL)
				_, err := svc.GetProfile(context.Background(), "secret-token")
				if err == nil {
					t.Fatal("Expected an error")
				}

				var downstreamErr *DownstreamError
				if !errors.As(err, &downstreamErr) {
					t.Fatalf("Got error %T, want *DownstreamError", err)
				}
				if downstreamErr.Status != tt.status {
					t.Errorf("Got status %d, want %d", downstreamErr.Status, tt.status)
				}
			})
		}
	})

	t.Run("transport failure is not a DownstreamError", func(t *testing.T) {
		svc := NewService("http://127.0.0.1:1")

		_, err := svc.GetProfile(context.Background(), "secret-token")
		if err == nil {
			t.Fatal("Expected an error")
		}

		var downstreamErr *DownstreamError
		if errors.As(err, &downstreamErr) {
			t.Error("Transport failure should not classify as DownstreamError")
		}
	})
}

func TestGetBatchProfiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profiles" {
			t.Errorf("Got path %q, want /profiles", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("batch_id"); got != "42" {
			t.Errorf("Got batch_id %q, want 42", got)
		}
		if got := q.Get("limit"); got != "25" {
			t.Errorf("Got limit %q, want 25", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Grace Hopper"}]`))
	}))
	defer srv.Close()

	svc := NewService(srv.URL)
	got, err := svc.GetBatchProfiles(context.Background(), 42, 25, "secret-token")
	if err != nil {
		t.Fatalf("GetBatchProfiles failed: %v", err)
	}
	if string(got) != `[{"name":"Grace Hopper"}]` {
		t.Errorf("Got body %q", string(got))
	}
}

func TestBaseURLTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profiles/me" {
			t.Errorf("Got path %q, want /profiles/me", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	svc := NewService(srv.URL + "/")
	if _, err := svc.GetProfile(context.Background(), "tok"); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
}
