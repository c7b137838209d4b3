package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// =============================================================================
// Client Tests (remote.go)
// =============================================================================

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ClientConfig
		wantBase string
		wantUser string
	}{
		{
			name: "with all fields",
			cfg: ClientConfig{
				BaseURL:  "https://registry.example.com",
				Username: "root",
				Password: "secret",
				Timeout:  5 * time.Second,
				Headers:  map[string]string{"X-Custom": "value"},
			},
			wantBase: "https://registry.example.com",
			wantUser: "root",
		},
		{
			name:     "with default timeout",
			cfg:      ClientConfig{BaseURL: "https://registry.example.com"},
			wantBase: "https://registry.example.com",
		},
		{
			name: "empty config",
			cfg:  ClientConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg)
			if client == nil {
				t.Fatal("NewClient returned nil")
			}
			if client.BaseURL() != tt.wantBase {
				t.Errorf("baseURL = %q, want %q", client.BaseURL(), tt.wantBase)
			}
			if client.username != tt.wantUser {
				t.Errorf("username = %q, want %q", client.username, tt.wantUser)
			}
			if client.httpClient == nil || client.httpClient.Timeout == 0 {
				t.Error("httpClient should be set with a timeout")
			}
		})
	}
}

func TestClientRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/test" {
			t.Errorf("Path = %q, want /test", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "root" || pass != "secret" {
			t.Errorf("BasicAuth = %q/%q/%v, want root/secret", user, pass, ok)
		}
		if r.Header.Get("X-Custom") != "custom-value" {
			t.Errorf("X-Custom = %q, want custom-value", r.Header.Get("X-Custom"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "hello"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:  server.URL,
		Username: "root",
		Password: "secret",
		Headers:  map[string]string{"X-Custom": "custom-value"},
	})

	var result map[string]string
	err := client.Request(context.Background(), http.MethodPost, "/test", map[string]string{"key": "value"}, &result)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if result["message"] != "hello" {
		t.Errorf("result[message] = %q, want %q", result["message"], "hello")
	}
}

func TestClientRequest_NoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("Authorization header should be empty when no credentials are set")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	if err := client.Request(context.Background(), http.MethodGet, "/test", nil, nil); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
}

func TestClientRequest_ErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"bad request", http.StatusBadRequest, "invalid input"},
		{"unauthorized", http.StatusUnauthorized, "invalid credentials"},
		{"not found", http.StatusNotFound, "resource not found"},
		{"internal error", http.StatusInternalServerError, "server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(ClientConfig{BaseURL: server.URL})

			_, err := client.RequestRaw(context.Background(), http.MethodGet, "/test", nil)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			remoteErr, ok := err.(*RemoteError)
			if !ok {
				t.Fatalf("Expected *RemoteError, got %T", err)
			}
			if remoteErr.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", remoteErr.StatusCode, tt.statusCode)
			}
			if remoteErr.Message != tt.body {
				t.Errorf("Message = %q, want %q", remoteErr.Message, tt.body)
			}
		})
	}
}

func TestClientRequestRaw_Body(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"b":1,"a":2}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	data, err := client.RequestRaw(context.Background(), http.MethodGet, "/", nil)
	if err != nil {
		t.Fatalf("RequestRaw failed: %v", err)
	}
	if string(data) != `{"b":1,"a":2}` {
		t.Errorf("body = %q", data)
	}
}

func TestClientRequest_InvalidBody(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost"})

	// Using a channel which cannot be marshaled to JSON
	invalidBody := make(chan int)

	err := client.Request(context.Background(), http.MethodPost, "/test", invalidBody, nil)
	if err == nil {
		t.Fatal("Expected error for unmarshalable body")
	}
}

func TestClientRequest_InvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("not valid json"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var result map[string]string
	err := client.Request(context.Background(), http.MethodGet, "/test", nil, &result)
	if err == nil {
		t.Fatal("Expected error for invalid JSON response")
	}
}

func TestClientRequest_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Timeout: 10 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := client.Request(ctx, http.MethodGet, "/test", nil, nil)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestRemoteError_Error(t *testing.T) {
	err := &RemoteError{
		StatusCode: 404,
		Message:    "not found",
	}

	expected := "remote error 404: not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "404 error",
			err:  &RemoteError{StatusCode: 404, Message: "not found"},
			want: true,
		},
		{
			name: "wrapped 404 error",
			err:  fmt.Errorf("rpc x: %w", &RemoteError{StatusCode: 404}),
			want: true,
		},
		{
			name: "500 error",
			err:  &RemoteError{StatusCode: 500, Message: "internal error"},
			want: false,
		},
		{
			name: "non-remote error",
			err:  context.DeadlineExceeded,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotFound(tt.err)
			if got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}
