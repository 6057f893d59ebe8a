package nightscout

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loopremote/internal/models"
)

func TestHashSecret(t *testing.T) {
	result := hashSecret("test")
	expected := "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3"

	if result != expected {
		t.Errorf("hashSecret(\"test\") = %s, want %s", result, expected)
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient("https://test.example.com/", "", "", false)

	if client.baseURL != "https://test.example.com" {
		t.Errorf("baseURL = %s, should not have trailing slash", client.baseURL)
	}
}

func TestClient_GetCurrentEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/entries/current" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}

		entry := models.GlucoseEntry{
			ID:        "test123",
			SGV:       120,
			Date:      time.Now().UnixMilli(),
			Direction: "Flat",
			Trend:     4,
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entry)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	entry, err := client.GetCurrentEntry()

	if err != nil {
		t.Fatalf("GetCurrentEntry() error = %v", err)
	}
	if entry.SGV != 120 {
		t.Errorf("SGV = %d, want 120", entry.SGV)
	}
	if entry.Direction != "Flat" {
		t.Errorf("Direction = %s, want Flat", entry.Direction)
	}
}

func TestClient_GetCurrentEntry_Array(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entries := []models.GlucoseEntry{
			{
				ID:        "test123",
				SGV:       130,
				Date:      time.Now().UnixMilli(),
				Direction: "SingleUp",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entries)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	entry, err := client.GetCurrentEntry()

	if err != nil {
		t.Fatalf("GetCurrentEntry() error = %v", err)
	}
	if entry.SGV != 130 {
		t.Errorf("SGV = %d, want 130", entry.SGV)
	}
}

func TestClient_GetRecentEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/entries/sgv" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("count"); got != "2" {
			t.Errorf("count = %s, want 2", got)
		}

		entries := []models.GlucoseEntry{
			{SGV: 120, Date: time.Now().UnixMilli()},
			{SGV: 115, Date: time.Now().Add(-5 * time.Minute).UnixMilli()},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entries)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	entries, err := client.GetRecentEntries(2)

	if err != nil {
		t.Fatalf("GetRecentEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Got %d entries, want 2", len(entries))
	}
}

func TestClient_GetDeviceStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/devicestatus" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}

		statuses := []models.DeviceStatus{
			{
				ID:     "ds1",
				Device: "loop://iPhone",
				Loop: models.LoopStatus{
					Timestamp:        time.Now().UTC().Format(time.RFC3339),
					RecommendedBolus: 0.85,
					IOB:              models.LoopIOB{IOB: 1.2},
					COB:              models.LoopCOB{COB: 24},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statuses)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	status, err := client.GetDeviceStatus()

	if err != nil {
		t.Fatalf("GetDeviceStatus() error = %v", err)
	}
	if status.Loop.RecommendedBolus != 0.85 {
		t.Errorf("RecommendedBolus = %v, want 0.85", status.Loop.RecommendedBolus)
	}
	if status.Loop.RecommendationTime().IsZero() {
		t.Error("RecommendationTime() should parse the loop timestamp")
	}
}

func TestClient_GetDeviceStatus_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	if _, err := client.GetDeviceStatus(); err == nil {
		t.Error("Expected error when no device status is available")
	}
}

func TestClient_PostTreatment(t *testing.T) {
	var posted []models.Treatment
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/v1/treatments" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &posted); err != nil {
			t.Errorf("Treatment body did not parse: %v", err)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	err := client.PostTreatment(models.Treatment{
		EventType: "Meal Bolus",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Insulin:   1.5,
		EnteredBy: "loopremote",
	})

	if err != nil {
		t.Fatalf("PostTreatment() error = %v", err)
	}
	if len(posted) != 1 {
		t.Fatalf("Server received %d treatments, want 1", len(posted))
	}
	if posted[0].EventType != "Meal Bolus" || posted[0].Insulin != 1.5 {
		t.Errorf("Posted treatment = %+v", posted[0])
	}
}

func TestClient_AuthHeaders_Token(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "Bearer testtoken123" {
			t.Errorf("Authorization header = %s, want Bearer testtoken123", authHeader)
		}

		status := models.ServerStatus{Status: "ok"}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "testtoken123", true)
	_, _ = client.GetStatus()
}

func TestClient_AuthHeaders_Secret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secretHeader := r.Header.Get("API-SECRET")
		expectedHash := hashSecret("mysecret")
		if secretHeader != expectedHash {
			t.Errorf("API-SECRET header = %s, want %s", secretHeader, expectedHash)
		}

		status := models.ServerStatus{Status: "ok"}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}))
	defer server.Close()

	client := NewClient(server.URL, "mysecret", "", false)
	_, _ = client.GetStatus()
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Unauthorized"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	_, err := client.GetStatus()

	if err == nil {
		t.Error("Expected error for 401 response")
	}
}
