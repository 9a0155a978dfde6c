package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	safetymodel "github.com/zhouzirui/kidwatch/backend/internal/model/safety"
	alertservice "github.com/zhouzirui/kidwatch/backend/internal/service/alert"
	chatservice "github.com/zhouzirui/kidwatch/backend/internal/service/chat"
	"github.com/zhouzirui/kidwatch/backend/internal/service/notify"
	"github.com/zhouzirui/kidwatch/backend/internal/service/safety"
)

type apiFixture struct {
	server  *httptest.Server
	chatSvc *chatservice.Service
	store   *alertservice.MemoryStore
	engine  *alertservice.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	chatSvc := chatservice.NewService()
	store := alertservice.NewMemoryStore()
	engine := alertservice.NewEngine(store, alertservice.Config{})
	dispatcher := notify.NewDispatcher(3, time.Millisecond)
	pipeline := safety.NewPipeline(chatSvc, nil, engine, dispatcher)

	router := NewRouter(chatSvc, pipeline, store, engine, dispatcher, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, chatSvc: chatSvc, store: store, engine: engine}
}

func (f *apiFixture) postJSON(t *testing.T, path string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s err: %v", path, err)
	}
	return resp
}

func (f *apiFixture) createSession(t *testing.T) string {
	t.Helper()
	resp := f.postJSON(t, "/api/sessions", `{"childId":"child-1","guardianId":"guardian-1","childAge":8}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status %d", resp.StatusCode)
	}
	var session struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.ID == "" {
		t.Fatal("empty session id")
	}
	return session.ID
}

func TestCreateSessionRequiresGuardian(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.postJSON(t, "/api/sessions", `{"childId":"child-1"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestChildMessageReturnsDecision(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.createSession(t)

	resp := f.postJSON(t, "/api/sessions/"+sessionID+"/messages", `{"content":"I fell and my knee hurts"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var decision struct {
		Level   string                  `json:"level"`
		Proceed bool                    `json:"proceed"`
		Alert   *safetymodel.AlertEvent `json:"alert"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		t.Fatalf("decode decision: %v", err)
	}
	if decision.Level != "warning" {
		t.Fatalf("expected warning, got %q", decision.Level)
	}
	if !decision.Proceed {
		t.Fatal("warning should let the conversation proceed")
	}
	if decision.Alert == nil {
		t.Fatal("expected an alert in the decision")
	}
}

func TestChildMessageUnknownSession(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.postJSON(t, "/api/sessions/missing/messages", `{"content":"hi"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestEmergencyEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.createSession(t)

	resp := f.postJSON(t, "/api/emergency", fmt.Sprintf(`{"sessionId":%q,"reason":"panic button"}`, sessionID))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var payload struct {
		Success bool   `json:"success"`
		AlertID string `json:"alertId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Success || payload.AlertID == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	listResp, err := http.Get(f.server.URL + "/api/sessions/" + sessionID + "/alerts")
	if err != nil {
		t.Fatalf("GET alerts err: %v", err)
	}
	defer listResp.Body.Close()

	var alerts []safetymodel.AlertEvent
	if err := json.NewDecoder(listResp.Body).Decode(&alerts); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != payload.AlertID {
		t.Fatalf("expected the emergency persisted, got %v", alerts)
	}
	if alerts[0].Severity != safetymodel.SeverityEmergency {
		t.Fatalf("expected emergency severity, got %s", alerts[0].Severity)
	}
}

func TestResolveAlertIdempotent(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.createSession(t)

	resp := f.postJSON(t, "/api/emergency", fmt.Sprintf(`{"sessionId":%q}`, sessionID))
	var payload struct {
		AlertID string `json:"alertId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	resp.Body.Close()

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodPut, f.server.URL+"/api/alerts/"+payload.AlertID+"/resolve", nil)
		resolveResp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PUT resolve err: %v", err)
		}
		resolveResp.Body.Close()
		if resolveResp.StatusCode != http.StatusOK {
			t.Fatalf("resolve attempt %d status %d", i+1, resolveResp.StatusCode)
		}
	}

	unresolvedResp, err := http.Get(f.server.URL + "/api/sessions/" + sessionID + "/alerts/unresolved")
	if err != nil {
		t.Fatalf("GET unresolved err: %v", err)
	}
	defer unresolvedResp.Body.Close()

	var unresolved []safetymodel.AlertEvent
	if err := json.NewDecoder(unresolvedResp.Body).Decode(&unresolved); err != nil {
		t.Fatalf("decode unresolved: %v", err)
	}
	if len(unresolved) != 0 {
		t.Fatalf("expected no unresolved alerts, got %d", len(unresolved))
	}
}

func TestActivityCheckEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.createSession(t)

	resp := f.postJSON(t, "/api/sessions/"+sessionID+"/activity", `{"activityType":"screen_time","durationMinutes":30}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("below the limit expected 204, got %d", resp.StatusCode)
	}

	resp = f.postJSON(t, "/api/sessions/"+sessionID+"/activity", `{"activityType":"screen_time","durationMinutes":180}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("past the limit expected 201, got %d", resp.StatusCode)
	}

	var event safetymodel.AlertEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Severity != safetymodel.SeverityInfo {
		t.Fatalf("activity alerts are informational, got %s", event.Severity)
	}
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)

	resp, err := http.Get(f.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz err: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
