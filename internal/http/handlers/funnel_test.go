package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/synthflow/landing-platform/internal/funnel"
)

func TestFunnelFullFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/funnel/sessions", StartSessionRequest{
		LandingURL: "https://synthflow.app/?utm_source=google&utm_campaign=launch",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body)
	}
	sess := decodeSession(t, rec)
	if sess.Step != funnel.StepPlan || sess.Plan != funnel.PlanTrial {
		t.Fatalf("unexpected initial session %+v", sess)
	}

	base := "/funnel/sessions/" + sess.ID

	rec = env.do(t, http.MethodPost, base+"/plan", SelectPlanRequest{Plan: funnel.PlanYearly})
	if rec.Code != http.StatusOK {
		t.Fatalf("plan: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if got := decodeSession(t, rec); got.Step != funnel.StepRegister {
		t.Fatalf("expected register step, got %s", got.Step)
	}

	rec = env.do(t, http.MethodPost, base+"/register", funnel.RegistrationInput{
		Name:   "Иван Иванов",
		Email:  "ivan@example.com",
		Agreed: true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodPost, base+"/billing", validBillingRequest())
	if rec.Code != http.StatusOK {
		t.Fatalf("billing: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	got := decodeSession(t, rec)
	if got.Step != funnel.StepProcessing || len(got.Processing) != 3 {
		t.Fatalf("expected processing step with 3 sub-steps, got %+v", got)
	}

	waitForStep(t, env, sess.ID, funnel.StepReveal)

	rec = env.do(t, http.MethodPost, base+"/accept", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if got := decodeSession(t, rec); got.Outcome != funnel.OutcomeAccepted {
		t.Fatalf("expected accepted outcome, got %q", got.Outcome)
	}
}

func waitForStep(t *testing.T, env *testEnv, sessionID string, step funnel.Step) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rec := env.do(t, http.MethodGet, "/funnel/sessions/"+sessionID, nil)
		if rec.Code == http.StatusOK && decodeSession(t, rec).Step == step {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached step %s", step)
}

func TestFunnelRegisterValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	sess := decodeSession(t, env.do(t, http.MethodPost, "/funnel/sessions", nil))
	env.do(t, http.MethodPost, "/funnel/sessions/"+sess.ID+"/plan", SelectPlanRequest{Plan: funnel.PlanMonthly})

	rec := env.do(t, http.MethodPost, "/funnel/sessions/"+sess.ID+"/register", funnel.RegistrationInput{
		Name:  "Я",
		Email: "bad",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, rec.Code, rec.Body)
	}
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	for _, field := range []string{"name", "email", "agreed"} {
		if body.Fields[field] == "" {
			t.Errorf("expected validation message for %q", field)
		}
	}
}

func TestFunnelBillingValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	sess := decodeSession(t, env.do(t, http.MethodPost, "/funnel/sessions", nil))
	base := "/funnel/sessions/" + sess.ID
	env.do(t, http.MethodPost, base+"/plan", SelectPlanRequest{Plan: funnel.PlanMonthly})
	env.do(t, http.MethodPost, base+"/register", funnel.RegistrationInput{Name: "Иван", Email: "ivan@example.com", Agreed: true})

	req := validBillingRequest()
	req.Number = "1234 5678"
	req.Expiry = "13/99"
	rec := env.do(t, http.MethodPost, base+"/billing", req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, rec.Code, rec.Body)
	}
}

func TestFunnelInvalidTransitionConflict(t *testing.T) {
	env := newTestEnv(t)

	sess := decodeSession(t, env.do(t, http.MethodPost, "/funnel/sessions", nil))

	// Registering straight from the plan step must be rejected.
	rec := env.do(t, http.MethodPost, "/funnel/sessions/"+sess.ID+"/register", funnel.RegistrationInput{
		Name: "Иван", Email: "ivan@example.com", Agreed: true,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d: %s", http.StatusConflict, rec.Code, rec.Body)
	}
}

func TestFunnelUnknownPlan(t *testing.T) {
	env := newTestEnv(t)

	sess := decodeSession(t, env.do(t, http.MethodPost, "/funnel/sessions", nil))
	rec := env.do(t, http.MethodPost, "/funnel/sessions/"+sess.ID+"/plan", SelectPlanRequest{Plan: "lifetime"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body)
	}
}

func TestFunnelUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/funnel/sessions/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestFunnelBackNavigation(t *testing.T) {
	env := newTestEnv(t)

	sess := decodeSession(t, env.do(t, http.MethodPost, "/funnel/sessions", nil))
	base := "/funnel/sessions/" + sess.ID
	env.do(t, http.MethodPost, base+"/plan", SelectPlanRequest{Plan: funnel.PlanMonthly})

	rec := env.do(t, http.MethodPost, base+"/back", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if got := decodeSession(t, rec); got.Step != funnel.StepPlan {
		t.Fatalf("expected plan step after back, got %s", got.Step)
	}

	// Back from the first step is a conflict.
	rec = env.do(t, http.MethodPost, base+"/back", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestFunnelListPlans(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/funnel/plans", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var body struct {
		Plans []funnel.PlanData `json:"plans"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode plans: %v", err)
	}
	if len(body.Plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(body.Plans))
	}
}

func TestFunnelBillingNeverEchoesCardData(t *testing.T) {
	env := newTestEnv(t)

	sess := decodeSession(t, env.do(t, http.MethodPost, "/funnel/sessions", nil))
	base := "/funnel/sessions/" + sess.ID
	env.do(t, http.MethodPost, base+"/plan", SelectPlanRequest{Plan: funnel.PlanMonthly})
	env.do(t, http.MethodPost, base+"/register", funnel.RegistrationInput{Name: "Иван", Email: "ivan@example.com", Agreed: true})

	rec := env.do(t, http.MethodPost, base+"/billing", validBillingRequest())
	if body := rec.Body.String(); body == "" || containsDigits(body, "4242424242424242") {
		t.Fatalf("card number must not appear in the response: %s", body)
	}
}

func containsDigits(body, digits string) bool {
	var stripped strings.Builder
	for _, r := range body {
		if r >= '0' && r <= '9' {
			stripped.WriteRune(r)
		}
	}
	return strings.Contains(stripped.String(), digits)
}
