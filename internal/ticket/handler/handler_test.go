package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintrack/internal/events/bus"
	"maintrack/internal/platform/middleware"
	"maintrack/internal/ticket/service"
	"maintrack/internal/ticket/store"
	"maintrack/pkg/platform/tx"
	"maintrack/pkg/testutil"
)

type fakeValidator struct {
	userID string
}

func (v fakeValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	return &middleware.JWTClaims{UserID: v.userID, Modules: []string{"Tickets"}}, nil
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), bus.New(logger, nil), tx.NewInMemoryManager(), logger)

	router := chi.NewRouter()
	New(svc, logger, fakeValidator{userID: uuid.NewString()}).Register(router)
	return router
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer token")
	return req
}

func createBody() map[string]string {
	return map[string]string{
		"number":      "ZG-2024-0042",
		"machineId":   uuid.NewString(),
		"department":  "Produkcja",
		"type":        "FAILURE",
		"description": "Hydraulic press leaking oil",
		"status":      "nowe",
	}
}

func TestHandleCreate(t *testing.T) {
	router := newRouter(t)

	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/tickets", createBody())))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	created := testutil.UnmarshalResponse[map[string]any](t, rr)
	assert.Equal(t, "ZG-2024-0042", (*created)["number"])
	assert.Equal(t, "OPEN", (*created)["status"], "Polish token must normalize to OPEN")
}

func TestHandleCreate_RequiresAuth(t *testing.T) {
	router := newRouter(t)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/tickets", createBody()))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestHandleCreate_RejectsMissingNumber(t *testing.T) {
	router := newRouter(t)
	body := createBody()
	body["number"] = ""

	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/tickets", body)))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "invalid_input")
}

func TestHandleChangeStatus_FullLifecycle(t *testing.T) {
	router := newRouter(t)

	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/tickets", createBody())))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[map[string]any](t, rr)
	ticketID, ok := (*created)["id"].(string)
	require.True(t, ok)

	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost,
		"/tickets/"+ticketID+"/status", map[string]string{"status": "W-Toku"})))
	testutil.AssertStatus(t, rr, http.StatusOK)
	updated := testutil.UnmarshalResponse[map[string]any](t, rr)
	assert.Equal(t, "IN_PROGRESS", (*updated)["status"])

	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost,
		"/tickets/"+ticketID+"/status", map[string]string{"status": "DONE"})))
	testutil.AssertStatus(t, rr, http.StatusOK)

	// DONE is terminal; a further transition conflicts.
	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost,
		"/tickets/"+ticketID+"/status", map[string]string{"status": "OPEN"})))
	testutil.AssertStatus(t, rr, http.StatusConflict)
}

func TestHandleChangeStatus_UnknownTicket(t *testing.T) {
	router := newRouter(t)
	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost,
		"/tickets/"+uuid.NewString()+"/status", map[string]string{"status": "DONE"})))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestHandleDelete(t *testing.T) {
	router := newRouter(t)

	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/tickets", createBody())))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[map[string]any](t, rr)
	ticketID := (*created)["id"].(string)

	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodDelete, "/tickets/"+ticketID)))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodDelete, "/tickets/"+ticketID)))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
