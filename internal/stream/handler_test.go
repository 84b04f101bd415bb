package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintrack/internal/events"
	"maintrack/internal/platform/middleware"
	id "maintrack/pkg/domain"
)

type staticValidator struct{}

func (staticValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	return &middleware.JWTClaims{UserID: uuid.NewString(), Modules: []string{"Tickets"}}, nil
}

func newStreamServer(t *testing.T, registry *Registry) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(registry, logger, staticValidator{}, time.Minute)
	router := chi.NewRouter()
	h.Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func openStream(t *testing.T, srv *httptest.Server, query string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/events/stream"+query, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// readFrame reads one "event: ...\ndata: ...\n\n" frame from the stream.
func readFrame(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			return event, data
		}
	}
}

func TestHandleStream_RequiresAuth(t *testing.T) {
	srv := newStreamServer(t, newTestRegistry(10))

	resp, err := srv.Client().Get(srv.URL + "/events/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleStream_RejectsUnknownEventType(t *testing.T) {
	srv := newStreamServer(t, newTestRegistry(10))

	resp := openStream(t, srv, "?types=CREATED,BOGUS")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleStream_DeliversInitAndMatchingEvents(t *testing.T) {
	registry := newTestRegistry(10)
	srv := newStreamServer(t, registry)

	resp := openStream(t, srv, "?types=CREATED")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, data := readFrame(t, reader)
	assert.Equal(t, events.StreamInit, event)
	var init struct {
		SubscriptionID string `json:"subscriptionId"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &init))
	assert.NotEmpty(t, init.SubscriptionID)

	require.Eventually(t, func() bool { return registry.ActiveCount() == 1 },
		time.Second, 10*time.Millisecond)

	ticketID := id.TicketID(uuid.New())
	require.NoError(t, registry.OnEvent(context.Background(), events.NewCreated(ticketID)))
	// Filtered out, must never arrive.
	require.NoError(t, registry.OnEvent(context.Background(), events.NewDeleted(id.TicketID(uuid.New()))))
	require.NoError(t, registry.OnEvent(context.Background(), events.NewCreated(ticketID)))

	event, data = readFrame(t, reader)
	assert.Equal(t, "CREATED", event)
	assert.Contains(t, data, ticketID.String())

	event, _ = readFrame(t, reader)
	assert.Equal(t, "CREATED", event, "DELETED must have been filtered out")
}

func TestHandleStream_CapacityExceededReturns429(t *testing.T) {
	registry := newTestRegistry(1)
	srv := newStreamServer(t, registry)

	first := openStream(t, srv, "")
	defer first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	require.Eventually(t, func() bool { return registry.ActiveCount() == 1 },
		time.Second, 10*time.Millisecond)

	second := openStream(t, srv, "")
	defer second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestHandleStream_ClientDisconnectFreesSlot(t *testing.T) {
	registry := newTestRegistry(1)
	srv := newStreamServer(t, registry)

	resp := openStream(t, srv, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool { return registry.ActiveCount() == 1 },
		time.Second, 10*time.Millisecond)

	resp.Body.Close()
	require.Eventually(t, func() bool { return registry.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond, "disconnect must release the subscription slot")
}

func TestHandleStatus_ReportsActiveCount(t *testing.T) {
	registry := newTestRegistry(10)
	srv := newStreamServer(t, registry)

	stream := openStream(t, srv, "")
	defer stream.Body.Close()
	require.Eventually(t, func() bool { return registry.ActiveCount() == 1 },
		time.Second, 10*time.Millisecond)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/events/status", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		ActiveSubscriptions int `json:"activeSubscriptions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, 1, status.ActiveSubscriptions)
}
