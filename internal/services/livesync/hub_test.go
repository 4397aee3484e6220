package livesync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/models"
)

func startHub(t *testing.T) (*ReportHub, *httptest.Server) {
	t.Helper()
	hub := NewReportHub(common.NewSilentLogger())
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *ReportHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub never reached %d clients", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) models.ReportEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev models.ReportEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub, srv := startHub(t)

	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, hub, 2)

	report := &models.DefectReport{ID: "rp_a1", Status: models.StatusNew}
	hub.ReportCreated(report, "chi")

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, models.EventReportCreated, ev.Type)
		assert.Equal(t, "rp_a1", ev.ReportID)
		assert.Equal(t, "chi", ev.Actor)
		require.NotNil(t, ev.Report)
		assert.Equal(t, models.StatusNew, ev.Report.Status)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestHubDeleteEventCarriesIDOnly(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	hub.ReportDeleted("rp_a1", "chi")

	ev := readEvent(t, conn)
	assert.Equal(t, models.EventReportDeleted, ev.Type)
	assert.Equal(t, "rp_a1", ev.ReportID)
	assert.Nil(t, ev.Report)
}

func TestHubBatchEvent(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	hub.ReportsBatchUpdated([]string{"rp_a1", "rp_b2"}, "chi")

	ev := readEvent(t, conn)
	assert.Equal(t, models.EventReportBatchUpdated, ev.Type)
	assert.Equal(t, []string{"rp_a1", "rp_b2"}, ev.ReportIDs)
}

func TestHubClientDisconnect(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewReportHub(common.NewSilentLogger())
	go hub.Run()
	defer hub.Stop()

	// Must not block or panic with nobody listening.
	hub.ReportDeleted("rp_a1", "chi")
	assert.Equal(t, 0, hub.ClientCount())
}
