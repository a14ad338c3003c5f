package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hireloop/slotd/internal/availability"
	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo/memory"
	"github.com/hireloop/slotd/internal/rules"
	"github.com/hireloop/slotd/internal/slots"
	"github.com/hireloop/slotd/internal/suggest"
	"github.com/hireloop/slotd/internal/users"
	"github.com/hireloop/slotd/pkg/logger"
)

// 2024-01-08 is a Monday.
func monday(hour, min int) time.Time {
	return time.Date(2024, 1, 8, hour, min, 0, 0, time.UTC)
}

func newTestServer(t *testing.T) *server {
	t.Helper()

	client := memory.NewClient()
	log := logger.NewStub()

	avail := availability.New(log, client, nil)
	rulesEngine := rules.New(log, client)
	manager := slots.New(log, client, avail, rulesEngine, users.NewDirectory(client), nil, nil)
	ranker := suggest.New(log, client, avail, rulesEngine)

	srv := NewServer(Config{}, log, client, avail, manager, ranker)
	return srv.(*server)
}

func doJSON(t *testing.T, s *server, method, target string, body any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, buf)
	req.Header.Set("X-Tenant-ID", "t1")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func setHours(t *testing.T, s *server, user string) {
	t.Helper()
	resp := doJSON(t, s, http.MethodPut, "/users/"+user+"/hours", model.WorkingHours{
		Timezone: "UTC",
		Days: []model.DayHours{
			{Weekday: int(time.Monday), Ranges: []model.MinuteRange{{9 * 60, 17 * 60}}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_MissingTenantHeader(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/rules", nil)
	resp, err := s.http.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SlotLifecycle(t *testing.T) {
	s := newTestServer(t)
	setHours(t, s, "alice")

	resp := doJSON(t, s, http.MethodPost, "/slots", map[string]any{
		"interval":     model.NewInterval(monday(10, 0), monday(11, 0)),
		"participants": []string{"alice"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Slot](t, resp)
	require.NotEmpty(t, created.ID)

	resp = doJSON(t, s, http.MethodPost, "/slots/"+created.ID+"/book", map[string]string{
		"candidate_id": "cand-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	booked := decode[model.Slot](t, resp)
	require.Equal(t, "BOOKED", booked.Status.String())

	// booking again maps the lost race to 409
	resp = doJSON(t, s, http.MethodPost, "/slots/"+created.ID+"/book", map[string]string{
		"candidate_id": "cand-2",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	fault := decode[map[string]any](t, resp)
	require.Equal(t, "SLOT_ALREADY_BOOKED", fault["code"])

	resp = doJSON(t, s, http.MethodPost, "/slots/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/slots/"+created.ID, nil)
	got := decode[model.Slot](t, resp)
	require.Equal(t, "CANCELLED", got.Status.String())
}

func TestServer_CreateSlot_Conflict(t *testing.T) {
	s := newTestServer(t)
	setHours(t, s, "alice")

	resp := doJSON(t, s, http.MethodPost, "/slots", map[string]any{
		"interval":     model.NewInterval(monday(18, 0), monday(19, 0)),
		"participants": []string{"alice"},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_CreateSlot_UnknownUser(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(t, s, http.MethodPost, "/slots", map[string]any{
		"interval":     model.NewInterval(monday(10, 0), monday(11, 0)),
		"participants": []string{"nobody"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Availability(t *testing.T) {
	s := newTestServer(t)
	setHours(t, s, "alice")

	resp := doJSON(t, s, http.MethodPost, "/users/alice/busy", map[string]any{
		"interval": model.NewInterval(monday(12, 0), monday(13, 0)),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	target := fmt.Sprintf("/availability?users=alice&from=%d&to=%d",
		monday(9, 0).UnixMilli(), monday(17, 0).UnixMilli())
	resp = doJSON(t, s, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Free    map[string][]model.Interval `json:"free"`
		Partial bool                        `json:"partial"`
	}](t, resp)
	require.False(t, body.Partial)
	require.Equal(t, []model.Interval{
		model.NewInterval(monday(9, 0), monday(12, 0)),
		model.NewInterval(monday(13, 0), monday(17, 0)),
	}, body.Free["alice"])
}

func TestServer_Availability_Intersection(t *testing.T) {
	s := newTestServer(t)
	setHours(t, s, "alice")

	resp := doJSON(t, s, http.MethodPut, "/users/bob/hours", model.WorkingHours{
		Timezone: "UTC",
		Days: []model.DayHours{
			{Weekday: int(time.Monday), Ranges: []model.MinuteRange{{13 * 60, 18 * 60}}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	target := fmt.Sprintf("/availability?users=alice,bob&from=%d&to=%d&duration=60",
		monday(0, 0).UnixMilli(), monday(23, 59).UnixMilli())
	resp = doJSON(t, s, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Intersection []model.Interval `json:"intersection"`
	}](t, resp)
	require.Equal(t, []model.Interval{
		model.NewInterval(monday(13, 0), monday(17, 0)),
	}, body.Intersection)
}

func TestServer_HeadOnGetRoute(t *testing.T) {
	s := newTestServer(t)
	setHours(t, s, "alice")

	req := httptest.NewRequest(http.MethodHead, "/users/alice/hours", nil)
	req.Header.Set("X-Tenant-ID", "t1")
	resp, err := s.http.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// Ids lifted from the request must stay intact after fasthttp reuses the
// request buffers for later traffic.
func TestServer_StoredIDsSurviveBufferReuse(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(t, s, http.MethodPost, "/users/alice/busy", map[string]any{
		"interval": model.NewInterval(monday(12, 0), monday(13, 0)),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for i := 0; i < 32; i++ {
		target := fmt.Sprintf("/users/churn-%032d/busy?from=%d&to=%d",
			i, monday(0, 0).UnixMilli(), monday(23, 0).UnixMilli())
		resp := doJSON(t, s, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	blocks, err := s.repo.BusyBlocks().List(context.Background(), "t1", "alice",
		model.NewInterval(monday(0, 0), monday(23, 0)))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, "alice", blocks[0].UserID)
	require.Equal(t, "t1", blocks[0].TenantID)
}

func TestServer_Rules(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(t, s, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, s, http.MethodPut, "/rules", map[string]any{
		"min_notice_minutes": 120,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rule := decode[model.SchedulingRule](t, resp)
	require.NotNil(t, rule.MinNoticeMinutes)
	require.EqualValues(t, 120, *rule.MinNoticeMinutes)

	resp = doJSON(t, s, http.MethodDelete, "/rules", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodDelete, "/rules", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Rules_Invalid(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(t, s, http.MethodPut, "/rules", map[string]any{
		"min_notice_minutes": -5,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_BusyBlockDelete(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(t, s, http.MethodPost, "/users/alice/busy", map[string]any{
		"interval": model.NewInterval(monday(12, 0), monday(13, 0)),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string]string](t, resp)

	resp = doJSON(t, s, http.MethodDelete, "/users/alice/busy?id="+created["id"], nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodDelete, "/users/alice/busy?id="+created["id"], nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
