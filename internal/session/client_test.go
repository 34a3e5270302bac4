package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hort-presence-backend/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.BackendConfig{
		BaseURL:  serverURL,
		Timezone: "UTC",
		Headers:  map[string]string{"Authorization": "Bearer test-token"},
	}, nil)
}

func TestListActiveGroupsFollowsPagination(t *testing.T) {
	var requestedPages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		requestedPages = append(requestedPages, page)

		var body string
		if page == "1" {
			body = `{"data":[{"id":1,"group_id":10,"room_id":20,"start_time":"2026-03-02T08:00:00Z"}],` +
				`"pagination":{"current_page":1,"page_size":1,"total_pages":2,"total_records":2}}`
		} else {
			body = `{"data":[{"id":2,"group_id":11,"room_id":21,"start_time":"2026-03-02T08:30:00Z"}],` +
				`"pagination":{"current_page":2,"page_size":1,"total_pages":2,"total_records":2}}`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	groups, err := c.ListActiveGroups(context.Background())

	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"1", "2"}, requestedPages)
	assert.Equal(t, "1", groups[0].ID)
	assert.Equal(t, "10", groups[0].GroupID)
	assert.Equal(t, "2", groups[1].ID)
	assert.True(t, groups[0].IsActive)
}

func TestListActiveGroupsSendsConfiguredPageSize(t *testing.T) {
	var pageSizes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageSizes = append(pageSizes, r.URL.Query().Get("page_size"))
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	c := NewClient(&config.BackendConfig{
		BaseURL:  server.URL,
		Timezone: "UTC",
		PageSize: 25,
	}, nil)

	_, err := c.ListActiveGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"25"}, pageSizes)
}

func TestListActiveGroupsTerminatesOnStaleCurrentPage(t *testing.T) {
	// Some deployments echo current_page 1 on every page. The loop must still
	// walk to total_pages and stop.
	var requestedPages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		requestedPages = append(requestedPages, page)

		var item string
		if page == "1" {
			item = `{"id":1,"group_id":10,"room_id":20,"start_time":"2026-03-02T08:00:00Z"}`
		} else {
			item = `{"id":2,"group_id":11,"room_id":21,"start_time":"2026-03-02T08:30:00Z"}`
		}
		fmt.Fprintf(w, `{"data":[%s],"pagination":{"current_page":1,"page_size":1,"total_pages":2,"total_records":2}}`, item)
	}))
	defer server.Close()

	groups, err := newTestClient(server.URL).ListActiveGroups(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, requestedPages)
	require.Len(t, groups, 2)
	assert.Equal(t, "2", groups[1].ID)
}

func TestStudentCurrentVisit(t *testing.T) {
	t.Run("active visit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/active/visits/student/42/current", r.URL.Path)
			fmt.Fprint(w, `{"data":{"id":7,"student_id":42,"active_group_id":3,"check_in_time":"2026-03-02 13:05:00"}}`)
		}))
		defer server.Close()

		visit, err := newTestClient(server.URL).StudentCurrentVisit(context.Background(), "42")
		require.NoError(t, err)
		require.NotNil(t, visit)
		assert.Equal(t, "7", visit.ID)
		assert.Equal(t, "42", visit.StudentID)
		assert.True(t, visit.IsActive)
		assert.Nil(t, visit.CheckOutTime)
		// Legacy layout timestamps are interpreted in the configured timezone.
		assert.Equal(t, time.Date(2026, 3, 2, 13, 5, 0, 0, time.UTC), visit.CheckInTime.UTC())
	})

	t.Run("404 is absence, not failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		visit, err := newTestClient(server.URL).StudentCurrentVisit(context.Background(), "42")
		assert.NoError(t, err)
		assert.Nil(t, visit)
	})

	t.Run("other non-2xx is a failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).StudentCurrentVisit(context.Background(), "42")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})
}

func TestDisplayVisits(t *testing.T) {
	t.Run("rows decode with location and sick flag", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/active/groups/3/visits/display", r.URL.Path)
			fmt.Fprint(w, `{"data":[{"student_id":42,"display_name":"Mika","current_location":"Anwesend - Raum 101",`+
				`"location_since":"2026-03-02T13:05:00Z","group_id":2,"group_name":"Igel","sick":true}]}`)
		}))
		defer server.Close()

		rows, err := newTestClient(server.URL).DisplayVisits(context.Background(), "3")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "42", rows[0].StudentID)
		assert.Equal(t, "Anwesend - Raum 101", rows[0].CurrentLocation)
		assert.Equal(t, "2", rows[0].GroupID)
		assert.True(t, rows[0].Sick)
		require.NotNil(t, rows[0].LocationSince)
	})

	t.Run("404 maps to empty slice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		rows, err := newTestClient(server.URL).DisplayVisits(context.Background(), "3")
		assert.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("student without group gets empty group id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"student_id":42,"current_location":"Schulhof","group_id":0}]`)
		}))
		defer server.Close()

		rows, err := newTestClient(server.URL).DisplayVisits(context.Background(), "3")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "", rows[0].GroupID)
	})
}

func TestEndActiveGroupSurfacesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Backend rejects ending an already-ended group.
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message":"active group already ended"}`)
	}))
	defer server.Close()

	group, err := newTestClient(server.URL).EndActiveGroup(context.Background(), "9")
	require.Error(t, err)
	assert.Nil(t, group)
	assert.Contains(t, err.Error(), "409")
}

func TestClaimActiveGroup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/active/groups/9/claim", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "supervisor", body["role"])

		fmt.Fprint(w, `{"data":{"id":5,"staff_id":77,"active_group_id":9,"role":"supervisor","start_time":"2026-03-02T14:00:00Z"}}`)
	}))
	defer server.Close()

	sup, err := newTestClient(server.URL).ClaimActiveGroup(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, "5", sup.ID)
	assert.Equal(t, "77", sup.StaffID)
	assert.Equal(t, "9", sup.ActiveGroupID)
	assert.Equal(t, "supervisor", sup.Role)
	assert.True(t, sup.IsActive)
}

func TestClaimFailureIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Another staff member won the race; the backend enforces exclusivity.
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.ClaimActiveGroup(context.Background(), "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	// The error is an ordinary one; a retry issues a fresh request.
	_, err = c.ClaimActiveGroup(context.Background(), "9")
	require.Error(t, err)
}

func TestCreateVisitTranslatesIDsToWireForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// Wire IDs are numeric, not strings.
		assert.Equal(t, float64(42), body["student_id"])
		assert.Equal(t, float64(3), body["active_group_id"])

		fmt.Fprint(w, `{"id":8,"student_id":42,"active_group_id":3,"check_in_time":"2026-03-02T13:05:00Z"}`)
	}))
	defer server.Close()

	visit, err := newTestClient(server.URL).CreateVisit(context.Background(), CreateVisitParams{
		StudentID:     "42",
		ActiveGroupID: "3",
		CheckInTime:   time.Date(2026, 3, 2, 13, 5, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "8", visit.ID)
}

func TestCreateVisitRejectsMalformedID(t *testing.T) {
	c := newTestClient("http://unused")
	_, err := c.CreateVisit(context.Background(), CreateVisitParams{
		StudentID:     "not-a-number",
		ActiveGroupID: "3",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student id")
}

func TestEndVisitAndSupervision(t *testing.T) {
	endTime := "2026-03-02T16:00:00Z"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/active/visits/8/end":
			fmt.Fprintf(w, `{"id":8,"student_id":42,"active_group_id":3,"check_in_time":"2026-03-02T13:05:00Z","check_out_time":%q}`, endTime)
		case "/active/supervisors/5/end":
			fmt.Fprintf(w, `{"id":5,"staff_id":77,"active_group_id":3,"start_time":"2026-03-02T13:00:00Z","end_time":%q}`, endTime)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	visit, err := c.EndVisit(context.Background(), "8")
	require.NoError(t, err)
	assert.False(t, visit.IsActive)
	require.NotNil(t, visit.CheckOutTime)

	sup, err := c.EndSupervision(context.Background(), "5")
	require.NoError(t, err)
	assert.False(t, sup.IsActive)
}

func TestCombinedGroupMappings(t *testing.T) {
	var addBody, removeBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/active/mappings/add":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&addBody))
			w.WriteHeader(http.StatusCreated)
		case "/active/mappings/remove":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&removeBody))
		case "/active/mappings/group/3":
			fmt.Fprint(w, `{"data":[{"active_group_id":3,"combined_group_id":12}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()

	// Moving a group between combinations is remove-then-add, in that order,
	// because a group maps to at most one combined group at a time.
	require.NoError(t, c.RemoveGroupFromCombination(ctx, "3", "11"))
	require.NoError(t, c.AddGroupToCombination(ctx, "3", "12"))
	assert.Equal(t, float64(3), removeBody["active_group_id"])
	assert.Equal(t, float64(11), removeBody["combined_group_id"])
	assert.Equal(t, float64(12), addBody["combined_group_id"])

	mappings, err := c.MappingsByGroup(ctx, "3")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, GroupMapping{ActiveGroupID: "3", CombinedGroupID: "12"}, mappings[0])
}

func TestAnalyticsReads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/active/analytics/counts":
			fmt.Fprint(w, `{"data":{"active_groups":4,"active_visits":61,"active_supervisors":7,"combined_groups":1}}`)
		case "/active/analytics/room/20/utilization":
			fmt.Fprint(w, `{"room_id":20,"total_sessions":9,"total_minutes":1240}`)
		case "/active/analytics/student/42/attendance":
			fmt.Fprint(w, `{"data":[{"active_group_id":3,"check_in_time":"2026-03-02T13:05:00Z","check_out_time":"2026-03-02T16:00:00Z"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()

	counts, err := c.AnalyticsCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.ActiveGroups)
	assert.Equal(t, 61, counts.ActiveVisits)

	util, err := c.RoomUtilization(ctx, "20")
	require.NoError(t, err)
	assert.Equal(t, "20", util.RoomID)
	assert.Equal(t, 1240, util.TotalMinutes)

	attendance, err := c.StudentAttendance(ctx, "42")
	require.NoError(t, err)
	require.Len(t, attendance, 1)
	assert.Equal(t, "3", attendance[0].ActiveGroupID)
	require.NotNil(t, attendance[0].CheckOutTime)
}

func TestListEnvelopeDriftDegradesToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"totally new envelope"}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	diagnostics := 0
	c.logf = func(format string, args ...any) { diagnostics++ }

	visits, err := c.ListVisits(context.Background())
	require.NoError(t, err, "shape drift must not be fatal")
	assert.Empty(t, visits)
	assert.Equal(t, 1, diagnostics)
}
