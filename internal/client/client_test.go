package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/careers-portal/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(DefaultOptions(server.URL + "/api"))
	require.NoError(t, err)
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(DefaultOptions("not-a-valid-url"))
	require.Error(t, err)

	var clientErr *Error
	assert.ErrorAs(t, err, &clientErr)
	assert.Contains(t, err.Error(), "invalid base URL")

	_, err = New(nil)
	assert.Error(t, err)
}

func TestResource_ListSendsFilter(t *testing.T) {
	var gotMethod, gotPath string
	var gotQuery Query
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotQuery)
		_, _ = w.Write([]byte(`[{"id":"7","level":"college","school":"State U","start_date":"2015-06-01","present":true}]`))
	})

	records, err := c.Resources().Education.List(context.Background(), "a1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/api/careers/education", gotPath)
	assert.Equal(t, Equals("applicant_id", "a1").Filter[0].Target, gotQuery.Filter[0].Target)
	assert.Equal(t, "a1", gotQuery.Filter[0].Value)

	require.Len(t, records, 1)
	assert.Equal(t, "7", records[0].ID)
	assert.Equal(t, types.LevelCollege, records[0].Level)
	assert.True(t, records[0].Present)
}

func TestResource_ListAcceptsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"Jo","contact_number":"0917"}]}`))
	})

	refs, err := c.Resources().References.List(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Jo", refs[0].Name)
}

func TestResource_ListEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	deps, err := c.Resources().Dependents.List(context.Background(), "a1")
	require.NoError(t, err)
	assert.NotNil(t, deps)
	assert.Empty(t, deps)
}

func TestResource_Define(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantID   string
	}{
		{name: "record body", response: `{"id":"42","company":"Acme","position_held":"Clerk","start_date":"2020-01-01","present":true}`, wantID: "42"},
		{name: "envelope", response: `{"data":{"id":"43","company":"Acme","position_held":"Clerk","start_date":"2020-01-01","present":true}}`, wantID: "43"},
		{name: "empty body", response: ``, wantID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var sent types.ExperienceEntry
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				_ = json.NewDecoder(r.Body).Decode(&sent)
				_, _ = w.Write([]byte(tt.response))
			})

			entry := types.ExperienceEntry{
				Company:      "Acme",
				PositionHeld: "Clerk",
				StartDate:    types.NewDate(2020, time.January, 1),
				Present:      true,
			}
			got, err := c.Resources().Experience.Define(context.Background(), entry)
			require.NoError(t, err)
			assert.Equal(t, "/api/careers/experience/define", gotPath)
			assert.Equal(t, "Acme", sent.Company)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, "Acme", got.Company)
		})
	}
}

func TestResource_Delete(t *testing.T) {
	var calls int
	var gotIDs []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/careers/reference/delete", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotIDs)
		w.WriteHeader(http.StatusNoContent)
	})

	refs := c.Resources().References
	require.NoError(t, refs.Delete(context.Background(), []string{"3", "4"}))
	assert.Equal(t, []string{"3", "4"}, gotIDs)

	require.NoError(t, refs.Delete(context.Background(), nil))
	assert.Equal(t, 1, calls, "empty delete sends nothing")
}

func TestResource_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream down"}`))
	})

	_, err := c.Resources().Education.List(context.Background(), "a1")
	require.Error(t, err)

	var clientErr *Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusBadGateway, clientErr.StatusCode)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
	assert.False(t, clientErr.NotFound())
}

func TestResource_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	opts := DefaultOptions(server.URL)
	opts.Timeout = 20 * time.Millisecond
	c, err := New(opts)
	require.NoError(t, err)

	err = c.Resources().Experience.Delete(context.Background(), []string{"1"})
	require.Error(t, err)
	var clientErr *Error
	assert.ErrorAs(t, err, &clientErr)
	assert.Contains(t, err.Error(), "HTTP request failed")
}

func TestClient_HeadersAndToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "x", r.Header.Get("X-Tenant"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	opts := DefaultOptions(server.URL)
	opts.Token = "secret"
	opts.Headers = map[string]string{"X-Tenant": "x"}
	c, err := New(opts)
	require.NoError(t, err)

	_, err = c.Resources().Experience.List(context.Background(), "a1")
	require.NoError(t, err)
}

func TestClient_Profile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var q Query
		_ = json.NewDecoder(r.Body).Decode(&q)
		switch r.URL.Path {
		case "/api/careers/entities":
			if q.Filter[0].Value == "a1" {
				_, _ = w.Write([]byte(`[{"id":"a1","first_name":"Ana","last_name":"Cruz","email":"ana@example.com","has_dependents":true}]`))
				return
			}
			_, _ = w.Write([]byte(`[]`))
		case "/api/careers/entity_details":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	profile, err := c.Profile(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.FirstName)
	assert.True(t, profile.HasDependents)

	_, err = c.Profile(ctx, "zz")
	var clientErr *Error
	require.ErrorAs(t, err, &clientErr)
	assert.True(t, clientErr.NotFound())

	details, err := c.Details(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, details)
}
