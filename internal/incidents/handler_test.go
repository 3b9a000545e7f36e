package incidents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JVK-PAGE/status-page-plivo/internal/domain"
	"github.com/JVK-PAGE/status-page-plivo/internal/identity"
	"github.com/JVK-PAGE/status-page-plivo/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	org       *domain.Organization
	repo      *mockRepository
	publisher *mockPublisher
	router    chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	org := testOrg()
	repo := newMockRepository(org)
	publisher := &mockPublisher{repo: repo}
	handler := NewHandler(NewService(repo, publisher))

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	return &handlerFixture{org: org, repo: repo, publisher: publisher, router: router}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}, session *identity.Session) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != nil {
		req = req.WithContext(httputil.WithSession(req.Context(), *session))
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) validBody(serviceIDs ...string) map[string]interface{} {
	return map[string]interface{}{
		"title":          "API latency",
		"description":    "Elevated latency on the public API",
		"status":         "investigating",
		"impact":         "major",
		"serviceIds":     serviceIDs,
		"organizationId": f.org.ID,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func violatedFields(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %s", rec.Body.String())
	details, ok := errObj["details"].([]interface{})
	require.True(t, ok, "expected itemized details, got %s", rec.Body.String())

	fields := make([]string, 0, len(details))
	for _, d := range details {
		entry := d.(map[string]interface{})
		fields = append(fields, entry["field"].(string))
	}
	return fields
}

func TestCreateIncidentHandler(t *testing.T) {
	t.Run("creates incident and returns 201", func(t *testing.T) {
		f := newHandlerFixture(t)
		svcA := f.repo.addService("api")
		svcB := f.repo.addService("web")
		session := testSession(f.org)

		rec := f.do(t, http.MethodPost, "/incidents", f.validBody(svcA, svcB), &session)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		body := decodeBody(t, rec)
		data := body["data"].(map[string]interface{})
		assert.NotEmpty(t, data["id"])
		assert.Equal(t, "investigating", data["status"])
		assert.Equal(t, "incident", data["type"], "type defaults when absent")
		assert.Len(t, data["services"], 2)

		require.Len(t, f.publisher.calls, 1)
		assert.Equal(t, EventIncidentCreated, f.publisher.calls[0].event)
	})

	t.Run("rejects unauthenticated request", func(t *testing.T) {
		f := newHandlerFixture(t)
		svc := f.repo.addService("api")

		rec := f.do(t, http.MethodPost, "/incidents", f.validBody(svc), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, f.repo.incidents)
	})

	t.Run("itemizes every validation violation at once", func(t *testing.T) {
		f := newHandlerFixture(t)
		session := testSession(f.org)

		body := map[string]interface{}{
			"title":          "",
			"description":    "short",
			"status":         "bogus",
			"impact":         "minor",
			"serviceIds":     []string{},
			"organizationId": f.org.ID,
		}
		rec := f.do(t, http.MethodPost, "/incidents", body, &session)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		fields := violatedFields(t, rec)
		assert.Contains(t, fields, "Title")
		assert.Contains(t, fields, "Description")
		assert.Contains(t, fields, "Status")
		assert.Contains(t, fields, "ServiceIDs")
		assert.Empty(t, f.repo.incidents, "nothing may be written on validation failure")
		assert.Empty(t, f.publisher.calls)
	})

	t.Run("rejects malformed service id", func(t *testing.T) {
		f := newHandlerFixture(t)
		session := testSession(f.org)

		rec := f.do(t, http.MethodPost, "/incidents", f.validBody("not-a-uuid"), &session)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		f := newHandlerFixture(t)
		session := testSession(f.org)

		req := httptest.NewRequest(http.MethodPost, "/incidents", bytes.NewBufferString("{"))
		req = req.WithContext(httputil.WithSession(req.Context(), session))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deduplicates repeated service ids", func(t *testing.T) {
		f := newHandlerFixture(t)
		svc := f.repo.addService("api")
		session := testSession(f.org)

		rec := f.do(t, http.MethodPost, "/incidents", f.validBody(svc, svc), &session)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Len(t, data["services"], 1)
	})

	t.Run("maps unknown service to 400", func(t *testing.T) {
		f := newHandlerFixture(t)
		session := testSession(f.org)

		rec := f.do(t, http.MethodPost, "/incidents", f.validBody(uuid.NewString()), &session)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "one or more services not found")
	})

	t.Run("maps unknown organization to 404", func(t *testing.T) {
		f := newHandlerFixture(t)
		svc := f.repo.addService("api")
		session := testSession(f.org)

		body := f.validBody(svc)
		body["organizationId"] = uuid.NewString()
		rec := f.do(t, http.MethodPost, "/incidents", body, &session)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdateIncidentHandler(t *testing.T) {
	seed := func(t *testing.T, f *handlerFixture, serviceIDs ...string) string {
		t.Helper()
		session := testSession(f.org)
		rec := f.do(t, http.MethodPost, "/incidents", f.validBody(serviceIDs...), &session)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		f.publisher.calls = nil
		return data["id"].(string)
	}

	t.Run("updates fields and replaces associations", func(t *testing.T) {
		f := newHandlerFixture(t)
		svcA := f.repo.addService("api")
		svcB := f.repo.addService("web")
		id := seed(t, f, svcA)
		session := testSession(f.org)

		body := f.validBody(svcB)
		body["status"] = "resolved"
		rec := f.do(t, http.MethodPut, "/incidents/"+id, body, &session)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, "resolved", data["status"])
		assert.NotNil(t, data["resolved_at"])
		services := data["services"].([]interface{})
		require.Len(t, services, 1)
		assert.Equal(t, svcB, services[0].(map[string]interface{})["id"])

		require.Len(t, f.publisher.calls, 1)
		assert.Equal(t, EventIncidentUpdated, f.publisher.calls[0].event)
	})

	t.Run("non-uuid path id is 404", func(t *testing.T) {
		f := newHandlerFixture(t)
		svc := f.repo.addService("api")
		session := testSession(f.org)

		rec := f.do(t, http.MethodPut, "/incidents/abc", f.validBody(svc), &session)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown incident is 404", func(t *testing.T) {
		f := newHandlerFixture(t)
		svc := f.repo.addService("api")
		session := testSession(f.org)

		rec := f.do(t, http.MethodPut, "/incidents/"+uuid.NewString(), f.validBody(svc), &session)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReadIncidentHandlers(t *testing.T) {
	t.Run("get returns hydrated incident", func(t *testing.T) {
		f := newHandlerFixture(t)
		svc := f.repo.addService("api")
		session := testSession(f.org)

		rec := f.do(t, http.MethodPost, "/incidents", f.validBody(svc), &session)
		require.Equal(t, http.StatusCreated, rec.Code)
		id := decodeBody(t, rec)["data"].(map[string]interface{})["id"].(string)

		rec = f.do(t, http.MethodGet, fmt.Sprintf("/incidents/%s?organizationId=%s", id, f.org.ID), nil, &session)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, id, data["id"])
		assert.Len(t, data["services"], 1)
	})

	t.Run("list requires organizationId", func(t *testing.T) {
		f := newHandlerFixture(t)
		session := testSession(f.org)

		rec := f.do(t, http.MethodGet, "/incidents", nil, &session)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list rejects out of range limit", func(t *testing.T) {
		f := newHandlerFixture(t)
		session := testSession(f.org)

		rec := f.do(t, http.MethodGet, "/incidents?organizationId="+f.org.ID+"&limit=500", nil, &session)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list filters by status", func(t *testing.T) {
		f := newHandlerFixture(t)
		svc := f.repo.addService("api")
		session := testSession(f.org)

		rec := f.do(t, http.MethodPost, "/incidents", f.validBody(svc), &session)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = f.do(t, http.MethodGet, "/incidents?organizationId="+f.org.ID+"&status=investigating", nil, &session)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].([]interface{})
		assert.Len(t, data, 1)
	})
}
