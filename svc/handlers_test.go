package svc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	return w
}

func TestHandleHealthz(t *testing.T) {
	dir, _ := storeRunTestRepo(t, 1)
	s := newRunTestSvc(t, dir)

	w := doRequest(t, s.HttpServerMux(), "GET", "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHandleRedate(t *testing.T) {
	dir, _ := storeRunTestRepo(t, 3)
	s := newRunTestSvc(t, dir)
	mux := s.HttpServerMux()

	w := doRequest(t, mux, "POST", "/redate/local")
	require.Equal(t, http.StatusOK, w.Code)

	rec := &OperationRecord{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), rec))
	assert.Equal(t, OutcomeFull, rec.Outcome)
	assert.Equal(t, 3, rec.CommitsRewritten)
	assert.NotEmpty(t, rec.ID)
}

func TestHandleRedateDryRun(t *testing.T) {
	dir, chain := storeRunTestRepo(t, 3)
	s := newRunTestSvc(t, dir)

	w := doRequest(t, s.HttpServerMux(), "POST", "/redate/local?dry_run=true")
	require.Equal(t, http.StatusOK, w.Code)

	rec := &OperationRecord{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), rec))
	assert.Equal(t, OutcomeDryRun, rec.Outcome)

	assert.Equal(t, chain[2], masterHash(t, dir))
}

func TestHandleRedateUnknownRepo(t *testing.T) {
	dir, _ := storeRunTestRepo(t, 1)
	s := newRunTestSvc(t, dir)

	w := doRequest(t, s.HttpServerMux(), "POST", "/redate/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleRedateWrongMethod(t *testing.T) {
	dir, _ := storeRunTestRepo(t, 1)
	s := newRunTestSvc(t, dir)

	w := doRequest(t, s.HttpServerMux(), "GET", "/redate/local")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleRedateFailure(t *testing.T) {
	s := newRunTestSvc(t, t.TempDir()+"/not-a-repo")

	w := doRequest(t, s.HttpServerMux(), "POST", "/redate/local")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	rec := &OperationRecord{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), rec))
	assert.Equal(t, OutcomeFailed, rec.Outcome)
	assert.NotEmpty(t, rec.Error)
}

func TestHandleListOperations(t *testing.T) {
	dir, _ := storeRunTestRepo(t, 3)
	s := newRunTestSvc(t, dir)
	mux := s.HttpServerMux()

	w := doRequest(t, mux, "GET", "/operations")
	require.Equal(t, http.StatusOK, w.Code)

	var empty []*OperationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.Empty(t, empty)

	require.Equal(t, http.StatusOK, doRequest(t, mux, "POST", "/redate/local").Code)

	w = doRequest(t, mux, "GET", "/operations")
	require.Equal(t, http.StatusOK, w.Code)

	var records []*OperationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "local", records[0].Repo)
	assert.Empty(t, records[0].RemapZstd, "listings must not carry remap blobs")

	w = doRequest(t, mux, "GET", "/operations?repo=other")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Empty(t, records)

	w = doRequest(t, mux, "GET", "/operations?limit=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetOperation(t *testing.T) {
	dir, chain := storeRunTestRepo(t, 2)
	s := newRunTestSvc(t, dir)
	mux := s.HttpServerMux()

	w := doRequest(t, mux, "POST", "/redate/local")
	require.Equal(t, http.StatusOK, w.Code)
	rec := &OperationRecord{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), rec))

	w = doRequest(t, mux, "GET", "/operations/"+rec.ID)
	require.Equal(t, http.StatusOK, w.Code)

	got := struct {
		OperationRecord
		Remap map[string]string `json:"remap"`
	}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Empty(t, got.RemapZstd)
	assert.Empty(t, got.Remap)

	w = doRequest(t, mux, "GET", "/operations/"+rec.ID+"?remap=true")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Remap, 2)
	assert.Contains(t, got.Remap, chain[0].String())
	assert.Contains(t, got.Remap, chain[1].String())

	w = doRequest(t, mux, "GET", "/operations/no-such-id")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleMetrics(t *testing.T) {
	dir, _ := storeRunTestRepo(t, 3)
	s := newRunTestSvc(t, dir)
	mux := s.HttpServerMux()

	require.Equal(t, http.StatusOK, doRequest(t, mux, "POST", "/redate/local").Code)

	w := doRequest(t, mux, "GET", "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `gitredate_operations_total{outcome="full"} 1`)
	assert.Contains(t, body, "gitredate_commits_rewritten_total 3")
	assert.Contains(t, body, `gitredate_ref_updates_total{status="updated"} 1`)
}
