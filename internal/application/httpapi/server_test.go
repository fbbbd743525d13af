package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/application/handlers"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/mocks"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/ports"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/services"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/logging"
)

type testServer struct {
	*httptest.Server
	repo  *mocks.TreeRepository
	index *mocks.MemberIndex
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	var next atomic.Int64
	repo := mocks.NewTreeRepository()
	index := mocks.NewMemberIndex()
	search := services.NewSearchService(&mocks.Embedder{EmbeddingResult: []float32{1, 0}}, index, index, 2)
	locks := services.NewTreeLocks()
	trees := services.NewTreeService(repo, locks, search, nil)
	members := services.NewMemberService(repo, locks, search, nil, services.MemberOptions{
		ValidateOnWrite: true,
		NewID:           func() string { return fmt.Sprintf("m%d", next.Add(1)) },
	})

	srv := NewServer(Handlers{
		Trees:   handlers.NewTreeHandler(trees),
		Members: handlers.NewMemberHandler(members),
		Search:  handlers.NewSearchHandler(trees, search),
	}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, repo: repo, index: index}
}

// do sends a request and decodes a JSON response into out when given.
func (ts *testServer) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) createTree(t *testing.T, name string) string {
	t.Helper()
	var tree entities.Tree
	status := ts.do(t, http.MethodPost, "/api/family-trees", map[string]any{"name": name}, &tree)
	require.Equal(t, http.StatusCreated, status)
	return tree.ID
}

func (ts *testServer) addMember(t *testing.T, treeID string, in handlers.MemberInput) *entities.Member {
	t.Helper()
	var m entities.Member
	status := ts.do(t, http.MethodPost, "/api/family-trees/"+treeID+"/members", in, &m)
	require.Equal(t, http.StatusCreated, status)
	return &m
}

func TestServer_TreeLifecycle(t *testing.T) {
	ts := newTestServer(t)
	treeID := ts.createTree(t, "Reed")

	var list handlers.TreeListResult
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/family-trees/", nil, &list))
	assert.Equal(t, 1, list.Total)

	var tree entities.Tree
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/family-trees/"+treeID, nil, &tree))
	assert.Equal(t, "Reed", tree.Name)
	assert.NotNil(t, tree.Members)

	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/family-trees/"+treeID, nil, nil))

	var errBody errorResponse
	require.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/family-trees/"+treeID, nil, &errBody))
	assert.Contains(t, errBody.Error, "not found")
}

func TestServer_MembersAndRelations(t *testing.T) {
	ts := newTestServer(t)
	treeID := ts.createTree(t, "Reed")
	ann := ts.addMember(t, treeID, handlers.MemberInput{Name: "Ann", Gender: "female"})
	bob := ts.addMember(t, treeID, handlers.MemberInput{Name: "Bob", Gender: "male"})
	base := "/api/family-trees/" + treeID + "/members/"

	var rel handlers.RelateResult
	status := ts.do(t, http.MethodPost, base+ann.ID+"/relation", handlers.RelateInput{
		Mode:            "spouse",
		RelationType:    "married",
		RelatedMemberID: bob.ID,
	}, &rel)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, rel.CreatedMemberID)
	require.Len(t, rel.UpdatedMembers, 2)

	status = ts.do(t, http.MethodPost, base+ann.ID+"/relation", handlers.RelateInput{
		Mode:             "child",
		RelationType:     "blood",
		SpouseIDForChild: bob.ID,
		NewMember:        &handlers.MemberInput{Name: "Cal"},
	}, &rel)
	require.Equal(t, http.StatusOK, status)
	childID := rel.CreatedMemberID
	require.NotEmpty(t, childID)

	var tree entities.Tree
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/family-trees/"+treeID, nil, &tree))
	assert.Len(t, tree.Member(childID).Parents, 2)

	var updated entities.Member
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, base+childID, map[string]any{"surname": "Stone"}, &updated))
	assert.Equal(t, "Stone", updated.Surname)
	assert.Len(t, updated.Parents, 2)

	var options handlers.OptionsResult
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, base+childID+"/relation-options?mode=parent", nil, &options))
	assert.Equal(t, []entities.RelationType{entities.RelationAdopted}, options.Types)

	var validation map[string]any
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/family-trees/"+treeID+"/validate", nil, &validation))
	assert.Equal(t, true, validation["valid"])
	assert.Equal(t, float64(3), validation["members"])

	var path map[string][]map[string]string
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/family-trees/"+treeID+"/path?from="+childID+"&to="+bob.ID, nil, &path))
	require.Len(t, path["steps"], 1)
	assert.Equal(t, "parents", path["steps"][0]["list"])

	var removed handlers.RemoveResult
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, base+bob.ID, nil, &removed))
	assert.Len(t, removed.UpdatedMembers, 2)

	var history map[string][]entities.AuditEntry
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/family-trees/"+treeID+"/history?limit=2", nil, &history))
	require.Len(t, history["entries"], 2)
	assert.Equal(t, entities.ActionMemberRemoved, history["entries"][0].Action)
}

func TestServer_Errors(t *testing.T) {
	ts := newTestServer(t)
	treeID := ts.createTree(t, "Reed")
	ann := ts.addMember(t, treeID, handlers.MemberInput{Name: "Ann"})
	base := "/api/family-trees/" + treeID + "/members/"

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"empty tree name", http.MethodPost, "/api/family-trees", map[string]any{"name": ""}, http.StatusBadRequest},
		{"unknown tree", http.MethodPost, "/api/family-trees/nope/members", handlers.MemberInput{Name: "X"}, http.StatusNotFound},
		{"unknown member", http.MethodPut, base + "ghost", map[string]any{"name": "X"}, http.StatusNotFound},
		{"invalid gender", http.MethodPost, "/api/family-trees/" + treeID + "/members", handlers.MemberInput{Gender: "robot"}, http.StatusBadRequest},
		{"bad mode", http.MethodPost, base + ann.ID + "/relation", handlers.RelateInput{Mode: "uncle", RelationType: "blood"}, http.StatusBadRequest},
		{"missing relation type", http.MethodPost, base + ann.ID + "/relation", handlers.RelateInput{Mode: "spouse"}, http.StatusBadRequest},
		{"options without mode", http.MethodGet, base + ann.ID + "/relation-options", nil, http.StatusBadRequest},
		{"path without target", http.MethodGet, "/api/family-trees/" + treeID + "/path?from=" + ann.ID, nil, http.StatusBadRequest},
		{"bad history limit", http.MethodGet, "/api/family-trees/" + treeID + "/history?limit=-3", nil, http.StatusBadRequest},
		{"search without query", http.MethodGet, "/api/family-trees/" + treeID + "/search", nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nothing", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			status := ts.do(t, tt.method, tt.path, tt.body, &body)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body.Error)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		resp, err := ts.Client().Post(ts.URL+"/api/family-trees", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

}

func TestServer_InternalErrorsAreHidden(t *testing.T) {
	srv := NewServer(Handlers{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/family-trees", nil)

	srv.writeError(rec, req, fmt.Errorf("listing trees: %w", errors.New("disk on fire")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Error)
}

func TestServer_PartialGraphIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.repo.Trees["broken"] = &entities.Tree{ID: "broken", Name: "Broken", Members: []*entities.Member{
		{ID: "a", Siblings: []entities.Relation{{ID: "gone", Type: entities.RelationBlood}}},
	}}

	var body errorResponse
	status := ts.do(t, http.MethodPost, "/api/family-trees/broken/members/a/relation", handlers.RelateInput{Mode: "parent", RelationType: "blood"}, &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body.Error, "partial graph")
}

func TestServer_Search(t *testing.T) {
	ts := newTestServer(t)
	treeID := ts.createTree(t, "Reed")
	ann := ts.addMember(t, treeID, handlers.MemberInput{Name: "Ann", Description: "Founder"})
	ts.index.Hits = []ports.MemberHit{{TreeID: treeID, MemberID: ann.ID, Name: "Ann", Score: 0.8}}

	var result handlers.SearchResult
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/family-trees/"+treeID+"/search?q=founder&limit=3", nil, &result))
	require.Len(t, result.Hits, 1)
	assert.Equal(t, ann.ID, result.Hits[0].MemberID)
	assert.Equal(t, 3, ts.index.LastSearchLimit)
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)
	ts.createTree(t, "Reed")

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `familytree_http_requests_total{method="POST",route="/api/family-trees",status="201"} 1`)
	assert.Contains(t, string(body), "familytree_http_request_duration_seconds")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("loading: %w", entities.ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, statusFor(entities.ErrInvalidRequest))
	assert.Equal(t, http.StatusConflict, statusFor(entities.ErrPartialGraph))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestServer_RequestID(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(logging.RequestIDHeader, "req-42")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get(logging.RequestIDHeader))

	resp2, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.NotEmpty(t, resp2.Header.Get(logging.RequestIDHeader))
}
