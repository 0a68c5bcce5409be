package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coursegraph-backend/internal/config"
	"coursegraph-backend/internal/repository/memory"
	graphservice "coursegraph-backend/internal/service/graph"
	"coursegraph-backend/internal/service/pathfinding"
	"coursegraph-backend/internal/service/prereq"
	"coursegraph-backend/pkg/common"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore(logger)
	cfg := &config.Config{
		Environment:              config.Development,
		StoreType:                config.StoreMemory,
		MaxTraversalDepth:        10,
		RejectPrerequisiteCycles: true,
	}

	graphs := graphservice.NewService(store, nil, logger, graphservice.Options{RejectPrerequisiteCycles: true})
	paths := pathfinding.NewService(store, nil, logger, cfg.MaxTraversalDepth, cfg.DefaultRecommendationLimit)
	prereqs := prereq.NewService(store, nil, logger)

	router := NewRouter(cfg, graphs, paths, prereqs, nil, logger)
	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, common.APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var envelope common.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func createCourseHTTP(t *testing.T, server *httptest.Server, entityID, label string) string {
	t.Helper()
	resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/nodes", map[string]any{
		"type":      "COURSE",
		"entity_id": entityID,
		"label":     label,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := envelope.Data.(map[string]any)
	return data["id"].(string)
}

func TestNodeEndpoints(t *testing.T) {
	server := newTestServer(t)

	t.Run("CreateAndGet", func(t *testing.T) {
		id := createCourseHTTP(t, server, "course-1", "Algebra")

		resp, envelope := doJSON(t, http.MethodGet, server.URL+"/api/v1/nodes/"+id, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, envelope.Success)
		data := envelope.Data.(map[string]any)
		assert.Equal(t, "Algebra", data["label"])
	})

	t.Run("DuplicateMapsToConflict", func(t *testing.T) {
		resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/nodes", map[string]any{
			"type":      "COURSE",
			"entity_id": "course-1",
			"label":     "Algebra Again",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "NODE_DUPLICATE", envelope.Error.Code)
	})

	t.Run("MissingNodeMapsTo404", func(t *testing.T) {
		resp, envelope := doJSON(t, http.MethodGet, server.URL+"/api/v1/nodes/missing", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "NODE_NOT_FOUND", envelope.Error.Code)
	})

	t.Run("ValidationFailureMapsTo400", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/nodes", map[string]any{
			"type": "COURSE",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("LookupByEntity", func(t *testing.T) {
		resp, envelope := doJSON(t, http.MethodGet, server.URL+"/api/v1/entities/COURSE/course-1", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data := envelope.Data.(map[string]any)
		assert.Equal(t, "course-1", data["entity_id"])
	})
}

func TestEdgeAndPathEndpoints(t *testing.T) {
	server := newTestServer(t)

	aID := createCourseHTTP(t, server, "a", "Course A")
	bID := createCourseHTTP(t, server, "b", "Course B")

	t.Run("CreateEdge", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/edges", map[string]any{
			"type":           "PREREQUISITE_OF",
			"source_node_id": aID,
			"target_node_id": bID,
			"weight":         0.8,
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("SelfLoopsRejected", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/edges", map[string]any{
			"type":           "PREREQUISITE_OF",
			"source_node_id": aID,
			"target_node_id": aID,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("FindPath", func(t *testing.T) {
		url := fmt.Sprintf("%s/api/v1/paths?start=%s&end=%s", server.URL, "a", "b")
		resp, envelope := doJSON(t, http.MethodGet, url, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data := envelope.Data.(map[string]any)
		assert.Equal(t, float64(2), data["total_courses"])
	})

	t.Run("NoPathMapsTo404", func(t *testing.T) {
		url := fmt.Sprintf("%s/api/v1/paths?start=%s&end=%s", server.URL, "b", "a")
		resp, envelope := doJSON(t, http.MethodGet, url, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "PATH_NOT_FOUND", envelope.Error.Code)
	})

	t.Run("Recommendations", func(t *testing.T) {
		resp, envelope := doJSON(t, http.MethodGet, server.URL+"/api/v1/courses/a/recommendations", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data := envelope.Data.(map[string]any)
		assert.Equal(t, float64(1), data["count"])
	})

	t.Run("PrerequisiteCheck", func(t *testing.T) {
		resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/courses/b/prerequisites/check", map[string]any{
			"student_id":           "student-1",
			"completed_entity_ids": []string{},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data := envelope.Data.(map[string]any)
		assert.Equal(t, false, data["ready"])
	})

	t.Run("SequenceValidation", func(t *testing.T) {
		resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/courses/sequence/validate", map[string]any{
			"sequence": []string{"b", "a"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data := envelope.Data.(map[string]any)
		assert.Equal(t, false, data["valid"])
	})
}

func TestImportEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/graph/import", map[string]any{
		"nodes": []map[string]any{
			{"type": "COURSE", "entity_id": "x", "label": "X"},
			{"type": "COURSE", "entity_id": "y", "label": "Y"},
		},
		"edges": []map[string]any{
			{
				"type":             "PREREQUISITE_OF",
				"source_entity_id": "x",
				"source_type":      "COURSE",
				"target_entity_id": "y",
				"target_type":      "COURSE",
			},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := envelope.Data.(map[string]any)
	assert.Equal(t, float64(2), data["nodes_created"])
	assert.Equal(t, float64(1), data["edges_created"])
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
