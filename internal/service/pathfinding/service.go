// Package pathfinding computes learning paths and next-course
// recommendations over the prerequisite graph. The service is a pure
// reader; every call works on the graph snapshot it fetches.
package pathfinding

import (
	"context"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/errors"
	"coursegraph-backend/internal/observability"
	"coursegraph-backend/internal/repository"
)

const (
	// DefaultMaxDepth bounds path searches on deep or cyclic graphs.
	DefaultMaxDepth = 10
	// DefaultRecommendationLimit caps next-course recommendations.
	DefaultRecommendationLimit = 5

	propDuration   = "duration"
	propDifficulty = "difficulty"
)

// difficultyRank orders the known difficulty levels. Unknown levels are
// skipped when checking for jumps.
var difficultyRank = map[string]int{
	"beginner":     0,
	"intermediate": 1,
	"advanced":     2,
	"expert":       3,
}

// Optimization selects the path search strategy. Only shortest-hop search
// is implemented; ties are broken by the highest cumulative edge weight.
type Optimization string

const OptimizationShortest Optimization = "shortest"

// PathResult describes one learning path from start to end.
type PathResult struct {
	Courses               []*graph.Node `json:"courses"`
	TotalCourses          int           `json:"total_courses"`
	TotalDuration         float64       `json:"total_duration"`
	DifficultyProgression []string      `json:"difficulty_progression"`
	HasDifficultyJump     bool          `json:"has_difficulty_jump"`
}

// Recommendation is one suggested follow-up course, scored by edge weight.
type Recommendation struct {
	CourseID   string  `json:"course_id"`
	CourseName string  `json:"course_name"`
	Score      float64 `json:"score"`
}

// Service answers path and recommendation queries. The depth ceiling and
// the default recommendation limit are hot reloadable, so searches read
// them atomically.
type Service struct {
	store        repository.GraphStore
	collector    *observability.Collector
	logger       *zap.Logger
	maxDepth     atomic.Int64
	defaultLimit atomic.Int64
}

// NewService creates the path-finding service. Non-positive tunables fall
// back to the package defaults.
func NewService(store repository.GraphStore, collector *observability.Collector, logger *zap.Logger, maxDepth, defaultLimit int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: store, collector: collector, logger: logger}
	s.SetTunables(maxDepth, defaultLimit)
	return s
}

// SetTunables updates the hop ceiling and the default recommendation limit.
// Safe to call while searches are in flight; an in-flight search keeps the
// ceiling it started with.
func (s *Service) SetTunables(maxDepth, defaultLimit int) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultRecommendationLimit
	}
	s.maxDepth.Store(int64(maxDepth))
	s.defaultLimit.Store(int64(defaultLimit))
}

// FindLearningPath searches for a prerequisite chain from the start course
// to the end course, both named by external entity id. The search minimizes
// hop count and breaks ties by the highest cumulative edge weight. A nil
// result with a nil error means no path exists. Searches that hit the hop
// ceiling while the frontier is still growing fail with a depth error.
func (s *Service) FindLearningPath(ctx context.Context, startEntityID, endEntityID string, opt Optimization) (*PathResult, error) {
	if opt == "" {
		opt = OptimizationShortest
	}
	if opt != OptimizationShortest {
		return nil, errors.Validation(errors.CodeValidationFailed, "unknown optimization strategy").
			WithDetails("optimization %q is not supported", opt).
			Build()
	}

	start, err := s.store.GetNodeByEntity(ctx, startEntityID, graph.NodeTypeCourse)
	if err != nil {
		s.observeSearch("rejected")
		return nil, err
	}
	end, err := s.store.GetNodeByEntity(ctx, endEntityID, graph.NodeTypeCourse)
	if err != nil {
		s.observeSearch("rejected")
		return nil, err
	}

	if start.ID == end.ID {
		s.observeSearch("found")
		return buildPathResult([]*graph.Node{start}), nil
	}

	nodePath, err := s.searchShortest(ctx, start.ID, end.ID)
	if err != nil {
		s.observeSearch("depth_exceeded")
		return nil, err
	}
	if nodePath == nil {
		s.observeSearch("not_found")
		return nil, nil
	}

	courses := make([]*graph.Node, 0, len(nodePath))
	for _, id := range nodePath {
		node, err := s.store.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		courses = append(courses, node)
	}

	s.observeSearch("found")
	s.logger.Debug("learning path found",
		zap.String("start_entity_id", startEntityID),
		zap.String("end_entity_id", endEntityID),
		zap.Int("hops", len(courses)-1),
	)
	return buildPathResult(courses), nil
}

// searchShortest runs a level-synchronized BFS over PREREQUISITE_OF edges.
// Each depth level is fully expanded before the next so that every node's
// best cumulative weight at the minimal hop count is final when its
// outgoing edges are relaxed. Returns the node id path, or nil when the end
// is unreachable.
func (s *Service) searchShortest(ctx context.Context, startID, endID string) ([]string, error) {
	maxDepth := int(s.maxDepth.Load())
	best := map[string]visit{startID: {weight: 0}}
	frontier := []string{startID}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= maxDepth {
			return nil, errors.DepthExceeded(errors.CodeDepthExceeded, "path search exceeded hop ceiling").
				WithDetails("no path within %d hops; deeper paths may exist", maxDepth).
				Build()
		}

		next := make(map[string]visit)
		for _, current := range frontier {
			edges, err := s.store.GetEdgesFrom(ctx, current, graph.EdgeTypePrerequisite)
			if err != nil {
				return nil, err
			}
			base := best[current]
			for _, e := range edges {
				if _, settled := best[e.TargetID]; settled {
					continue
				}
				candidate := visit{weight: base.weight + e.Weight, parent: current}
				if prev, ok := next[e.TargetID]; !ok || candidate.weight > prev.weight {
					next[e.TargetID] = candidate
				}
			}
		}

		if len(next) == 0 {
			return nil, nil
		}

		frontier = frontier[:0]
		for id, st := range next {
			best[id] = st
			frontier = append(frontier, id)
		}

		if _, found := best[endID]; found {
			return tracePath(best, startID, endID), nil
		}
	}
	return nil, nil
}

// visit tracks the best cumulative weight and predecessor for a node at its
// minimal BFS depth.
type visit struct {
	weight float64
	parent string
}

func tracePath(best map[string]visit, startID, endID string) []string {
	var reversed []string
	for id := endID; ; {
		reversed = append(reversed, id)
		if id == startID {
			break
		}
		id = best[id].parent
	}
	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

// buildPathResult derives the duration total and difficulty progression
// from the ordered course nodes.
func buildPathResult(courses []*graph.Node) *PathResult {
	result := &PathResult{
		Courses:               courses,
		TotalCourses:          len(courses),
		DifficultyProgression: make([]string, 0, len(courses)),
	}

	prevRank := math.MinInt32
	for _, node := range courses {
		result.TotalDuration += node.Properties.Number(propDuration, 0)

		difficulty := node.Properties.String(propDifficulty, "")
		result.DifficultyProgression = append(result.DifficultyProgression, difficulty)

		rank, known := difficultyRank[difficulty]
		if !known {
			continue
		}
		if prevRank != math.MinInt32 && abs(rank-prevRank) > 1 {
			result.HasDifficultyJump = true
		}
		prevRank = rank
	}
	return result
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// GetRecommendedNextCourses lists the courses reachable from the current
// course over one outgoing PREREQUISITE_OF edge, strongest weight first. A
// course with no outgoing prerequisite edges yields an empty list.
func (s *Service) GetRecommendedNextCourses(ctx context.Context, currentEntityID string, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = int(s.defaultLimit.Load())
	}

	current, err := s.store.GetNodeByEntity(ctx, currentEntityID, graph.NodeTypeCourse)
	if err != nil {
		return nil, err
	}

	edges, err := s.store.GetEdgesFrom(ctx, current.ID, graph.EdgeTypePrerequisite)
	if err != nil {
		return nil, err
	}

	recommendations := make([]Recommendation, 0, limit)
	for _, e := range edges {
		if len(recommendations) == limit {
			break
		}
		target, err := s.store.GetNode(ctx, e.TargetID)
		if err != nil {
			return nil, err
		}
		recommendations = append(recommendations, Recommendation{
			CourseID:   target.EntityID,
			CourseName: target.Label,
			Score:      e.Weight,
		})
	}
	return recommendations, nil
}

func (s *Service) observeSearch(outcome string) {
	if s.collector != nil {
		s.collector.PathSearches.WithLabelValues(outcome).Inc()
	}
}
