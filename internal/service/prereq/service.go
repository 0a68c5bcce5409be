// Package prereq checks course readiness and sequence ordering against the
// prerequisite graph.
package prereq

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/observability"
	"coursegraph-backend/internal/repository"
)

// CourseRef identifies a course by its external entity id and label.
type CourseRef struct {
	EntityID string `json:"entity_id"`
	Label    string `json:"label"`
}

// ReadinessResult reports whether a student may take a course and which
// mandatory prerequisites are still missing.
type ReadinessResult struct {
	Ready                bool        `json:"ready"`
	MissingPrerequisites []CourseRef `json:"missing_prerequisites"`
}

// Issue describes one ordering violation in a course sequence.
type Issue struct {
	PrerequisiteID    string `json:"prerequisite_id"`
	PrerequisiteLabel string `json:"prerequisite_label"`
	CourseID          string `json:"course_id"`
	CourseLabel       string `json:"course_label"`
	Description       string `json:"description"`
}

// SequenceResult reports whether an ordered course sequence respects every
// prerequisite edge among its members.
type SequenceResult struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Service answers prerequisite queries. It is a pure reader over the store.
type Service struct {
	store     repository.GraphStore
	collector *observability.Collector
	logger    *zap.Logger
}

// NewService creates the prerequisite service.
func NewService(store repository.GraphStore, collector *observability.Collector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, collector: collector, logger: logger}
}

// CheckPrerequisites verifies the direct mandatory prerequisites of a
// course against the student's completed courses. This is a one-hop check;
// each prerequisite edge already represents a direct dependency. The
// studentID is carried for log correlation only.
func (s *Service) CheckPrerequisites(ctx context.Context, courseEntityID, studentID string, completedEntityIDs []string) (*ReadinessResult, error) {
	course, err := s.store.GetNodeByEntity(ctx, courseEntityID, graph.NodeTypeCourse)
	if err != nil {
		return nil, err
	}

	edges, err := s.store.GetEdgesTo(ctx, course.ID, graph.EdgeTypePrerequisite)
	if err != nil {
		return nil, err
	}

	completed := make(map[string]struct{}, len(completedEntityIDs))
	for _, id := range completedEntityIDs {
		completed[id] = struct{}{}
	}

	result := &ReadinessResult{MissingPrerequisites: []CourseRef{}}
	for _, e := range edges {
		if !e.Mandatory() {
			continue
		}
		prereq, err := s.store.GetNode(ctx, e.SourceID)
		if err != nil {
			return nil, err
		}
		if _, done := completed[prereq.EntityID]; done {
			continue
		}
		result.MissingPrerequisites = append(result.MissingPrerequisites, CourseRef{
			EntityID: prereq.EntityID,
			Label:    prereq.Label,
		})
	}
	result.Ready = len(result.MissingPrerequisites) == 0

	if s.collector != nil {
		s.collector.PrereqChecks.Inc()
	}
	s.logger.Debug("prerequisite check",
		zap.String("course_entity_id", courseEntityID),
		zap.String("student_id", studentID),
		zap.Bool("ready", result.Ready),
		zap.Int("missing", len(result.MissingPrerequisites)),
	)
	return result, nil
}

// ValidateCourseSequence checks every pairwise prerequisite edge among the
// sequence members, not only consecutive pairs. A prerequisite appearing
// after its dependent course produces an issue.
func (s *Service) ValidateCourseSequence(ctx context.Context, sequence []string) (*SequenceResult, error) {
	nodes := make([]*graph.Node, len(sequence))
	position := make(map[string]int, len(sequence))
	for i, entityID := range sequence {
		node, err := s.store.GetNodeByEntity(ctx, entityID, graph.NodeTypeCourse)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
		// A repeated course keeps its first position.
		if _, seen := position[node.ID]; !seen {
			position[node.ID] = i
		}
	}

	result := &SequenceResult{Issues: []Issue{}}
	for i, node := range nodes {
		if position[node.ID] != i {
			continue
		}
		edges, err := s.store.GetEdgesFrom(ctx, node.ID, graph.EdgeTypePrerequisite)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			j, inSequence := position[e.TargetID]
			if !inSequence {
				continue
			}
			if position[node.ID] < j {
				continue
			}
			dependent := nodes[j]
			result.Issues = append(result.Issues, Issue{
				PrerequisiteID:    node.EntityID,
				PrerequisiteLabel: node.Label,
				CourseID:          dependent.EntityID,
				CourseLabel:       dependent.Label,
				Description: fmt.Sprintf("%s (position %d) is a prerequisite of %s (position %d) and must come first",
					node.Label, i, dependent.Label, j),
			})
		}
	}
	result.Valid = len(result.Issues) == 0
	return result, nil
}
