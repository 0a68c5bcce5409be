// Package dynamodb implements the GraphStore contract on a DynamoDB
// single-table design. Uniqueness constraints are enforced with conditional
// writes; multi-item mutations (node creation with its entity guard, cascade
// deletes, bulk import) go through TransactWriteItems.
package dynamodb

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/errors"
	"coursegraph-backend/internal/repository"
)

// Client is the subset of the DynamoDB API the store uses, satisfied by
// *dynamodb.Client.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements repository.GraphStore against a single DynamoDB table.
type Store struct {
	client          Client
	tableName       string
	edgeTargetIndex string // GSI1
	edgeIDIndex     string // GSI2
	logger          *zap.Logger
}

// NewStore creates a DynamoDB-backed graph store.
func NewStore(client Client, tableName, edgeTargetIndex, edgeIDIndex string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:          client,
		tableName:       tableName,
		edgeTargetIndex: edgeTargetIndex,
		edgeIDIndex:     edgeIDIndex,
		logger:          logger,
	}
}

var _ repository.GraphStore = (*Store)(nil)

// storageError wraps a backend failure, preserving the operation name for
// callers and log correlation.
func storageError(op string, cause error) error {
	return errors.Storage(errors.CodeStorageFailure, "dynamodb operation failed").
		WithOperation(op).
		WithCause(cause).
		Build()
}

// conditionalCheckFailed reports whether err is a single-item conditional
// write rejection.
func conditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return stderrors.As(err, &ccf)
}

// transactionCanceled extracts the cancellation reasons of a failed
// TransactWriteItems call, if that is what err is.
func transactionCanceled(err error) ([]types.CancellationReason, bool) {
	var tce *types.TransactionCanceledException
	if stderrors.As(err, &tce) {
		return tce.CancellationReasons, true
	}
	return nil, false
}

func reasonIsConditionFailure(reason types.CancellationReason) bool {
	return reason.Code != nil && *reason.Code == "ConditionalCheckFailed"
}

// CreateNode writes the node item and its entity guard in one transaction.
// The guard's conditional put turns a concurrent (entity_id, type) race into
// a deterministic winner plus a DuplicateNode error for the loser.
func (s *Store) CreateNode(ctx context.Context, node *graph.Node) (*graph.Node, error) {
	nodeAV, err := attributevalue.MarshalMap(newNodeItem(node))
	if err != nil {
		return nil, storageError("CreateNode", err)
	}
	guardAV, err := attributevalue.MarshalMap(newEntityGuardItem(node))
	if err != nil {
		return nil, storageError("CreateNode", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                guardAV,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item:      nodeAV,
			}},
		},
	})
	if err != nil {
		if reasons, ok := transactionCanceled(err); ok {
			for _, reason := range reasons {
				if reasonIsConditionFailure(reason) {
					return nil, graph.NewDuplicateNodeError(node.EntityID, node.Type)
				}
			}
		}
		return nil, storageError("CreateNode", err)
	}
	return node, nil
}

// GetNode fetches a node by internal ID.
func (s *Store) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       nodeKey(id),
	})
	if err != nil {
		return nil, storageError("GetNode", err)
	}
	if out.Item == nil {
		return nil, graph.NewNodeNotFoundError(id)
	}

	var item nodeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, storageError("GetNode", err)
	}
	node, err := item.toDomain()
	if err != nil {
		return nil, storageError("GetNode", err)
	}
	return node, nil
}

// GetNodeByEntity resolves (entity_id, type) through the guard item.
func (s *Store) GetNodeByEntity(ctx context.Context, entityID string, nodeType graph.NodeType) (*graph.Node, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: entityGuardPK(nodeType, entityID)},
			"SK": &types.AttributeValueMemberS{Value: skEntityGuard},
		},
	})
	if err != nil {
		return nil, storageError("GetNodeByEntity", err)
	}
	if out.Item == nil {
		return nil, graph.NewEntityNotFoundError(entityID, nodeType)
	}

	var guard entityGuardItem
	if err := attributevalue.UnmarshalMap(out.Item, &guard); err != nil {
		return nil, storageError("GetNodeByEntity", err)
	}
	return s.GetNode(ctx, guard.NodeID)
}

// UpdateNode applies a patch with a single conditional UpdateItem.
func (s *Store) UpdateNode(ctx context.Context, id string, patch graph.NodePatch) (*graph.Node, error) {
	current, err := s.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	current.Apply(patch)
	item := newNodeItem(current)

	update := expression.
		Set(expression.Name("Label"), expression.Value(item.Label)).
		Set(expression.Name("LabelLower"), expression.Value(item.LabelLower)).
		Set(expression.Name("Properties"), expression.Value(item.Properties)).
		Set(expression.Name("Metadata"), expression.Value(item.Metadata)).
		Set(expression.Name("UpdatedAt"), expression.Value(item.UpdatedAt)).
		Set(expression.Name("UpdatedBy"), expression.Value(item.UpdatedBy))
	cond := expression.AttributeExists(expression.Name("PK"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, storageError("UpdateNode", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       nodeKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if conditionalCheckFailed(err) {
			return nil, graph.NewNodeNotFoundError(id)
		}
		return nil, storageError("UpdateNode", err)
	}
	return current, nil
}

// DeleteNode removes the node, its entity guard, and every edge referencing
// it. Edge cascades larger than one transaction are applied in chunks.
func (s *Store) DeleteNode(ctx context.Context, id string) (bool, error) {
	node, err := s.GetNode(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	outgoing, err := s.GetEdgesFrom(ctx, id)
	if err != nil {
		return false, err
	}
	incoming, err := s.GetEdgesTo(ctx, id)
	if err != nil {
		return false, err
	}

	items := []types.TransactWriteItem{
		{Delete: &types.Delete{TableName: aws.String(s.tableName), Key: nodeKey(id)}},
		{Delete: &types.Delete{TableName: aws.String(s.tableName), Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: entityGuardPK(node.Type, node.EntityID)},
			"SK": &types.AttributeValueMemberS{Value: skEntityGuard},
		}}},
	}
	for _, edge := range append(outgoing, incoming...) {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{TableName: aws.String(s.tableName), Key: edgeKeyOf(edge)},
		})
	}

	for start := 0; start < len(items); start += maxTransactItems {
		end := start + maxTransactItems
		if end > len(items) {
			end = len(items)
		}
		_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items[start:end],
		})
		if err != nil {
			return false, storageError("DeleteNode", err)
		}
	}
	return true, nil
}

// SearchNodes scans for label matches and ranks them: exact, prefix,
// substring. Sufficient at curriculum scale; large deployments would put a
// search index in front.
func (s *Store) SearchNodes(ctx context.Context, query string, typeFilter graph.NodeType, limit int) ([]*graph.Node, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	filter := expression.Equal(expression.Name("EntityType"), expression.Value(entityTypeNode)).
		And(expression.Contains(expression.Name("LabelLower"), q))
	if typeFilter != "" {
		filter = filter.And(expression.Equal(expression.Name("NodeType"), expression.Value(string(typeFilter))))
	}
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, storageError("SearchNodes", err)
	}

	var nodes []*graph.Node
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, storageError("SearchNodes", err)
		}
		var items []nodeItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, storageError("SearchNodes", err)
		}
		for _, item := range items {
			node, err := item.toDomain()
			if err != nil {
				return nil, storageError("SearchNodes", err)
			}
			nodes = append(nodes, node)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	rankLabelMatches(nodes, q)
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes, nil
}

func rankLabelMatches(nodes []*graph.Node, q string) {
	score := func(label string) int {
		label = strings.ToLower(label)
		switch {
		case label == q:
			return 0
		case strings.HasPrefix(label, q):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		si, sj := score(nodes[i].Label), score(nodes[j].Label)
		if si != sj {
			return si < sj
		}
		return nodes[i].Label < nodes[j].Label
	})
}

// CreateEdge writes the edge with condition checks on both endpoints, so
// referential integrity holds even against a concurrent node delete.
func (s *Store) CreateEdge(ctx context.Context, edge *graph.Edge) (*graph.Edge, error) {
	edgeAV, err := attributevalue.MarshalMap(newEdgeItem(edge))
	if err != nil {
		return nil, storageError("CreateEdge", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{ConditionCheck: &types.ConditionCheck{
				TableName:           aws.String(s.tableName),
				Key:                 nodeKey(edge.SourceID),
				ConditionExpression: aws.String("attribute_exists(PK)"),
			}},
			{ConditionCheck: &types.ConditionCheck{
				TableName:           aws.String(s.tableName),
				Key:                 nodeKey(edge.TargetID),
				ConditionExpression: aws.String("attribute_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                edgeAV,
				ConditionExpression: aws.String("attribute_not_exists(SK)"),
			}},
		},
	})
	if err != nil {
		if reasons, ok := transactionCanceled(err); ok && len(reasons) == 3 {
			switch {
			case reasonIsConditionFailure(reasons[0]):
				return nil, graph.NewNodeNotFoundError(edge.SourceID)
			case reasonIsConditionFailure(reasons[1]):
				return nil, graph.NewNodeNotFoundError(edge.TargetID)
			case reasonIsConditionFailure(reasons[2]):
				return nil, graph.NewDuplicateEdgeError(edge.Type, edge.SourceID, edge.TargetID)
			}
		}
		return nil, storageError("CreateEdge", err)
	}
	return edge, nil
}

// GetEdge resolves an edge by ID through the edge-ID index.
func (s *Store) GetEdge(ctx context.Context, id string) (*graph.Edge, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(edgeIDPK(id)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, storageError("GetEdge", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.edgeIDIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, storageError("GetEdge", err)
	}
	if len(out.Items) == 0 {
		return nil, graph.ErrEdgeNotFound
	}

	var item edgeItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, storageError("GetEdge", err)
	}
	edge, err := item.toDomain()
	if err != nil {
		return nil, storageError("GetEdge", err)
	}
	return edge, nil
}

// GetEdgesFrom lists outgoing edges ordered by weight descending.
func (s *Store) GetEdgesFrom(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(nodePK(nodeID))).
		And(expression.Key("SK").BeginsWith(skEdgePrefix))
	return s.queryEdges(ctx, "GetEdgesFrom", keyCond, "", edgeTypes)
}

// GetEdgesTo lists incoming edges ordered by weight descending.
func (s *Store) GetEdgesTo(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(nodePK(nodeID))).
		And(expression.Key("GSI1SK").BeginsWith(skEdgePrefix))
	return s.queryEdges(ctx, "GetEdgesTo", keyCond, s.edgeTargetIndex, edgeTypes)
}

func (s *Store) queryEdges(ctx context.Context, op string, keyCond expression.KeyConditionBuilder, indexName string, edgeTypes []graph.EdgeType) ([]*graph.Edge, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, storageError(op, err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if indexName != "" {
		input.IndexName = aws.String(indexName)
	}

	var edges []*graph.Edge
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, storageError(op, err)
		}
		var items []edgeItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, storageError(op, err)
		}
		for _, item := range items {
			edge, err := item.toDomain()
			if err != nil {
				return nil, storageError(op, err)
			}
			if len(edgeTypes) > 0 && !edgeTypeIn(edgeTypes, edge.Type) {
				continue
			}
			edges = append(edges, edge)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})
	return edges, nil
}

func edgeTypeIn(types []graph.EdgeType, t graph.EdgeType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// GetNeighbors fetches the edges for the requested direction and resolves
// each neighbor node.
func (s *Store) GetNeighbors(ctx context.Context, nodeID string, query repository.NeighborQuery) ([]repository.NeighborView, error) {
	if _, err := s.GetNode(ctx, nodeID); err != nil {
		return nil, err
	}

	direction := query.Direction
	if direction == "" {
		direction = repository.DirectionBoth
	}

	var views []repository.NeighborView
	if direction == repository.DirectionOutgoing || direction == repository.DirectionBoth {
		edges, err := s.GetEdgesFrom(ctx, nodeID, query.EdgeTypes...)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			node, err := s.GetNode(ctx, edge.TargetID)
			if err != nil {
				return nil, err
			}
			views = append(views, repository.NeighborView{
				Node:       node,
				EdgeID:     edge.ID,
				EdgeType:   edge.Type,
				EdgeWeight: edge.Weight,
				Direction:  repository.DirectionOutgoing,
			})
		}
	}
	if direction == repository.DirectionIncoming || direction == repository.DirectionBoth {
		edges, err := s.GetEdgesTo(ctx, nodeID, query.EdgeTypes...)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			node, err := s.GetNode(ctx, edge.SourceID)
			if err != nil {
				return nil, err
			}
			views = append(views, repository.NeighborView{
				Node:       node,
				EdgeID:     edge.ID,
				EdgeType:   edge.Type,
				EdgeWeight: edge.Weight,
				Direction:  repository.DirectionIncoming,
			})
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].EdgeWeight > views[j].EdgeWeight
	})
	return views, nil
}

// DeleteEdge removes an edge by ID.
func (s *Store) DeleteEdge(ctx context.Context, id string) (bool, error) {
	edge, err := s.GetEdge(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       edgeKeyOf(edge),
	})
	if err != nil {
		return false, storageError("DeleteEdge", err)
	}
	return true, nil
}

func nodeKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: nodePK(id)},
		"SK": &types.AttributeValueMemberS{Value: skNodeMetadata},
	}
}

func edgeKeyOf(edge *graph.Edge) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: nodePK(edge.SourceID)},
		"SK": &types.AttributeValueMemberS{Value: edgeSK(edge.Type, edge.TargetID)},
	}
}

// apiErrorCode extracts the service error code for logging, if any.
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
