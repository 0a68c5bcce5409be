package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/errors"
)

// maxTransactItems is the DynamoDB TransactWriteItems hard limit.
const maxTransactItems = 100

// importFailure maps a transact item index back to the domain error that a
// conditional failure at that position means.
type importFailure func() error

// ImportGraph persists the batch as one TransactWriteItems call. Each node
// contributes its item plus an entity guard with a conditional put; each
// edge contributes a conditional put; each pre-existing endpoint contributes
// a condition check. A batch that cannot fit one transaction is rejected
// up front rather than applied in non-atomic chunks.
func (s *Store) ImportGraph(ctx context.Context, nodes []*graph.Node, edges []*graph.Edge, requiredNodeIDs []string) error {
	itemCount := 2*len(nodes) + len(edges) + len(requiredNodeIDs)
	if itemCount > maxTransactItems {
		return errors.Validation(errors.CodeImportTooLarge, "import exceeds the atomic transaction capacity").
			WithDetails("items=%d max=%d", itemCount, maxTransactItems).
			Build()
	}
	if itemCount == 0 {
		return nil
	}

	items := make([]types.TransactWriteItem, 0, itemCount)
	failures := make([]importFailure, 0, itemCount)

	for _, node := range nodes {
		node := node
		guardAV, err := attributevalue.MarshalMap(newEntityGuardItem(node))
		if err != nil {
			return storageError("ImportGraph", err)
		}
		nodeAV, err := attributevalue.MarshalMap(newNodeItem(node))
		if err != nil {
			return storageError("ImportGraph", err)
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(s.tableName),
			Item:                guardAV,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		}})
		failures = append(failures, func() error {
			return graph.NewDuplicateNodeError(node.EntityID, node.Type)
		})
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(s.tableName),
			Item:      nodeAV,
		}})
		failures = append(failures, nil)
	}

	for _, id := range requiredNodeIDs {
		id := id
		items = append(items, types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
			TableName:           aws.String(s.tableName),
			Key:                 nodeKey(id),
			ConditionExpression: aws.String("attribute_exists(PK)"),
		}})
		failures = append(failures, func() error {
			return graph.NewNodeNotFoundError(id)
		})
	}

	for _, edge := range edges {
		edge := edge
		edgeAV, err := attributevalue.MarshalMap(newEdgeItem(edge))
		if err != nil {
			return storageError("ImportGraph", err)
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(s.tableName),
			Item:                edgeAV,
			ConditionExpression: aws.String("attribute_not_exists(SK)"),
		}})
		failures = append(failures, func() error {
			return graph.NewDuplicateEdgeError(edge.Type, edge.SourceID, edge.TargetID)
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if reasons, ok := transactionCanceled(err); ok && len(reasons) == len(failures) {
			for i, reason := range reasons {
				if reasonIsConditionFailure(reason) && failures[i] != nil {
					return failures[i]()
				}
			}
		}
		s.logger.Error("graph import transaction failed",
			zap.Int("items", itemCount),
			zap.String("aws_error", apiErrorCode(err)),
			zap.Error(err),
		)
		return storageError("ImportGraph", err)
	}

	s.logger.Info("graph import committed",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return nil
}
