// Command lambda runs the curriculum graph API behind API Gateway.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"

	"coursegraph-backend/internal/di"
)

var chiLambda *chiadapter.ChiLambdaV2

func init() {
	container, err := di.NewContainer(context.Background())
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	chiLambda = chiadapter.NewV2(container.Mux)
	container.Logger.Info("lambda handler initialized")
}

// Handler proxies API Gateway V2 events into the chi router.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
