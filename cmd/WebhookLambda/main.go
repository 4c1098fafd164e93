package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"example.com/sttpipeline/internal/app"
	"example.com/sttpipeline/internal/config"
	"example.com/sttpipeline/internal/dispatch"
	"example.com/sttpipeline/internal/types"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

const ErrorMethodNotAllowed = "method not allowed"

type HandleFunc func(ctx context.Context, ev types.UploadEvent) dispatch.Result

type LambdaContext struct {
	handle HandleFunc
}

func (lc LambdaContext) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (*events.APIGatewayProxyResponse, error) {
	switch req.HTTPMethod {
	case http.MethodPost:
		res := lc.handle(ctx, dispatch.ParseUploadEvent(requestBody(req)))
		return apiResponse(res.StatusCode, res.Body)
	case http.MethodOptions:
		return optionsResponse()
	default:
		return apiResponse(http.StatusMethodNotAllowed, ErrorBody{ErrorMsg: ErrorMethodNotAllowed})
	}
}

func requestBody(req events.APIGatewayProxyRequest) []byte {
	if !req.IsBase64Encoded {
		return []byte(req.Body)
	}
	data, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		log.Printf("decode body: %v", err)
		return nil
	}
	return data
}

func optionsResponse() (*events.APIGatewayProxyResponse, error) {
	return &events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": "POST, OPTIONS",
			"Access-Control-Allow-Headers": "Accept, Content-Type, Content-Length, Accept-Encoding",
		},
	}, nil
}

func apiResponse(status int, body interface{}) (*events.APIGatewayProxyResponse, error) {
	resp := events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		resp.Body = string(data)
	}
	return &resp, nil
}

type ErrorBody struct {
	ErrorMsg string `json:"error,omitempty"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	lambdaContext := LambdaContext{handle: a.Dispatcher().HandleUploadEvent}
	lambda.Start(lambdaContext.HandleRequest)
}
