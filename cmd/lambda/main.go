package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/gleyba/test-db/internal/dbengine"
	"github.com/gleyba/test-db/internal/obs"
	"github.com/gleyba/test-db/internal/web"
)

const uploadBucket = "test-db-uploads"

var invocations int

var db *dbengine.Database

var log *zap.SugaredLogger

var dummyStatusCode int = -1

type recordingResponseWriter struct {
	headers http.Header
	buffer  bytes.Buffer
	status  int
}

func newRecordingResponseWriter() *recordingResponseWriter {
	return &recordingResponseWriter{
		headers: make(http.Header),
		status:  dummyStatusCode,
	}
}

func (rw *recordingResponseWriter) Header() http.Header {
	return rw.headers
}

func (rw *recordingResponseWriter) WriteHeader(statusCode int) {
	rw.status = statusCode
}

func (rw *recordingResponseWriter) Write(s []byte) (int, error) {
	if rw.status == dummyStatusCode {
		rw.status = http.StatusOK
	}
	return rw.buffer.Write(s)
}

func lambdaRequestToNative(req events.LambdaFunctionURLRequest) *http.Request {
	header := make(http.Header, len(req.Headers))
	for k, v := range req.Headers {
		header.Set(k, v)
	}
	ret := http.Request{
		Method:        req.RequestContext.HTTP.Method,
		Proto:         req.RequestContext.HTTP.Protocol,
		RemoteAddr:    req.RequestContext.HTTP.SourceIP,
		Body:          io.NopCloser(strings.NewReader(req.Body)),
		ContentLength: int64(len(req.Body)),
		Header:        header,
		URL: &url.URL{
			Scheme:   "https",
			Host:     req.RequestContext.DomainName,
			Path:     req.RequestContext.HTTP.Path,
			RawPath:  req.RawPath,
			RawQuery: req.RawQueryString,
		},
	}
	return &ret
}

func (rw *recordingResponseWriter) toLambdaFunctionResponse() events.LambdaFunctionURLResponse {
	headers := make(map[string]string)
	for h, v := range rw.headers {
		headers[h] = strings.Join(v, ",")
	}
	return events.LambdaFunctionURLResponse{
		StatusCode:      rw.status,
		Body:            rw.buffer.String(),
		IsBase64Encoded: false,
		Headers:         headers,
	}
}

// presignFunc produces a presigned upload URL for the given bucket/key, so
// tests can exercise the /upload/pre-signed branch without talking to AWS.
type presignFunc func(ctx context.Context, bucket, key string) (string, error)

func presignS3Upload(ctx context.Context, bucket, key string) (string, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion("eu-central-1"))
	if err != nil {
		return "", err
	}
	client := s3.NewFromConfig(cfg)
	presigner := s3.NewPresignClient(client)
	signed, err := presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	return signed.URL, nil
}

// handle is the request logic factored out of HandleRequest so it can run
// against an in-memory dbengine.Database and a stub presigner in tests,
// without going through lambda.Start or a live AWS config.
func handle(ctx context.Context, db *dbengine.Database, log *zap.SugaredLogger, req events.LambdaFunctionURLRequest, presign presignFunc) (events.LambdaFunctionURLResponse, error) {
	if req.RawPath == "/upload/pre-signed" {
		key := strings.TrimPrefix(req.RawQueryString, "key=")
		signedURL, err := presign(ctx, uploadBucket, key)
		if err != nil {
			log.Errorw("presign failed", "key", key, "error", err)
			return events.LambdaFunctionURLResponse{
				StatusCode: http.StatusInternalServerError,
				Body:       err.Error(),
			}, nil
		}
		return events.LambdaFunctionURLResponse{
			StatusCode: http.StatusOK,
			Body:       signedURL,
		}, nil
	}

	handler := web.SetupRoutes(db, log, false, 0)
	rw := newRecordingResponseWriter()
	httpReq := lambdaRequestToNative(req).WithContext(ctx)
	handler.ServeHTTP(rw, httpReq)

	return rw.toLambdaFunctionResponse(), nil
}

func HandleRequest(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	invocations++
	if log == nil {
		l, err := obs.NewLogger(false)
		if err != nil {
			panic(err.Error())
		}
		log = l
	}
	if db == nil {
		t := time.Now()
		var err error
		db, err = dbengine.NewDatabase("", nil, log)
		if err != nil {
			panic(err.Error())
		}
		log.Infow("database initialised", "took", time.Since(t), "invocation", invocations)
	}

	return handle(ctx, db, log, req, presignS3Upload)
}

func main() {
	lambda.Start(HandleRequest)
}
