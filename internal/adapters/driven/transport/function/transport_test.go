package function

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// fakeInvoker records the last input and replays a canned response.
type fakeInvoker struct {
	input  *lambda.InvokeInput
	output *lambda.InvokeOutput
	err    error
	block  bool
}

func (f *fakeInvoker) Invoke(ctx context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.input = in
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.output, f.err
}

func proxyResponse(t *testing.T, status int, body string) *lambda.InvokeOutput {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"statusCode":      status,
		"headers":         map[string]string{"content-type": "application/json"},
		"body":            body,
		"isBase64Encoded": false,
	})
	require.NoError(t, err)
	return &lambda.InvokeOutput{StatusCode: 200, Payload: b}
}

func newTestTransport(t *testing.T, inv Invoker) *Transport {
	t.Helper()
	tr, err := New(inv, Options{FunctionName: "stache-api", Timeout: time.Second, UserAgent: "stache-cli/test"})
	require.NoError(t, err)
	tr.newID = func() string { return "req-1" }
	return tr
}

func TestNew_RequiresFunctionName(t *testing.T) {
	_, err := New(&fakeInvoker{}, Options{})
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "function_name", valErr.Field)
}

func TestSend_BuildsEnvelope(t *testing.T) {
	inv := &fakeInvoker{output: proxyResponse(t, 200, `{"namespaces":[]}`)}
	tr := newTestTransport(t, inv)

	out, err := tr.Send(context.Background(), domain.Request{
		Method: "post",
		Path:   "/api/query",
		Query:  url.Values{"include_children": {"true"}},
		Body:   map[string]any{"query": "q"},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, out.StatusCode)
	assert.Equal(t, domain.TransportFunction, tr.Kind())

	require.NotNil(t, inv.input)
	assert.Equal(t, "stache-api", aws.ToString(inv.input.FunctionName))
	assert.Equal(t, types.InvocationTypeRequestResponse, inv.input.InvocationType)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(inv.input.Payload, &ev))
	assert.Equal(t, "2.0", ev["version"])
	assert.Equal(t, "POST /api/query", ev["routeKey"])
	assert.Equal(t, "/api/query", ev["rawPath"])
	assert.Equal(t, "include_children=true", ev["rawQueryString"])
	assert.Equal(t, false, ev["isBase64Encoded"])
	assert.JSONEq(t, `{"query":"q"}`, ev["body"].(string))

	rc := ev["requestContext"].(map[string]any)
	httpCtx := rc["http"].(map[string]any)
	assert.Equal(t, "POST", httpCtx["method"])
	assert.Equal(t, "/api/query", httpCtx["path"])
	assert.Equal(t, "req-1", rc["requestId"])
	assert.Equal(t, "$default", rc["stage"])

	headers := ev["headers"].(map[string]any)
	assert.Equal(t, "req-1", headers["x-request-id"])
}

func TestSend_NotFoundKeepsRequestID(t *testing.T) {
	inv := &fakeInvoker{output: proxyResponse(t, 404, `{"error":"Document not found","request_id":"abc"}`)}
	tr := newTestTransport(t, inv)

	_, err := tr.Send(context.Background(), domain.Request{Method: "GET", Path: "/api/documents/id/x"})
	var nfErr *domain.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "abc", nfErr.RequestID)
	assert.Equal(t, "Document not found", nfErr.Message)
}

func TestSend_Base64Body(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"statusCode":      200,
		"body":            base64.StdEncoding.EncodeToString([]byte(`{"status":"ok"}`)),
		"isBase64Encoded": true,
	})
	require.NoError(t, err)

	tr := newTestTransport(t, &fakeInvoker{output: &lambda.InvokeOutput{StatusCode: 200, Payload: b}})
	out, err := tr.Send(context.Background(), domain.Request{Method: "GET", Path: "/health"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Payload["status"])
}

func TestSend_FunctionError(t *testing.T) {
	inv := &fakeInvoker{output: &lambda.InvokeOutput{
		StatusCode:    200,
		FunctionError: aws.String("Unhandled"),
		Payload:       []byte(`{"errorMessage":"division by zero","errorType":"ZeroDivisionError"}`),
	}}
	tr := newTestTransport(t, inv)

	_, err := tr.Send(context.Background(), domain.Request{Method: "GET", Path: "/health"})
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "ZeroDivisionError")
	assert.Contains(t, apiErr.Message, "division by zero")
}

func TestSend_InvokeErrorClassification(t *testing.T) {
	tests := []struct {
		code      string
		check     func(t *testing.T, err error)
		retryable bool
	}{
		{
			code: "ResourceNotFoundException",
			check: func(t *testing.T, err error) {
				var connErr *domain.ConnectionError
				require.ErrorAs(t, err, &connErr)
				assert.Contains(t, connErr.Message, "stache-api")
			},
			retryable: true,
		},
		{
			code: "AccessDeniedException",
			check: func(t *testing.T, err error) {
				var authErr *domain.AuthError
				require.ErrorAs(t, err, &authErr)
			},
		},
		{
			code: "TooManyRequestsException",
			check: func(t *testing.T, err error) {
				var apiErr *domain.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, 503, apiErr.StatusCode)
			},
			retryable: true,
		},
		{
			code: "ServiceException",
			check: func(t *testing.T, err error) {
				var apiErr *domain.APIError
				require.ErrorAs(t, err, &apiErr)
			},
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			inv := &fakeInvoker{err: &smithy.GenericAPIError{Code: tt.code, Message: "boom"}}
			tr := newTestTransport(t, inv)

			_, err := tr.Send(context.Background(), domain.Request{Method: "GET", Path: "/health"})
			tt.check(t, err)
			assert.Equal(t, tt.retryable, domain.IsRetryable(err))
		})
	}
}

func TestSend_NetworkFailure(t *testing.T) {
	tr := newTestTransport(t, &fakeInvoker{err: errors.New("dial tcp: no route to host")})
	_, err := tr.Send(context.Background(), domain.Request{Method: "GET", Path: "/health"})
	var connErr *domain.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestSend_Timeout(t *testing.T) {
	tr, err := New(&fakeInvoker{block: true}, Options{FunctionName: "stache-api", Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), domain.Request{Method: "GET", Path: "/health"})
	var connErr *domain.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, connErr.Message, "timed out")
}

func TestSend_InvalidResponse(t *testing.T) {
	tr := newTestTransport(t, &fakeInvoker{output: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte("not json")}})
	_, err := tr.Send(context.Background(), domain.Request{Method: "GET", Path: "/health"})
	var apiErr *domain.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestParseResponse_RawBody(t *testing.T) {
	status, body, _, err := parseResponse([]byte(`{"status":"ok"}`))
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
