// Package function implements the transport that invokes the Stache API
// function directly with AWS credentials instead of going through the
// HTTP gateway.
package function

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/custodia-labs/stache-cli/internal/adapters/driven/transport"
	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// coldStartThreshold is the invocation time above which a cold start is logged.
const coldStartThreshold = 5 * time.Second

// Verify interface compliance.
var _ driven.Transport = (*Transport)(nil)

// Invoker invokes a function synchronously. *lambda.Client satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Options configures the function transport.
type Options struct {
	// FunctionName is the function name or ARN.
	FunctionName string

	// Timeout bounds a single invocation. Zero means domain.DefaultFunctionTimeout.
	Timeout time.Duration

	// Limiter throttles invocations. May be nil.
	Limiter *transport.RateLimiter

	UserAgent string
}

// Transport sends requests by invoking the API function.
type Transport struct {
	invoker   Invoker
	function  string
	timeout   time.Duration
	limiter   *transport.RateLimiter
	userAgent string
	newID     func() string
}

// LoadAWSConfig loads AWS configuration with the optional shared profile
// and region. SDK retries are disabled; the client facade owns the retry
// policy.
func LoadAWSConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMaxAttempts(1),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, &domain.AuthError{Message: "load AWS configuration", Err: err}
	}
	return cfg, nil
}

// NewInvoker returns a new Lambda client for cfg. Every call builds a
// separate client with its own HTTP connection pool.
func NewInvoker(cfg aws.Config) Invoker {
	return lambda.NewFromConfig(cfg)
}

// New creates a function transport around an invoker.
func New(invoker Invoker, opts Options) (*Transport, error) {
	if opts.FunctionName == "" {
		return nil, &domain.ValidationError{Field: "function_name", Message: "required for the function transport"}
	}
	if invoker == nil {
		return nil, errors.New("function transport: nil invoker")
	}

	t := &Transport{
		invoker:   invoker,
		function:  opts.FunctionName,
		timeout:   opts.Timeout,
		limiter:   opts.Limiter,
		userAgent: opts.UserAgent,
		newID:     uuid.NewString,
	}
	if t.timeout <= 0 {
		t.timeout = domain.DefaultFunctionTimeout
	}
	if t.userAgent == "" {
		t.userAgent = "stache-cli"
	}
	return t, nil
}

// Kind returns domain.TransportFunction.
func (t *Transport) Kind() domain.TransportKind {
	return domain.TransportFunction
}

// Close is a no-op; the AWS client holds no resources that need releasing.
func (t *Transport) Close() error {
	return nil
}

// Send performs one invocation. Retries are the caller's concern.
func (t *Transport) Send(ctx context.Context, req domain.Request) (*domain.Outcome, error) {
	requestID := t.newID()

	payload, err := buildEvent(req, requestID, t.userAgent)
	if err != nil {
		return nil, err
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for rate limiter")
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	out, err := t.invoker.Invoke(callCtx, &lambda.InvokeInput{
		FunctionName:   aws.String(t.function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "%s", req.RouteKey())
		}
		return nil, t.classify(callCtx, err, requestID)
	}

	if elapsed > coldStartThreshold {
		logger.Info("function invocation took %s (possible cold start)", elapsed.Round(time.Millisecond))
	}
	if id, ok := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata); ok && id != "" {
		requestID = id
	}

	if out.FunctionError != nil {
		var fe functionError
		_ = json.Unmarshal(out.Payload, &fe)
		if fe.ErrorMessage == "" {
			fe.ErrorMessage = aws.ToString(out.FunctionError)
		}
		if fe.ErrorType == "" {
			fe.ErrorType = "Error"
		}
		return nil, &domain.APIError{
			StatusCode: 500,
			Message:    fmt.Sprintf("function execution error (%s): %s", fe.ErrorType, fe.ErrorMessage),
			RequestID:  requestID,
		}
	}

	status, body, headers, err := parseResponse(out.Payload)
	if err != nil {
		return nil, &domain.APIError{StatusCode: 502, Message: "invalid function response", RequestID: requestID, Err: err}
	}
	if id := headerValue(headers, transport.RequestIDHeader); id != "" {
		requestID = id
	}

	logger.Debug("%s -> %d in %s via %s (request_id: %s)", req.RouteKey(), status, elapsed.Round(time.Millisecond), t.function, requestID)
	return transport.NewOutcome(status, body, requestID)
}

// classify maps invocation failures onto the error taxonomy.
func (t *Transport) classify(ctx context.Context, err error, requestID string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.ConnectionError{
			Message:   "function invocation timed out after " + t.timeout.String(),
			RequestID: requestID,
			Err:       err,
		}
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return &domain.ConnectionError{Message: "function invocation failed", RequestID: requestID, Err: err}
	}

	switch apiErr.ErrorCode() {
	case "ResourceNotFoundException":
		return &domain.ConnectionError{Message: "function not found: " + t.function, RequestID: requestID, Err: err}
	case "AccessDeniedException", "AccessDenied", "UnrecognizedClientException",
		"ExpiredTokenException", "InvalidSignatureException":
		return &domain.AuthError{
			Message:   "access denied to function " + t.function + "; the IAM policy must allow lambda:InvokeFunction",
			RequestID: requestID,
			Err:       err,
		}
	case "TooManyRequestsException", "ServiceException", "ServiceUnavailableException",
		"ServiceUnavailable", "EC2ThrottledException":
		return &domain.APIError{StatusCode: 503, Message: apiErr.ErrorMessage(), RequestID: requestID, Err: err}
	default:
		return &domain.ConnectionError{Message: "function invocation failed: " + apiErr.ErrorMessage(), RequestID: requestID, Err: err}
	}
}
