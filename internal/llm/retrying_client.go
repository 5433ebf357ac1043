package llm

import (
	"context"
	"strings"
	"time"

	deskerrors "deskloop/internal/errors"
	"deskloop/internal/logging"
)

// Recorder receives one AIInteraction per Ask call, win or lose
// (spec §3 AIInteraction, §4.7 "emit an AIInteraction on both success
// and terminal failure").
type Recorder interface {
	RecordInteraction(at time.Time, agentTag, prompt, response string)
}

// RetryingClient wraps a Transport with retry-with-backoff and a
// circuit breaker, classifying transport errors the same way the
// teacher's LLM retry client does (rate limits/5xx transient,
// 4xx-auth permanent), and logs every call to a Recorder.
type RetryingClient struct {
	transport Transport
	retry     deskerrors.RetryConfig
	breaker   *deskerrors.CircuitBreaker
	recorder  Recorder
	logger    logging.Logger
}

// NewRetryingClient constructs a RetryingClient that uses retry exactly
// as given (no default is filled in and MaxAttempts is not capped). The
// daemon passes deskerrors.DefaultRetryConfig(), whose MaxAttempts of 2
// gives spec §4.7's "up to 3 tries" total, i.e. 1 initial + 2 retries.
func NewRetryingClient(transport Transport, retry deskerrors.RetryConfig, breaker *deskerrors.CircuitBreaker, recorder Recorder, logger logging.Logger) *RetryingClient {
	return &RetryingClient{
		transport: transport,
		retry:     retry,
		breaker:   breaker,
		recorder:  recorder,
		logger:    logging.OrNop(logger),
	}
}

// Ask implements Client.
func (c *RetryingClient) Ask(ctx context.Context, prompt string, agentTag string) (string, error) {
	response, err := deskerrors.RetryWithResultAndLog(ctx, c.retry, func(ctx context.Context) (string, error) {
		return deskerrors.ExecuteFunc(c.breaker, ctx, func(ctx context.Context) (string, error) {
			text, err := c.transport.Complete(ctx, prompt)
			if err != nil {
				return "", classifyTransportError(err)
			}
			return text, nil
		})
	}, c.logger)

	if c.recorder != nil {
		c.recorder.RecordInteraction(time.Now(), agentTag, prompt, response)
	}

	if err != nil {
		c.logger.Warn("llm ask failed for agent %q: %v", agentTag, err)
		return "", &Error{AgentTag: agentTag, Prompt: truncateForLog(prompt, 200), Cause: err}
	}
	return response, nil
}

// classifyTransportError mirrors the teacher's classifyLLMError: rate
// limits and 5xx/network errors are transient (worth retrying); auth,
// permission, and bad-request errors are permanent (retrying wastes a
// circuit-breaker failure count on something that will never succeed).
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"):
		return deskerrors.NewTransientError(err, "rate limit reached, retrying with backoff")
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return deskerrors.NewTransientError(err, "upstream server error, retrying")
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return deskerrors.NewTransientError(err, "request timed out, retrying")
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"), strings.Contains(msg, "broken pipe"):
		return deskerrors.NewTransientError(err, "connection error, retrying")
	case strings.Contains(msg, "401"), strings.Contains(msg, "unauthorized"):
		return deskerrors.NewPermanentError(err, "authentication failed, check llm.api_key")
	case strings.Contains(msg, "403"), strings.Contains(msg, "forbidden"):
		return deskerrors.NewPermanentError(err, "permission denied for configured model")
	case strings.Contains(msg, "400"), strings.Contains(msg, "bad request"):
		return deskerrors.NewPermanentError(err, "invalid request to llm provider")
	default:
		return err
	}
}
