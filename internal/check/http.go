package check

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/c4rb0nx1/dockgrade/internal/logging"
)

// maxBodyBytes bounds how much of a response body is searched for the expected fragment.
const maxBodyBytes = 4 << 20

// NewHTTPClient returns the client used by http-endpoint rules. Non-2xx
// responses are handed back as-is so the rule can report the status code.
func NewHTTPClient(timeout time.Duration, retries int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = logging.Leveled{Logger: log.Logger}
	client.HTTPClient.Timeout = timeout
	return client
}

func httpEndpoint(ctx context.Context, rule Rule, env Env) Verdict {
	client := env.HTTP
	if client == nil {
		client = NewHTTPClient(0, 0)
	}

	connectFailure := func(err error) Verdict {
		log.Debug().Err(err).Str("url", rule.URL).Msg("HTTP probe failed")
		return Fail(rule.Name,
			"Failed to connect to the server at %s. Make sure the container is running and the application is accessible!",
			rule.URL)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rule.URL, nil)
	if err != nil {
		return connectFailure(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return connectFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fail(rule.Name, "The server returned a non-200 HTTP status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return connectFailure(fmt.Errorf("failed to read response body: %w", err))
	}

	if rule.Expect != "" && !strings.Contains(string(body), rule.Expect) {
		return Fail(rule.Name, "The server's response does not contain the expected content!")
	}
	return Pass(rule.Name)
}
