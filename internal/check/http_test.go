package check

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const welcome = `Welcome to <span class="highlight">Run Docker Run</span> 🚀`

func httpRule(url string) Rule {
	return Rule{Name: "web", Kind: KindHTTPEndpoint, URL: url, Expect: welcome}
}

func TestHTTPEndpointPasses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><h1>%s</h1></body></html>", welcome)
	}))
	defer srv.Close()

	v := Evaluate(context.Background(), httpRule(srv.URL), Env{HTTP: NewHTTPClient(5*time.Second, 0)})
	assert.True(t, v.Passed, v.Message)
}

func TestHTTPEndpointNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v := Evaluate(context.Background(), httpRule(srv.URL), Env{HTTP: NewHTTPClient(5*time.Second, 0)})
	assert.False(t, v.Passed)
	assert.Equal(t, "The server returned a non-200 HTTP status code: 503", v.Message)
}

func TestHTTPEndpointBodyMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Whitelabel Error Page")
	}))
	defer srv.Close()

	v := Evaluate(context.Background(), httpRule(srv.URL), Env{HTTP: NewHTTPClient(5*time.Second, 0)})
	assert.False(t, v.Passed)
	assert.Equal(t, "The server's response does not contain the expected content!", v.Message)
}

func TestHTTPEndpointConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	v := Evaluate(context.Background(), httpRule(url), Env{HTTP: NewHTTPClient(2*time.Second, 0)})
	assert.False(t, v.Passed)
	assert.Equal(t,
		"Failed to connect to the server at "+url+". Make sure the container is running and the application is accessible!",
		v.Message)
}

func TestHTTPEndpointRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, welcome)
	}))
	defer srv.Close()

	client := NewHTTPClient(5*time.Second, 2)
	client.RetryWaitMin = time.Millisecond
	client.RetryWaitMax = 5 * time.Millisecond

	v := Evaluate(context.Background(), httpRule(srv.URL), Env{HTTP: client})
	assert.True(t, v.Passed, v.Message)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPEndpointDefaultClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, welcome)
	}))
	defer srv.Close()

	assert.True(t, Evaluate(context.Background(), httpRule(srv.URL), Env{}).Passed)
}
