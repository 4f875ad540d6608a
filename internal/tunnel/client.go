package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// agentClient polls the local ngrok agent API for the public tunnel URL.
type agentClient struct {
	baseURL string
	http    *fasthttp.Client
}

func newAgentClient(apiAddr string) *agentClient {
	return &agentClient{
		baseURL: "http://" + apiAddr,
		http: &fasthttp.Client{
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			MaxConnsPerHost: 4,
		},
	}
}

type tunnelsResponse struct {
	Tunnels []struct {
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
	} `json:"tunnels"`
}

// publicURL asks the agent API once for an https tunnel URL.
func (c *agentClient) publicURL(ctx context.Context) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + "/api/tunnels")

	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("agent api request: %w", err)
	}
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return "", fmt.Errorf("agent api status %d", status)
	}

	var tr tunnelsResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		return "", fmt.Errorf("decode tunnels: %w", err)
	}
	for _, t := range tr.Tunnels {
		if t.Proto == "https" && t.PublicURL != "" {
			return t.PublicURL, nil
		}
	}
	for _, t := range tr.Tunnels {
		if t.PublicURL != "" {
			return t.PublicURL, nil
		}
	}
	return "", fmt.Errorf("no tunnels yet")
}

// waitPublicURL polls until the agent reports a URL or the context ends.
func (c *agentClient) waitPublicURL(ctx context.Context) (string, error) {
	backoff := 250 * time.Millisecond
	for {
		url, err := c.publicURL(ctx)
		if err == nil {
			return url, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for tunnel: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}
