package clinic

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// refreshState is the single-flight guard. While refreshing is set, every
// request that receives a 401 parks in queue and is settled, in arrival
// order, when the refresh ends.
type refreshState struct {
	mu         sync.Mutex
	refreshing bool
	queue      []*pendingRequest
}

type pendingRequest struct {
	done chan refreshResult
}

type refreshResult struct {
	token string
	err   error
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// refreshInFlight reports whether a token refresh is in flight.
func (c *Client) refreshInFlight() bool {
	c.refresh.mu.Lock()
	defer c.refresh.mu.Unlock()
	return c.refresh.refreshing
}

func (c *Client) handleUnauthorized(ctx context.Context, call *call, sent string, cause error) (*Response, error) {
	c.refresh.mu.Lock()
	if c.refresh.refreshing {
		p := &pendingRequest{done: make(chan refreshResult, 1)}
		c.refresh.queue = append(c.refresh.queue, p)
		c.metrics.waiters.Inc()
		c.refresh.mu.Unlock()
		return c.await(ctx, call, p)
	}
	// A token different from the one this request carried means a refresh
	// finished after it was sent. Use that token instead of refreshing again.
	if current := c.currentAccess(); current != "" && current != sent {
		c.refresh.mu.Unlock()
		return c.replay(ctx, call, current)
	}
	c.refresh.refreshing = true
	c.refresh.mu.Unlock()

	return c.drive(ctx, call, cause)
}

func (c *Client) await(ctx context.Context, call *call, p *pendingRequest) (*Response, error) {
	select {
	case res := <-p.done:
		if res.err != nil {
			return nil, res.err
		}
		return c.replay(ctx, call, res.token)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// drive runs the refresh for the request that found the coordinator idle.
func (c *Client) drive(ctx context.Context, call *call, cause error) (*Response, error) {
	tokens, err := c.store.Read()
	if err != nil {
		c.log.Warn().Err(err).Msg("read credentials before refresh")
	}
	if tokens.Refresh == "" {
		failure := fmt.Errorf("%w: %w", ErrNoRefreshToken, cause)
		c.log.Info().Str("request_id", call.id).Msg("no refresh token; session expired")
		c.fail(failure, outcomeNoRefreshToken)
		return nil, failure
	}

	access, err := c.exchange(ctx, call, tokens.Refresh)
	if err != nil {
		failure := fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		c.log.Warn().Err(err).Str("request_id", call.id).Msg("token refresh failed; session expired")
		c.fail(failure, outcomeFailure)
		return nil, failure
	}

	c.log.Info().Str("request_id", call.id).Msg("access token refreshed")
	c.succeed(access)
	return c.replay(ctx, call, access)
}

// exchange trades the refresh token for a new access token and persists it.
// It is detached from the caller's cancellation so that waiters queued behind
// this caller are not failed by it, and bounded by the refresh timeout.
func (c *Client) exchange(ctx context.Context, origin *call, refresh string) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	req, err := JSONRequest(http.MethodPost, c.auth.refresh, refreshRequest{Refresh: refresh})
	if err != nil {
		return "", err
	}
	resp, _, err := c.send(ctx, &call{req: req, id: uuid.NewString()}, "")
	if err != nil {
		return "", err
	}
	var payload refreshResponse
	if err := resp.Decode(&payload); err != nil {
		return "", err
	}
	if payload.Access == "" {
		return "", ErrMissingAccessToken
	}

	// Backends that rotate refresh tokens return the replacement alongside
	// the access token; the old one is no longer valid.
	if payload.Refresh != "" {
		err = c.store.Save(payload.Access, payload.Refresh)
	} else {
		err = c.store.SaveAccess(payload.Access)
	}
	if err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}
	c.log.Debug().Str("request_id", origin.id).Bool("rotated", payload.Refresh != "").Msg("refresh exchange complete")
	return payload.Access, nil
}

// succeed returns the coordinator to idle and hands the new token to every
// waiter in arrival order.
func (c *Client) succeed(token string) {
	queue := c.settle()
	c.metrics.observeRefresh(outcomeSuccess)
	for _, p := range queue {
		p.done <- refreshResult{token: token}
	}
}

// fail is the terminal path: the stored session is discarded, waiters are
// rejected in arrival order and listeners learn that the session is over.
func (c *Client) fail(err error, outcome string) {
	if clearErr := c.store.Clear(); clearErr != nil {
		c.log.Error().Err(clearErr).Msg("clear credentials after failed refresh")
	}
	queue := c.settle()
	c.metrics.observeRefresh(outcome)
	for _, p := range queue {
		p.done <- refreshResult{err: err}
	}
	c.emitSessionExpired(err)
}

func (c *Client) settle() []*pendingRequest {
	c.refresh.mu.Lock()
	defer c.refresh.mu.Unlock()
	queue := c.refresh.queue
	c.refresh.queue = nil
	c.refresh.refreshing = false
	c.metrics.waiters.Sub(float64(len(queue)))
	return queue
}

// replay sends the request a second and final time with token.
func (c *Client) replay(ctx context.Context, call *call, token string) (*Response, error) {
	call.retried = true
	c.metrics.replays.Inc()
	resp, _, err := c.send(ctx, call, token)
	return resp, err
}

type listener struct {
	id int
	fn func(error)
}

// OnSessionExpired registers fn to run after a refresh fails for good. The
// stored tokens are already cleared when fn runs. fn is called once per
// failed refresh, never while the client holds internal locks. The returned
// function unregisters fn.
func (c *Client) OnSessionExpired(fn func(error)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	c.listenersMu.Lock()
	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) emitSessionExpired(err error) {
	c.listenersMu.Lock()
	fns := make([]func(error), 0, len(c.listeners))
	for _, l := range c.listeners {
		fns = append(fns, l.fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}
