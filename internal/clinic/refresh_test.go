package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ClinicFlow2/frontend/internal/credstore"
)

func listPatients(ctx context.Context, c *Client) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodGet, "/api/patients/"))
}

func TestRefresh_SingleRequestRefreshesAndReplays(t *testing.T) {
	t.Parallel()

	var gotRefresh atomic.Value
	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotRefresh.Store(body["refresh"])
		writeJSON(w, http.StatusOK, map[string]string{"access": "A2"})
	})
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store)

	resp, err := listPatients(testContext(t), c)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.EqualValues(t, 1, b.refreshCalls.Load())
	require.Equal(t, "R1", gotRefresh.Load())
	require.EqualValues(t, 2, b.hits.Load())

	tokens, err := store.Read()
	require.NoError(t, err)
	require.Equal(t, credstore.Tokens{Access: "A2", Refresh: "R1"}, tokens)

	ids := b.requestIDs()
	require.Len(t, ids, 1, "a replay keeps the request id")
	for _, n := range ids {
		require.Equal(t, 2, n)
	}

	require.Equal(t, 1.0, testutil.ToFloat64(c.metrics.refreshes.WithLabelValues(outcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.metrics.replays))
	require.False(t, c.refreshInFlight())
}

func TestRefresh_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	t.Parallel()

	const n = 8
	var client atomic.Pointer[Client]
	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		// Hold the refresh until every other request is parked behind it.
		waitFor(func() bool { return testutil.ToFloat64(client.Load().metrics.waiters) == n-1 })
		writeJSON(w, http.StatusOK, map[string]string{"access": "A2"})
	})
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store)
	client.Store(c)

	ctx := testContext(t)
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := listPatients(ctx, c)
			if err == nil && resp.StatusCode != http.StatusOK {
				err = errors.New("unexpected status")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, b.refreshCalls.Load(), "exactly one refresh")
	require.EqualValues(t, 2*n, b.hits.Load(), "each request sent twice")
	require.EqualValues(t, n, b.rejected.Load())
	require.Equal(t, 0.0, testutil.ToFloat64(c.metrics.waiters))
	require.Equal(t, float64(n), testutil.ToFloat64(c.metrics.replays))

	tokens, _ := store.Read()
	require.Equal(t, "A2", tokens.Access)
}

func TestRefresh_NoRefreshTokenEndsSession(t *testing.T) {
	t.Parallel()

	b := newBackend(t, "A2", issue("A2"))
	store := seededStore(t, "A1", "")
	c := newTestClient(t, b.URL, store)

	var expired []error
	c.OnSessionExpired(func(err error) { expired = append(expired, err) })

	_, err := listPatients(testContext(t), c)
	require.ErrorIs(t, err, ErrNoRefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.True(t, IsUnauthorized(err), "the original 401 stays reachable")

	require.Zero(t, b.refreshCalls.Load())
	tokens, _ := store.Read()
	require.Equal(t, credstore.Tokens{}, tokens)
	require.Len(t, expired, 1)
	require.False(t, c.IsAuthenticated())
	require.False(t, c.refreshInFlight())
	require.Equal(t, 1.0, testutil.ToFloat64(c.metrics.refreshes.WithLabelValues(outcomeNoRefreshToken)))
}

func TestRefresh_FailureRejectsEveryWaiter(t *testing.T) {
	t.Parallel()

	const n = 5
	var client atomic.Pointer[Client]
	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		waitFor(func() bool { return testutil.ToFloat64(client.Load().metrics.waiters) == n-1 })
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store)
	client.Store(c)

	var expiredCalls atomic.Int32
	c.OnSessionExpired(func(error) { expiredCalls.Add(1) })

	ctx := testContext(t)
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := listPatients(ctx, c)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.ErrorIs(t, err, ErrRefreshFailed)
		require.ErrorIs(t, err, ErrSessionExpired)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	}
	require.EqualValues(t, 1, b.refreshCalls.Load())
	require.EqualValues(t, 1, expiredCalls.Load(), "listeners fire once per failed refresh")
	require.EqualValues(t, n, b.hits.Load(), "nothing is replayed after a failed refresh")

	tokens, _ := store.Read()
	require.Equal(t, credstore.Tokens{}, tokens)
	require.False(t, c.refreshInFlight())
	require.Equal(t, 1.0, testutil.ToFloat64(c.metrics.refreshes.WithLabelValues(outcomeFailure)))
	require.Equal(t, 0.0, testutil.ToFloat64(c.metrics.waiters))
}

func TestRefresh_ReplayThatFailsAgainIsNotRetried(t *testing.T) {
	t.Parallel()

	// The backend never accepts any token, so the replay is rejected too.
	b := newBackend(t, "never", issue("A2"))
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store)

	_, err := listPatients(testContext(t), c)
	require.True(t, IsUnauthorized(err))
	require.False(t, errors.Is(err, ErrSessionExpired))
	require.EqualValues(t, 1, b.refreshCalls.Load())
	require.EqualValues(t, 2, b.hits.Load())

	tokens, _ := store.Read()
	require.Equal(t, credstore.Tokens{Access: "A2", Refresh: "R1"}, tokens)
}

func TestRefresh_UnauthorizedRefreshEndpointDoesNotLoop(t *testing.T) {
	t.Parallel()

	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is blacklisted"})
	})
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store)

	_, err := listPatients(testContext(t), c)
	require.ErrorIs(t, err, ErrRefreshFailed)
	require.True(t, IsUnauthorized(err))
	require.EqualValues(t, 1, b.refreshCalls.Load())
	require.EqualValues(t, 1, b.hits.Load())

	tokens, _ := store.Read()
	require.Equal(t, credstore.Tokens{}, tokens)
}

func TestRefresh_ResponseWithoutAccessIsFailure(t *testing.T) {
	t.Parallel()

	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store)

	_, err := listPatients(testContext(t), c)
	require.ErrorIs(t, err, ErrRefreshFailed)
	require.ErrorIs(t, err, ErrMissingAccessToken)
	require.False(t, c.IsAuthenticated())
}

func TestRefresh_RotatedRefreshTokenIsStored(t *testing.T) {
	t.Parallel()

	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": "A2", "refresh": "R2"})
	})
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store)

	_, err := listPatients(testContext(t), c)
	require.NoError(t, err)
	tokens, _ := store.Read()
	require.Equal(t, credstore.Tokens{Access: "A2", Refresh: "R2"}, tokens)
}

func TestRefresh_StaleTokenReplaysWithoutRefreshing(t *testing.T) {
	t.Parallel()

	b := newBackend(t, "A2", issue("A3"))
	store := seededStore(t, "A2", "R1")
	c := newTestClient(t, b.URL, store)

	// The request went out with A1 before another caller refreshed to A2.
	call := &call{req: NewRequest(http.MethodGet, "/api/patients/"), id: "req-1"}
	resp, err := c.handleUnauthorized(testContext(t), call, "A1", &APIError{StatusCode: http.StatusUnauthorized})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, call.retried)
	require.Zero(t, b.refreshCalls.Load())
}

func TestRefresh_CancelledWaiterLeavesQueue(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"access": "A2"})
	})
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store)

	ctx := testContext(t)
	driverErr := make(chan error, 1)
	go func() {
		_, err := listPatients(ctx, c)
		driverErr <- err
	}()
	require.True(t, waitFor(c.refreshInFlight))

	waiterCtx, cancel := context.WithCancel(ctx)
	waiterErr := make(chan error, 1)
	go func() {
		_, err := listPatients(waiterCtx, c)
		waiterErr <- err
	}()
	require.True(t, waitFor(func() bool { return testutil.ToFloat64(c.metrics.waiters) == 1 }))

	cancel()
	select {
	case err := <-waiterErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	close(release)
	require.NoError(t, <-driverErr)
	require.False(t, c.refreshInFlight())
	require.Equal(t, 0.0, testutil.ToFloat64(c.metrics.waiters))
}

func TestRefresh_CancelledDriverDoesNotFailWaiters(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"access": "A2"})
	})
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store)

	driverCtx, cancelDriver := context.WithCancel(context.Background())
	driverErr := make(chan error, 1)
	go func() {
		_, err := listPatients(driverCtx, c)
		driverErr <- err
	}()
	require.True(t, waitFor(c.refreshInFlight))

	ctx := testContext(t)
	waiterErr := make(chan error, 1)
	go func() {
		_, err := listPatients(ctx, c)
		waiterErr <- err
	}()
	require.True(t, waitFor(func() bool { return testutil.ToFloat64(c.metrics.waiters) == 1 }))

	cancelDriver()
	close(release)

	require.NoError(t, <-waiterErr)
	require.ErrorIs(t, <-driverErr, context.Canceled)

	tokens, _ := store.Read()
	require.Equal(t, "A2", tokens.Access, "the refresh completes despite the cancelled caller")
}

func TestRefresh_TimeoutIsTerminal(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// Registered after the backend so it runs first and Close never waits
	// on a parked handler.
	t.Cleanup(func() { close(release) })
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store, WithRefreshTimeout(50*time.Millisecond))

	_, err := listPatients(testContext(t), c)
	require.ErrorIs(t, err, ErrRefreshFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, c.IsAuthenticated())
	require.False(t, c.refreshInFlight())
}

func TestRefresh_SlowerThanRequestTimeoutStillSucceeds(t *testing.T) {
	t.Parallel()

	b := newBackend(t, "A2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		time.Sleep(300 * time.Millisecond)
		issue("A2")(w, r)
	})
	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, b.URL, store,
		WithRequestTimeout(100*time.Millisecond),
		WithRefreshTimeout(5*time.Second),
	)

	resp, err := listPatients(testContext(t), c)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, c.IsAuthenticated())

	tokens, _ := store.Read()
	require.Equal(t, "A2", tokens.Access)
	require.EqualValues(t, 1, b.refreshCalls.Load())
}

func TestDo_RequestTimeoutBoundsEachSend(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	store := seededStore(t, "A1", "R1")
	c := newTestClient(t, srv.URL, store, WithRequestTimeout(50*time.Millisecond))

	_, err := listPatients(testContext(t), c)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, c.IsAuthenticated(), "a slow request is not a session failure")
}

func TestOnSessionExpired_CancelRemovesListener(t *testing.T) {
	t.Parallel()

	b := newBackend(t, "A2", issue("A2"))
	c := newTestClient(t, b.URL, seededStore(t, "A1", ""))

	var first, second atomic.Int32
	cancelFirst := c.OnSessionExpired(func(error) { first.Add(1) })
	c.OnSessionExpired(func(error) { second.Add(1) })
	cancelFirst()

	_, err := listPatients(testContext(t), c)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Zero(t, first.Load())
	require.EqualValues(t, 1, second.Load())
}
