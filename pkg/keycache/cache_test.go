package keycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gapo-hq/keygate/pkg/iam"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubFetcher struct {
	mu      sync.Mutex
	records []iam.APIKeyRecord
	err     error
	calls   atomic.Int32
	block   chan struct{}
}

func (f *stubFetcher) FetchKeys(ctx context.Context) ([]iam.APIKeyRecord, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]iam.APIKeyRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *stubFetcher) set(records ...iam.APIKeyRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.err = nil
}

type countingObserver struct {
	mu       sync.Mutex
	lookups  map[string]int
	refreshs map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{lookups: map[string]int{}, refreshs: map[string]int{}}
}

func (o *countingObserver) ObserveLookup(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lookups[result]++
}

func (o *countingObserver) ObserveRefresh(outcome string, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshs[outcome]++
}

func rec(key, source string) iam.APIKeyRecord {
	return iam.APIKeyRecord{APIKey: key, Source: source}
}

func TestCache_EmptyLookup(t *testing.T) {
	c := New(&stubFetcher{}, Options{})

	_, ok := c.Lookup("K1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(0), c.Version())
	assert.True(t, c.LastRefresh().IsZero())
}

func TestCache_RefreshAndLookup(t *testing.T) {
	f := &stubFetcher{}
	f.set(rec("K1", "svcA"))
	obs := newCountingObserver()
	c := New(f, Options{Observer: obs})

	source, ok := c.RefreshAndLookup(context.Background(), "K1")
	require.True(t, ok)
	assert.Equal(t, "svcA", source)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, 1, obs.refreshs[RefreshSuccess])
	assert.False(t, c.LastRefresh().IsZero())
}

func TestCache_MissThenRefreshCountsOneLookup(t *testing.T) {
	f := &stubFetcher{}
	f.set(rec("K1", "svcA"))
	obs := newCountingObserver()
	c := New(f, Options{Observer: obs})

	_, ok := c.Lookup("K1")
	require.False(t, ok)
	_, ok = c.RefreshAndLookup(context.Background(), "K1")
	require.True(t, ok)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, map[string]int{LookupMiss: 1}, obs.lookups)
	assert.Equal(t, 1, obs.refreshs[RefreshSuccess])
}

func TestCache_RefreshFailureKeepsExisting(t *testing.T) {
	f := &stubFetcher{}
	f.set(rec("K1", "svcA"))
	obs := newCountingObserver()
	c := New(f, Options{Observer: obs})
	require.NoError(t, c.Refresh(context.Background()))

	f.mu.Lock()
	f.err = &iam.FetchError{Kind: iam.KindStatus, StatusCode: 503}
	f.mu.Unlock()

	_, ok := c.RefreshAndLookup(context.Background(), "K2")
	assert.False(t, ok)

	source, ok := c.Lookup("K1")
	assert.True(t, ok, "failed refresh must not clear the cache")
	assert.Equal(t, "svcA", source)
	assert.Equal(t, 1, obs.refreshs[RefreshFailure])
}

func TestCache_NeverShrinks(t *testing.T) {
	f := &stubFetcher{}
	f.set(rec("K1", "svcA"), rec("K2", "svcB"))
	c := New(f, Options{})
	require.NoError(t, c.Refresh(context.Background()))

	f.set(rec("K3", "svcC"))
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, map[string]string{"K1": "svcA", "K2": "svcB", "K3": "svcC"}, c.Snapshot())
}

func TestCache_OverwriteSource(t *testing.T) {
	c := New(&stubFetcher{}, Options{})
	c.Merge([]iam.APIKeyRecord{rec("K1", "svcA")})
	c.Merge([]iam.APIKeyRecord{rec("K1", "svcB")})

	source, ok := c.Lookup("K1")
	assert.True(t, ok)
	assert.Equal(t, "svcB", source)
}

func TestCache_DuplicateKeysLastWins(t *testing.T) {
	c := New(&stubFetcher{}, Options{})
	c.Merge([]iam.APIKeyRecord{rec("K1", "svcA"), rec("K1", "svcB")})

	source, _ := c.Lookup("K1")
	assert.Equal(t, "svcB", source)
}

func TestCache_MergeIdempotent(t *testing.T) {
	records := []iam.APIKeyRecord{rec("K1", "svcA"), rec("K2", "svcB")}

	once := New(&stubFetcher{}, Options{})
	once.Merge(records)

	twice := New(&stubFetcher{}, Options{})
	twice.Merge(records)
	twice.Merge(records)

	assert.Equal(t, once.Snapshot(), twice.Snapshot())
}

func TestCache_MergeSkipsEmptyKey(t *testing.T) {
	c := New(&stubFetcher{}, Options{})
	c.Merge([]iam.APIKeyRecord{rec("", "svcA"), rec("K1", "svcB")})

	_, ok := c.Lookup("")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestCache_SnapshotIsCopy(t *testing.T) {
	c := New(&stubFetcher{}, Options{})
	c.Merge([]iam.APIKeyRecord{rec("K1", "svcA")})

	snap := c.Snapshot()
	snap["K2"] = "svcX"

	_, ok := c.Lookup("K2")
	assert.False(t, ok)
}

func TestCache_Version(t *testing.T) {
	c := New(&stubFetcher{}, Options{})
	c.Merge(nil)
	c.Merge([]iam.APIKeyRecord{rec("K1", "svcA")})
	assert.Equal(t, uint64(2), c.Version())
}

func TestCache_Warm(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := &stubFetcher{}
		f.set(rec("K1", "svcA"))
		c := New(f, Options{Coalesce: true})

		require.NoError(t, c.Warm(context.Background()))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("failure leaves empty cache", func(t *testing.T) {
		f := &stubFetcher{err: errors.New("unreachable")}
		c := New(f, Options{Coalesce: true})

		assert.Error(t, c.Warm(context.Background()))
		assert.Equal(t, 0, c.Len())
		_, ok := c.Lookup("K1")
		assert.False(t, ok)
	})
}

func TestCache_CoalescedRefresh(t *testing.T) {
	f := &stubFetcher{block: make(chan struct{})}
	f.set(rec("K1", "svcA"))
	c := New(f, Options{Coalesce: true})

	const n = 16
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := c.RefreshAndLookup(context.Background(), "K1")
			results <- ok
		}()
	}

	// Let every goroutine join the in-flight fetch before releasing it.
	require.Eventually(t, func() bool { return f.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.block)
	wg.Wait()
	close(results)

	for ok := range results {
		assert.True(t, ok)
	}
	assert.Less(t, f.calls.Load(), int32(n), "concurrent misses should share fetches")
}

func TestCache_UncoalescedRefresh(t *testing.T) {
	f := &stubFetcher{}
	f.set(rec("K1", "svcA"))
	c := New(f, Options{Coalesce: false})

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := c.RefreshAndLookup(context.Background(), "K1")
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(n), f.calls.Load())
	assert.Equal(t, map[string]string{"K1": "svcA"}, c.Snapshot())
}

func TestCache_CoalescedWaiterCancelled(t *testing.T) {
	f := &stubFetcher{block: make(chan struct{})}
	f.set(rec("K1", "svcA"))
	c := New(f, Options{Coalesce: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Refresh(ctx) }()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The shared fetch still completes and merges.
	close(f.block)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond)
}

func TestCache_ReadersSeeWholeMerges(t *testing.T) {
	c := New(&stubFetcher{}, Options{})

	batch := make([]iam.APIKeyRecord, 0, 100)
	for i := 0; i < 100; i++ {
		batch = append(batch, rec(string(rune('a'+i%26))+string(rune('A'+i/26)), "svc"))
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				n := c.Len()
				assert.True(t, n == 0 || n == len(batch), "partial merge observed: %d", n)
			}
		}()
	}

	c.Merge(batch)
	close(stop)
	wg.Wait()
	assert.Equal(t, len(batch), c.Len())
}

func BenchmarkCache_Lookup(b *testing.B) {
	c := New(&stubFetcher{}, Options{})
	c.Merge([]iam.APIKeyRecord{rec("K1", "svcA")})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.Lookup("K1")
		}
	})
}
