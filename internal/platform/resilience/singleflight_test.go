package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[string]
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			got, err, _ := g.Do("https://scores.test/nba", func() (string, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "<html/>", nil
			})
			if err != nil || got != "<html/>" {
				t.Errorf("singleflight call failed: %q %v", got, err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected one underlying call, got %d", got)
	}
}

func TestSingleFlight_ForgetsFinishedCalls(t *testing.T) {
	var g SingleFlight[int]
	calls := 0
	for i := 0; i < 3; i++ {
		_, _, shared := g.Do("k", func() (int, error) {
			calls++
			return calls, nil
		})
		if shared {
			t.Fatalf("sequential calls must not be shared")
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}
