package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/procyonhq/authgate"
)

func main() {
	var (
		identifiers = flag.Int("identifiers", 50000, "number of distinct identifiers to spread attempts over")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (record + check)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *identifiers <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "identifiers, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	cfg := authgate.DefaultConfig()
	cfg.Advisory.Enabled = false

	svc, err := authgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithProvider(noopProvider{}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "service build failed: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	guard := svc.Guard()

	ids := make([]string, *identifiers)
	for i := range ids {
		ids[i] = fmt.Sprintf("user-%d@load.test", i)
	}

	recordStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) {
		guard.LogOutcome(ctx, ids[r.Intn(len(ids))], authgate.AttemptSignIn, false)
	})
	checkStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) {
		guard.CheckStatus(ctx, ids[r.Intn(len(ids))])
	})

	fmt.Println("---- results ----")
	printStats("record", recordStats)
	printStats("check", checkStats)
}

func runPhase(ops, concurrency int, seedSalt int64, op func(*rand.Rand)) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedSalt))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				op(r)
				d := time.Since(t0)
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies)
}

type phaseStats struct {
	total   time.Duration
	ops     int
	p50     time.Duration
	p95     time.Duration
	p99     time.Duration
	opsPerS float64
}

func computeStats(total time.Duration, samples []time.Duration) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:   total,
		ops:     len(samples),
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// noopProvider satisfies the provider contract without doing any work. The
// load test only exercises the guard, so no credential exchange happens.
type noopProvider struct{}

func (noopProvider) SignInWithPassword(context.Context, string, string) (*authgate.AuthResponse, error) {
	return nil, &authgate.ProviderError{Code: "invalid_credentials", Message: "Invalid login credentials"}
}

func (noopProvider) SignUp(context.Context, string, string, map[string]any) (*authgate.AuthResponse, error) {
	return nil, &authgate.ProviderError{Code: "signup_disabled", Message: "Signups are disabled"}
}

func (noopProvider) SignInWithOTP(context.Context, string, authgate.OTPOptions) error { return nil }

func (noopProvider) CurrentSession(context.Context) (*authgate.Session, error) { return nil, nil }

func (noopProvider) OnSessionChange(func(authgate.SessionChange)) func() { return func() {} }

func (noopProvider) UpdateUser(context.Context, authgate.UserUpdate) (*authgate.Session, error) {
	return nil, nil
}

func (noopProvider) ResetPasswordForEmail(context.Context, string) error { return nil }

func (noopProvider) SignOut(context.Context) error { return nil }

func (noopProvider) ListFactors(context.Context) ([]authgate.Factor, error) { return nil, nil }

func (noopProvider) ChallengeFactor(context.Context, string) (string, error) { return "", nil }

func (noopProvider) VerifyFactor(context.Context, authgate.VerifyParams) (*authgate.Session, error) {
	return nil, nil
}

func (noopProvider) DeleteUser(context.Context, string) error { return nil }
