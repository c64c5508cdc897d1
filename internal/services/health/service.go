package health

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCheckTimeout = 2 * time.Second

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Database checks a database/sql pool.
func Database(db *sql.DB) Checker {
	return CheckerFunc(db.PingContext)
}

// Redis checks a go-redis client.
func Redis(client redis.UniversalClient) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: make(map[string]Checker), timeout: defaultCheckTimeout}
}

// Register adds a named readiness check. Nil checkers are ignored.
func (s *Service) Register(name string, c Checker) *Service {
	if c != nil {
		s.checks[name] = c
	}
	return s
}

// Status returns a simple health payload.
func (s *Service) Status() map[string]bool {
	return map[string]bool{"ok": true}
}

// ReadyReport is the outcome of running every readiness check.
type ReadyReport struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// Ready runs all registered checks, each bounded by the service timeout.
func (s *Service) Ready(ctx context.Context) ReadyReport {
	report := ReadyReport{OK: true, Checks: make(map[string]string, len(s.checks))}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name].Ping(checkCtx)
		cancel()
		if err != nil {
			report.OK = false
			report.Checks[name] = "unhealthy: " + err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}
