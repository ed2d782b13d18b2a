package remote

import (
	"context"
	"time"

	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/internal/ratelimiter"
)

// RateLimited decorates a Service: each call waits for a rate limiter token,
// is timed into Metrics, and has unclassified errors wrapped as ErrService.
//
// Calls are not retried.
type RateLimited struct {
	next    Service
	limiter *ratelimiter.RateLimiter
	metrics Metrics
}

var _ Service = (*RateLimited)(nil)

// NewRateLimited wraps next.
//
// limiter may be nil (no pacing) and metrics may be nil (no recording).
func NewRateLimited(next Service, limiter *ratelimiter.RateLimiter, metrics Metrics) *RateLimited {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &RateLimited{next: next, limiter: limiter, metrics: metrics}
}

// Unwrap returns the decorated Service.
func (s *RateLimited) Unwrap() Service {
	return s.next
}

func (s *RateLimited) call(ctx context.Context, op string, fn func() error) error {
	if s.limiter != nil {
		waitStart := time.Now()
		if err := s.limiter.Wait(ctx); err != nil {
			return &Error{Code: ErrService, Message: op + " rate limit wait", Err: err}
		}
		if waited := time.Since(waitStart); waited > time.Millisecond {
			s.metrics.ObserveThrottle(waited)
			logger.Debug("%s throttled for %s (%.1f tokens left)", op, waited, s.limiter.Tokens())
		}
	}

	start := time.Now()
	err := AsServiceError(op, fn())
	s.metrics.ObserveCall(op, time.Since(start), err)
	return err
}

func (s *RateLimited) GetItem(ctx context.Context, id int64) (*Record, error) {
	var rec *Record
	err := s.call(ctx, "GetItem", func() (err error) {
		rec, err = s.next.GetItem(ctx, id)
		return err
	})
	return rec, err
}

func (s *RateLimited) GetChildren(ctx context.Context, parentID int64, token string) ([]*Record, string, error) {
	var (
		recs []*Record
		next string
	)
	err := s.call(ctx, "GetChildren", func() (err error) {
		recs, next, err = s.next.GetChildren(ctx, parentID, token)
		return err
	})
	return recs, next, err
}

func (s *RateLimited) CreateItem(ctx context.Context, name string, parentID int64, size int64, checksum string) (int64, error) {
	var id int64
	err := s.call(ctx, "CreateItem", func() (err error) {
		id, err = s.next.CreateItem(ctx, name, parentID, size, checksum)
		return err
	})
	return id, err
}

func (s *RateLimited) DeleteItem(ctx context.Context, id int64) error {
	return s.call(ctx, "DeleteItem", func() error {
		return s.next.DeleteItem(ctx, id)
	})
}

func (s *RateLimited) RenameItem(ctx context.Context, id int64, newName string) (int64, error) {
	var newID int64
	err := s.call(ctx, "RenameItem", func() (err error) {
		newID, err = s.next.RenameItem(ctx, id, newName)
		return err
	})
	return newID, err
}

func (s *RateLimited) MoveItem(ctx context.Context, id int64, newParentID int64) (int64, error) {
	var newID int64
	err := s.call(ctx, "MoveItem", func() (err error) {
		newID, err = s.next.MoveItem(ctx, id, newParentID)
		return err
	})
	return newID, err
}

func (s *RateLimited) GetUploadAuthorization(ctx context.Context, parentID int64) (*UploadAuth, error) {
	var auth *UploadAuth
	err := s.call(ctx, "GetUploadAuthorization", func() (err error) {
		auth, err = s.next.GetUploadAuthorization(ctx, parentID)
		return err
	})
	return auth, err
}
