package gate

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Membership statuses reported by the platform that satisfy a requirement.
const (
	StatusMember        = "member"
	StatusAdministrator = "administrator"
	StatusCreator       = "creator"
)

// Requirement is one channel or group a user must be a member of.
// Assembled from config at startup, immutable afterwards.
type Requirement struct {
	ChatID   int64  // numeric chat id; 0 when Username is set
	Username string // @handle form; empty when ChatID is set
	Label    string // display name for the join prompt
	JoinURL  string // where the join button points; may be empty
}

// Ref returns the identifier used to query the platform and in logs.
func (r Requirement) Ref() string {
	if r.Username != "" {
		return r.Username
	}
	return strconv.FormatInt(r.ChatID, 10)
}

// StatusSource answers membership queries against the platform.
type StatusSource interface {
	MemberStatus(req Requirement, userID int64) (string, error)
}

// Result of one gate evaluation. Unmet keeps the configured
// requirement order. Never persisted.
type Result struct {
	Allowed bool
	Unmet   []Requirement
}

// Gate decides, per user and per call, whether every configured
// requirement is currently satisfied. It holds no state and caches
// nothing: each Check re-queries every requirement.
type Gate struct {
	src     StatusSource
	reqs    []Requirement
	timeout time.Duration
	log     *zap.Logger
}

func New(src StatusSource, reqs []Requirement, timeout time.Duration, log *zap.Logger) *Gate {
	return &Gate{src: src, reqs: reqs, timeout: timeout, log: log}
}

// Check queries every requirement concurrently and collects all unmet
// ones, so the caller can render the full list of missing joins in a
// single reply instead of just the first.
func (g *Gate) Check(ctx context.Context, userID int64) Result {
	if len(g.reqs) == 0 {
		return Result{Allowed: true}
	}

	missing := make([]bool, len(g.reqs))
	var wg sync.WaitGroup
	for i := range g.reqs {
		wg.Add(1)
		go func(i int, req Requirement) {
			defer wg.Done()
			missing[i] = !g.satisfied(ctx, req, userID)
		}(i, g.reqs[i])
	}
	wg.Wait()

	res := Result{Allowed: true}
	for i, miss := range missing {
		if miss {
			res.Allowed = false
			res.Unmet = append(res.Unmet, g.reqs[i])
		}
	}
	return res
}

// satisfied runs one membership query, bounded by the gate timeout.
// A failed or timed-out query counts as unmet: a flaky status check
// must never hand out gated content.
func (g *Gate) satisfied(ctx context.Context, req Requirement, userID int64) bool {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type answer struct {
		status string
		err    error
	}
	// The Bot API client has no context support; a stuck query is
	// abandoned once the deadline passes.
	ch := make(chan answer, 1)
	go func() {
		status, err := g.src.MemberStatus(req, userID)
		ch <- answer{status, err}
	}()

	select {
	case <-ctx.Done():
		g.log.Warn("membership query timed out",
			zap.String("chat", req.Ref()),
			zap.Int64("user_id", userID),
		)
		return false
	case a := <-ch:
		if a.err != nil {
			g.log.Warn("membership query failed",
				zap.Error(a.err),
				zap.String("chat", req.Ref()),
				zap.Int64("user_id", userID),
			)
			return false
		}
		switch a.status {
		case StatusMember, StatusAdministrator, StatusCreator:
			return true
		}
		return false
	}
}
