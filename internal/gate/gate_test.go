package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeSource maps requirement refs to canned statuses or errors.
type fakeSource struct {
	statuses map[string]string
	errs     map[string]error
	delay    time.Duration
}

func (f *fakeSource) MemberStatus(req Requirement, _ int64) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.errs[req.Ref()]; ok {
		return "", err
	}
	return f.statuses[req.Ref()], nil
}

func reqs(handles ...string) []Requirement {
	out := make([]Requirement, 0, len(handles))
	for _, h := range handles {
		out = append(out, Requirement{Username: h, Label: h, JoinURL: "https://t.me/" + h})
	}
	return out
}

func newTestGate(src StatusSource, requirements []Requirement) *Gate {
	return New(src, requirements, time.Second, zap.NewNop())
}

func TestCheckAllSatisfied(t *testing.T) {
	cases := []struct {
		name   string
		status string
	}{
		{name: "member", status: StatusMember},
		{name: "administrator", status: StatusAdministrator},
		{name: "creator", status: StatusCreator},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{statuses: map[string]string{
				"@one": tc.status,
				"@two": StatusMember,
			}}
			res := newTestGate(src, reqs("@one", "@two")).Check(context.Background(), 7)
			if !res.Allowed {
				t.Errorf("expected allowed, got unmet %v", res.Unmet)
			}
			if len(res.Unmet) != 0 {
				t.Errorf("expected no unmet requirements, got %d", len(res.Unmet))
			}
		})
	}
}

func TestCheckCollectsEveryUnmet(t *testing.T) {
	src := &fakeSource{statuses: map[string]string{
		"@one":   "left",
		"@two":   StatusMember,
		"@three": "kicked",
	}}
	res := newTestGate(src, reqs("@one", "@two", "@three")).Check(context.Background(), 7)

	if res.Allowed {
		t.Fatal("expected denial")
	}
	if len(res.Unmet) != 2 {
		t.Fatalf("expected 2 unmet requirements, got %d", len(res.Unmet))
	}
	// Configured order must be preserved.
	if res.Unmet[0].Username != "@one" || res.Unmet[1].Username != "@three" {
		t.Errorf("unmet list out of order: %v", res.Unmet)
	}
}

func TestCheckFailsClosedOnQueryError(t *testing.T) {
	src := &fakeSource{
		statuses: map[string]string{"@one": StatusMember},
		errs:     map[string]error{"@two": errors.New("bad gateway")},
	}
	res := newTestGate(src, reqs("@one", "@two")).Check(context.Background(), 7)

	if res.Allowed {
		t.Fatal("a failed status query must deny access")
	}
	if len(res.Unmet) != 1 || res.Unmet[0].Username != "@two" {
		t.Errorf("expected @two unmet, got %v", res.Unmet)
	}
}

func TestCheckFailsClosedOnTimeout(t *testing.T) {
	src := &fakeSource{
		statuses: map[string]string{"@one": StatusMember},
		delay:    200 * time.Millisecond,
	}
	g := New(src, reqs("@one"), 20*time.Millisecond, zap.NewNop())

	res := g.Check(context.Background(), 7)
	if res.Allowed {
		t.Fatal("a timed-out status query must deny access")
	}
}

func TestCheckUnknownStatusIsUnmet(t *testing.T) {
	src := &fakeSource{statuses: map[string]string{"@one": "restricted"}}
	res := newTestGate(src, reqs("@one")).Check(context.Background(), 7)
	if res.Allowed {
		t.Fatal("a status outside member/administrator/creator must deny access")
	}
}

func TestCheckNoRequirements(t *testing.T) {
	res := newTestGate(&fakeSource{}, nil).Check(context.Background(), 7)
	if !res.Allowed {
		t.Fatal("empty requirement list must allow")
	}
}

func TestCheckIsStateless(t *testing.T) {
	src := &fakeSource{statuses: map[string]string{"@one": "left"}}
	g := newTestGate(src, reqs("@one"))

	if res := g.Check(context.Background(), 7); res.Allowed {
		t.Fatal("expected denial before joining")
	}

	// The user joins; the very next check must see it, nothing cached.
	src.statuses["@one"] = StatusMember
	if res := g.Check(context.Background(), 7); !res.Allowed {
		t.Fatal("expected allow after joining")
	}
}
