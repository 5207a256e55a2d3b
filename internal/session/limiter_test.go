package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/engine/enginetest"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/model"
)

type stubStatusReader struct {
	state model.ChatSessionState
	err   error
}

func (s *stubStatusReader) Status(context.Context, string) (model.ChatSessionState, error) {
	return s.state, s.err
}

func testMetrics() *observability.Metrics {
	return observability.InitMetrics(prometheus.NewRegistry())
}

func TestLimiterCheck_underLimit(t *testing.T) {
	reader := &stubStatusReader{state: model.ChatSessionState{MessageCount: 49}}
	l := NewLimiter(reader, 50, zap.NewNop(), testMetrics())

	res := l.Check(context.Background(), "s1", model.UserTypeGuest)
	if res.Limited {
		t.Fatalf("Limited = true at count 49 with limit 50")
	}
	if res.Limit != 50 || res.Current != 49 {
		t.Errorf("result = %+v", res)
	}
}

func TestLimiterCheck_atLimitRejects(t *testing.T) {
	// The 50th message was accepted; the 51st must be rejected with the
	// exact counts echoed back.
	reader := &stubStatusReader{state: model.ChatSessionState{MessageCount: 50}}
	l := NewLimiter(reader, 50, zap.NewNop(), testMetrics())

	res := l.Check(context.Background(), "s1", model.UserTypeGuest)
	if !res.Limited {
		t.Fatal("Limited = false at count 50 with limit 50")
	}
	if res.Limit != 50 || res.Current != 50 {
		t.Errorf("result = %+v", res)
	}
}

func TestLimiterCheck_authenticatedUnlimited(t *testing.T) {
	reader := &stubStatusReader{state: model.ChatSessionState{MessageCount: 10_000}}
	l := NewLimiter(reader, 50, zap.NewNop(), testMetrics())

	if res := l.Check(context.Background(), "s1", model.UserTypeAuthenticated); res.Limited {
		t.Error("authenticated user was limited")
	}
}

func TestLimiterCheck_zeroLimitDisables(t *testing.T) {
	reader := &stubStatusReader{state: model.ChatSessionState{MessageCount: 10_000}}
	l := NewLimiter(reader, 0, zap.NewNop(), testMetrics())

	if res := l.Check(context.Background(), "s1", model.UserTypeGuest); res.Limited {
		t.Error("guest limited with limit 0")
	}
}

func TestLimiterCheck_newSessionCountsAsZero(t *testing.T) {
	reader := &stubStatusReader{err: enginetest.NotFoundErr("no session")}
	l := NewLimiter(reader, 50, zap.NewNop(), testMetrics())

	res := l.Check(context.Background(), "fresh", model.UserTypeGuest)
	if res.Limited || res.Current != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestLimiterCheck_fallbackOnEngineFailure(t *testing.T) {
	reader := &stubStatusReader{err: fmt.Errorf("engine unreachable")}
	l := NewLimiter(reader, 3, zap.NewNop(), testMetrics())

	// The local counter tracks accepted messages while the engine is down.
	for i := 0; i < 3; i++ {
		if res := l.Check(context.Background(), "s1", model.UserTypeGuest); res.Limited {
			t.Fatalf("Limited at message %d", i+1)
		}
		l.Record("s1")
	}
	res := l.Check(context.Background(), "s1", model.UserTypeGuest)
	if !res.Limited {
		t.Fatal("fallback counter did not enforce the limit")
	}
	if res.Current != 3 {
		t.Errorf("Current = %d, want 3", res.Current)
	}
}

func TestLimiterCheck_durableCountSyncsLocal(t *testing.T) {
	// A durable read pulls the local counter up, so a later engine outage
	// does not under-count.
	reader := &stubStatusReader{state: model.ChatSessionState{MessageCount: 40}}
	l := NewLimiter(reader, 50, zap.NewNop(), testMetrics())

	l.Check(context.Background(), "s1", model.UserTypeGuest)

	reader.err = fmt.Errorf("engine unreachable")
	res := l.Check(context.Background(), "s1", model.UserTypeGuest)
	if res.Current != 40 {
		t.Errorf("fallback Current = %d, want 40", res.Current)
	}
}

func TestLimiter_dailyReset(t *testing.T) {
	reader := &stubStatusReader{err: fmt.Errorf("engine unreachable")}
	l := NewLimiter(reader, 2, zap.NewNop(), testMetrics())

	current := time.Date(2026, 8, 27, 23, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	l.Record("s1")
	l.Record("s1")
	if res := l.Check(context.Background(), "s1", model.UserTypeGuest); !res.Limited {
		t.Fatal("expected limit to be reached")
	}

	// The day rolls over; the counter starts fresh.
	current = current.Add(2 * time.Hour)
	if res := l.Check(context.Background(), "s1", model.UserTypeGuest); res.Limited {
		t.Error("limit carried over past the day boundary")
	}
}
