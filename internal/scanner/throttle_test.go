package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maxvaer/cmsid/internal/logging"
)

func TestThrottlerDisabledKeepsBase(t *testing.T) {
	th := NewThrottler(10*time.Millisecond, false, logging.Discard())
	th.Record(Outcome{Kind: NotFound, StatusCode: 429})
	if th.Delay() != 10*time.Millisecond {
		t.Errorf("delay = %s, want base", th.Delay())
	}
}

func TestThrottlerBacksOffAndRecovers(t *testing.T) {
	th := NewThrottler(0, true, logging.Discard())

	th.Record(Outcome{Kind: NotFound, StatusCode: 429})
	if th.Delay() != minBackoff {
		t.Fatalf("delay after 429 = %s, want %s", th.Delay(), minBackoff)
	}
	th.Record(Outcome{Kind: NotFound, StatusCode: 503})
	if th.Delay() != 2*minBackoff {
		t.Fatalf("delay after 503 = %s, want %s", th.Delay(), 2*minBackoff)
	}

	th.Record(Outcome{Kind: Success, StatusCode: 200})
	if th.Delay() != minBackoff {
		t.Errorf("delay after recovery = %s, want %s", th.Delay(), minBackoff)
	}
}

func TestThrottlerErrorsNeedThreeInARow(t *testing.T) {
	th := NewThrottler(0, true, logging.Discard())
	for i := 0; i < 2; i++ {
		th.Record(Outcome{Kind: Timeout})
	}
	if th.Delay() != 0 {
		t.Fatalf("delay after 2 errors = %s, want 0", th.Delay())
	}
	th.Record(Outcome{Kind: NetworkError})
	if th.Delay() != minBackoff {
		t.Errorf("delay after 3 errors = %s, want %s", th.Delay(), minBackoff)
	}
}

func TestThrottlerCapsAtMax(t *testing.T) {
	th := NewThrottler(0, true, logging.Discard())
	for i := 0; i < 20; i++ {
		th.Record(Outcome{Kind: NotFound, StatusCode: 429})
	}
	if th.Delay() != maxBackoff {
		t.Errorf("delay = %s, want cap %s", th.Delay(), maxBackoff)
	}
}

func TestThrottlerWaitHonoursContext(t *testing.T) {
	th := NewThrottler(time.Hour, false, logging.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := th.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want deadline exceeded", err)
	}
}
