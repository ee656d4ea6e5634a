package observability

import (
	"testing"
	"time"

	"github.com/fleetdesk/notify/internal/testutil/testlog"
)

func TestRegisterMetricsIdempotent(t *testing.T) {
	testlog.Start(t)
	// MustRegister panics on duplicate registration; repeated calls must
	// be absorbed by the once guard.
	RegisterMetrics()
	RegisterMetrics()
}

func TestRecorders(t *testing.T) {
	testlog.Start(t)
	RecordHTTPRequest("POST", "/v1/messages", 200, 5*time.Millisecond)
	RecordSend("sent")
	RecordSend("not_ready")
	RecordRetry()
	RecordDeadLetter()
	SetQueueDepth(3)
	SetQueueDepth(0)
	RecordDrain()
}
