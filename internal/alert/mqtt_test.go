package alert

import (
	"net"
	"sync/atomic"
	"testing"
	"time"
)

// refusingBroker accepts TCP connections and closes them at once, counting
// every attempt.
func refusingBroker(t *testing.T) (string, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	var attempts atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			attempts.Add(1)
			_ = conn.Close()
		}
	}()
	return ln.Addr().String(), &attempts
}

func TestNewMQTTSink_TimeoutStopsRetrying(t *testing.T) {
	addr, attempts := refusingBroker(t)

	sink, err := NewMQTTSink(MQTTOptions{
		Broker:         addr,
		ClientID:       "mask-sentry-test",
		Topic:          "mask-sentry",
		ConnectTimeout: 300 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
	})
	if err == nil {
		sink.Close()
		t.Fatal("expected a connection timeout")
	}
	if attempts.Load() == 0 {
		t.Fatal("broker saw no connection attempts")
	}

	after := attempts.Load()
	time.Sleep(300 * time.Millisecond)
	// One attempt may already have been in flight when the client stopped.
	if got := attempts.Load(); got > after+1 {
		t.Errorf("client kept retrying after the timeout: %d attempts, then %d", after, got)
	}
}
