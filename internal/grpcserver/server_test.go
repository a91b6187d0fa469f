package grpcserver

import (
	"context"
	"errors"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func status(t *testing.T, s *Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q) error = %v", service, err)
	}
	return resp.Status
}

func TestSetServing(t *testing.T) {
	s := New("127.0.0.1:0")

	if got := status(t, s, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("initial status = %v, want NOT_SERVING", got)
	}

	s.SetServing(true)
	for _, svc := range []string{"", ServiceName} {
		if got := status(t, s, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("status(%q) = %v, want SERVING", svc, got)
		}
	}

	s.SetServing(false)
	if got := status(t, s, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
}

func TestWatchMirrorsCheck(t *testing.T) {
	s := New("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	healthy := make(chan bool, 1)
	healthy <- true
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Watch(ctx, time.Hour, func(context.Context) error {
			if <-healthy {
				return nil
			}
			return errors.New("store unavailable")
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for status(t, s, ServiceName) != healthpb.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatal("Watch did not report SERVING")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-done
}

func TestStartStop(t *testing.T) {
	s := New("127.0.0.1:0")
	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
