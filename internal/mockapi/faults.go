package mockapi

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Fault is a kind of injected failure.
type Fault int

const (
	FaultNone Fault = iota
	// FaultNetwork drops the connection without a response.
	FaultNetwork
	// FaultServer answers 503.
	FaultServer
)

// Faults sets random failure rates (0..1) and a fixed latency per request.
type Faults struct {
	NetworkFailRate float64
	ServerFailRate  float64
	Latency         time.Duration
}

// FaultInjector decides per request whether to fail it.
type FaultInjector struct {
	mu     sync.Mutex
	faults Faults
	queue  []Fault
	rand   func() float64
}

func newFaultInjector(f Faults) *FaultInjector {
	return &FaultInjector{faults: f, rand: rand.Float64}
}

// Set replaces the failure rates.
func (fi *FaultInjector) Set(f Faults) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.faults = f
}

// FailNext makes the next n requests fail with fault, ahead of any random
// failures.
func (fi *FaultInjector) FailNext(fault Fault, n int) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	for i := 0; i < n; i++ {
		fi.queue = append(fi.queue, fault)
	}
}

// Reset clears queued failures and rates.
func (fi *FaultInjector) Reset() {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.queue = nil
	fi.faults = Faults{}
}

func (fi *FaultInjector) next() (Fault, time.Duration) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if len(fi.queue) > 0 {
		f := fi.queue[0]
		fi.queue = fi.queue[1:]
		return f, fi.faults.Latency
	}
	r := fi.rand()
	switch {
	case r < fi.faults.NetworkFailRate:
		return FaultNetwork, fi.faults.Latency
	case r < fi.faults.NetworkFailRate+fi.faults.ServerFailRate:
		return FaultServer, fi.faults.Latency
	}
	return FaultNone, fi.faults.Latency
}

func (fi *FaultInjector) middleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fault, latency := fi.next()
		if latency > 0 {
			t := time.NewTimer(latency)
			select {
			case <-c.Request.Context().Done():
				t.Stop()
				c.Abort()
				return
			case <-t.C:
			}
		}

		switch fault {
		case FaultNetwork:
			logger.Debug("injecting network failure", "path", c.Request.URL.Path)
			dropConnection(c)
		case FaultServer:
			logger.Debug("injecting server failure", "path", c.Request.URL.Path)
			fail(c, http.StatusServiceUnavailable, nil)
		default:
			c.Next()
		}
	}
}

// truncatedResponse promises a body it never sends.
const truncatedResponse = "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 64\r\n\r\n{"

// dropConnection breaks the connection mid-response. Closing before any
// response bytes would let the client transport replay idempotent requests.
func dropConnection(c *gin.Context) {
	c.Abort()
	conn, buf, err := c.Writer.Hijack()
	if err != nil {
		c.Status(http.StatusBadGateway)
		return
	}
	defer conn.Close()
	_, _ = buf.WriteString(truncatedResponse)
	_ = buf.Flush()
}
