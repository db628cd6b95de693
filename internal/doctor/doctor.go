// Package doctor checks that the external pieces the converter leans on are
// actually present: the command-line tools on PATH and, for the daemon, the
// Redis backend.
package doctor

import (
	"context"
	"errors"
	"os/exec"
	"time"
)

// RedisPinger models the minimal Redis capability needed for health checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Status represents the readiness of one dependency.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all dependency statuses.
type Summary struct {
	Pdfjam     Status  `json:"pdfjam"`
	Pdfinfo    Status  `json:"pdfinfo"`
	Podofocrop Status  `json:"podofocrop"`
	Redis      *Status `json:"redis,omitempty"`
}

// Checker aggregates dependency checks. Redis is optional; the standalone
// CLI has no queue to ping.
type Checker struct {
	redis RedisPinger
}

// Options configures the Checker.
type Options struct {
	Redis RedisPinger
}

// New creates a Checker.
func New(opts Options) *Checker {
	return &Checker{redis: opts.Redis}
}

// Summary returns the current dependency snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	s := Summary{
		Pdfjam:     checkTool("pdfjam"),
		Pdfinfo:    checkTool("pdfinfo"),
		Podofocrop: checkTool("podofocrop"),
	}
	if c.redis != nil {
		rs := c.checkRedis(ctx)
		s.Redis = &rs
	}
	return s
}

// AllOK reports whether every checked dependency is usable. The podofocrop
// binary is only required for podofo autoscale mode, so it does not gate
// overall health.
func (s Summary) AllOK() bool {
	if !s.Pdfjam.OK || !s.Pdfinfo.OK {
		return false
	}
	if s.Redis != nil && !s.Redis.OK {
		return false
	}
	return true
}

func checkTool(name string) Status {
	if _, err := exec.LookPath(name); err != nil {
		return Status{OK: false, Message: "Binary not found"}
	}
	return Status{OK: true, Message: "Available"}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
