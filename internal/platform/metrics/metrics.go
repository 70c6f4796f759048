package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests     atomic.Uint64
	errorRequests     atomic.Uint64
	rateLimited       atomic.Uint64
	totalDurationMs   atomic.Uint64
	payslipsComputed  atomic.Uint64
	payslipsPaid      atomic.Uint64
	payrollRuns       atomic.Uint64
	payrollRunsFailed atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.totalRequests.Add(1)
	if status >= 500 {
		c.errorRequests.Add(1)
	}
	if status == 429 {
		c.rateLimited.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
}

func (c *Collector) PayslipsComputed(n int) {
	if n > 0 {
		c.payslipsComputed.Add(uint64(n))
	}
}

func (c *Collector) PayslipPaid() {
	c.payslipsPaid.Add(1)
}

func (c *Collector) PayrollRun(failed bool) {
	c.payrollRuns.Add(1)
	if failed {
		c.payrollRunsFailed.Add(1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":          total,
		"errorsTotal":            c.errorRequests.Load(),
		"rateLimitedTotal":       c.rateLimited.Load(),
		"avgDurationMs":          avg,
		"totalDurationMs":        totalMs,
		"payslipsComputedTotal":  c.payslipsComputed.Load(),
		"payslipsPaidTotal":      c.payslipsPaid.Load(),
		"payrollRunsTotal":       c.payrollRuns.Load(),
		"payrollRunsFailedTotal": c.payrollRunsFailed.Load(),
	}
}
