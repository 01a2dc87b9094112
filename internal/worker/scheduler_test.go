package worker_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"elva.app/accounting/internal/jobs"
	"elva.app/accounting/internal/worker"
)

var _ = Describe("Scheduler", func() {
	It("dispatches each job to the runner", func() {
		runner := &mockJobRunner{}
		s := worker.NewScheduler(runner, worker.Schedule{})
		ctx := context.Background()

		for _, name := range []jobs.Name{jobs.Retention, jobs.Reconcile, jobs.Analytics, jobs.AuditPurge} {
			Expect(s.Trigger(ctx, name)).To(BeTrue())
		}
		Expect(runner.Calls()).To(Equal([]string{"retention", "reconcile", "analytics", "audit_purge"}))
		Expect(*runner.scope.From).To(Equal("2025-06-04"))
	})

	It("skips a job whose previous run has not finished", func() {
		runner := &mockJobRunner{block: make(chan struct{})}
		s := worker.NewScheduler(runner, worker.Schedule{})
		ctx := context.Background()

		go s.Trigger(ctx, jobs.Retention)
		Eventually(runner.Calls).Should(HaveLen(1))

		Expect(s.Trigger(ctx, jobs.Retention)).To(BeFalse())
		close(runner.block)
	})

	It("rejects unknown job names", func() {
		s := worker.NewScheduler(&mockJobRunner{}, worker.Schedule{})
		Expect(s.Trigger(context.Background(), jobs.Name("vacuum"))).To(BeFalse())
	})

	It("fails fast on an invalid cron expression", func() {
		s := worker.NewScheduler(&mockJobRunner{}, worker.Schedule{Retention: "every night"})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(s.Run(ctx)).To(MatchError(ContainSubstring("scheduling retention job")))
	})

	It("stops when the context is cancelled", func() {
		s := worker.NewScheduler(&mockJobRunner{}, worker.Schedule{Retention: "0 3 * * *", AuditPurge: "0 5 * * *"})
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
})
