package form_test

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mbolis/pmdraft/checklist"
	"github.com/mbolis/pmdraft/draft"
	"github.com/mbolis/pmdraft/form"
	"github.com/mbolis/pmdraft/model"
	"github.com/mbolis/pmdraft/photo"
)

var _ = Describe("Sessions", func() {
	var (
		ctx      context.Context
		mock     *clock.Mock
		drafts   *draft.Store
		deps     form.Deps
		sessions *form.Sessions
		ac, dc   model.DraftKey
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = clock.NewMock()
		drafts = draft.NewStore(draft.NewMemoryBackend())
		deps = form.Deps{
			Drafts:    drafts,
			Photos:    photo.NewStore(photo.NewMemoryBackend(), photo.DefaultMaxBytes),
			Submitter: &fakeSubmitter{},
			Clock:     mock,
			Debounce:  time.Second,
		}
		sessions = form.NewSessions(deps)
		ac = model.NewDraftKey(checklist.AC, "ST-001", "")
		dc = model.NewDraftKey(checklist.DC, "ST-001", "")
	})

	It("returns the same controller for the same key", func() {
		a, err := sessions.Get(ctx, ac)
		Expect(err).NotTo(HaveOccurred())
		b, err := sessions.Get(ctx, ac)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(BeIdenticalTo(a))

		other, err := sessions.Get(ctx, dc)
		Expect(err).NotTo(HaveOccurred())
		Expect(other).NotTo(BeIdenticalTo(a))
		Expect(sessions.Len()).To(Equal(2))
	})

	It("propagates open errors", func() {
		_, err := sessions.Get(ctx, model.NewDraftKey("boiler", "", ""))
		Expect(err).To(MatchError(checklist.ErrUnknownFormType))
		Expect(sessions.Len()).To(BeZero())
	})

	It("flushes and forgets a closed draft", func() {
		c, err := sessions.Get(ctx, ac)
		Expect(err).NotTo(HaveOccurred())
		_, err = c.SetSummary("pending")
		Expect(err).NotTo(HaveOccurred())

		sessions.Close(ctx, ac)
		Expect(sessions.Len()).To(BeZero())
		rec, ok := drafts.Load(ctx, ac)
		Expect(ok).To(BeTrue())
		Expect(rec.Summary).To(Equal("pending"))

		sessions.Close(ctx, ac)
	})

	It("flushes every open draft on CloseAll", func() {
		for _, key := range []model.DraftKey{ac, dc} {
			c, err := sessions.Get(ctx, key)
			Expect(err).NotTo(HaveOccurred())
			_, err = c.SetSummary(key.FormType + " pending")
			Expect(err).NotTo(HaveOccurred())
		}

		sessions.CloseAll(ctx)
		Expect(sessions.Len()).To(BeZero())
		for _, key := range []model.DraftKey{ac, dc} {
			rec, ok := drafts.Load(ctx, key)
			Expect(ok).To(BeTrue())
			Expect(rec.Summary).To(Equal(key.FormType + " pending"))
		}
	})

	It("replaces a discarded controller with a fresh one", func() {
		c, err := sessions.Get(ctx, ac)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Discard(ctx)).To(Succeed())

		fresh, err := sessions.Get(ctx, ac)
		Expect(err).NotTo(HaveOccurred())
		Expect(fresh).NotTo(BeIdenticalTo(c))
		Expect(fresh.State()).To(Equal(form.StateEditing))
	})

	It("opens other drafts while one is stuck in a station lookup", func() {
		lookup := newBlockingLookup("ST-SLOW")
		deps.Lookup = lookup
		sessions = form.NewSessions(deps)
		slow := model.NewDraftKey(checklist.AC, "ST-SLOW", "")

		first := make(chan *form.Controller, 1)
		go func() {
			defer GinkgoRecover()
			c, err := sessions.Get(ctx, slow)
			Expect(err).NotTo(HaveOccurred())
			first <- c
		}()
		Eventually(lookup.started).Should(BeClosed())

		other, err := sessions.Get(ctx, dc)
		Expect(err).NotTo(HaveOccurred())
		Expect(other.Key()).To(Equal(dc))

		second := make(chan *form.Controller, 1)
		go func() {
			defer GinkgoRecover()
			c, err := sessions.Get(ctx, slow)
			Expect(err).NotTo(HaveOccurred())
			second <- c
		}()
		Consistently(second, "50ms").ShouldNot(Receive())

		close(lookup.release)
		var a, b *form.Controller
		Eventually(first).Should(Receive(&a))
		Eventually(second).Should(Receive(&b))
		Expect(b).To(BeIdenticalTo(a))
		Expect(sessions.Len()).To(Equal(2))
	})

	It("gives up waiting for a draft when the caller goes away", func() {
		lookup := newBlockingLookup("ST-SLOW")
		defer close(lookup.release)
		deps.Lookup = lookup
		sessions = form.NewSessions(deps)
		slow := model.NewDraftKey(checklist.AC, "ST-SLOW", "")

		go sessions.Get(ctx, slow)
		Eventually(lookup.started).Should(BeClosed())

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := sessions.Get(waitCtx, slow)
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})

	It("evicts drafts left idle after flushing them", func() {
		c, err := sessions.Get(ctx, ac)
		Expect(err).NotTo(HaveOccurred())
		_, err = c.SetSummary("left behind")
		Expect(err).NotTo(HaveOccurred())

		mock.Add(10 * time.Minute)
		_, err = sessions.Get(ctx, dc)
		Expect(err).NotTo(HaveOccurred())
		mock.Add(25 * time.Minute)

		Expect(sessions.Evict(ctx, 30*time.Minute)).To(Equal(1))
		Expect(sessions.Len()).To(Equal(1))
		Eventually(func() string {
			rec, _ := drafts.Load(ctx, ac)
			return rec.Summary
		}).Should(Equal("left behind"))

		fresh, err := sessions.Get(ctx, ac)
		Expect(err).NotTo(HaveOccurred())
		Expect(fresh).NotTo(BeIdenticalTo(c))
		Expect(fresh.Snapshot().Record.Summary).To(Equal("left behind"))
	})

	It("keeps evicting in the background until stopped", func() {
		_, err := sessions.Get(ctx, ac)
		Expect(err).NotTo(HaveOccurred())

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go sessions.Run(runCtx, time.Minute)

		Eventually(func() int {
			mock.Add(30 * time.Second)
			return sessions.Len()
		}).Should(BeZero())
	})
})
