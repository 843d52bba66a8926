package form_test

import (
	"context"
	"encoding/base64"
	"errors"
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

var _ = Describe("Controller", func() {
	var (
		ctx       context.Context
		mock      *clock.Mock
		backend   *countingBackend
		drafts    *draft.Store
		photos    *photo.Store
		submitter *fakeSubmitter
		deps      form.Deps
		key       model.DraftKey
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = clock.NewMock()
		backend = &countingBackend{Backend: draft.NewMemoryBackend()}
		drafts = draft.NewStore(backend)
		photos = photo.NewStore(photo.NewMemoryBackend(), photo.DefaultMaxBytes)
		submitter = &fakeSubmitter{}
		deps = form.Deps{
			Drafts:    drafts,
			Photos:    photos,
			Submitter: submitter,
			Clock:     mock,
			Debounce:  800 * time.Millisecond,
		}
		key = model.NewDraftKey(checklist.AC, "ST-001", "")
	})

	open := func() *form.Controller {
		c, err := form.Open(ctx, deps, key)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	stored := func() (model.DraftRecord, bool) {
		return drafts.Load(ctx, key)
	}

	Describe("Open", func() {
		It("starts an empty schema-shaped record", func() {
			c := open()
			snap := c.Snapshot()

			schema, _ := checklist.Get(checklist.AC)
			Expect(snap.State).To(Equal(form.StateEditing))
			Expect(snap.Record.Rows).To(HaveLen(len(schema.Items)))
			Expect(snap.Record.Rows["r9"].Values).To(HaveKeyWithValue("l1_n", ""))
			Expect(snap.Report.IsComplete).To(BeFalse())
			Expect(snap.Total).To(Equal(len(schema.Items)))
			Expect(snap.Done).To(BeZero())
		})

		It("rejects unknown form types", func() {
			_, err := form.Open(ctx, deps, model.NewDraftKey("boiler", "ST-001", ""))
			Expect(err).To(MatchError(checklist.ErrUnknownFormType))
		})

		It("rejects keys whose ids contain the separator", func() {
			_, err := form.Open(ctx, deps, model.NewDraftKey(checklist.AC, "ST:001", ""))
			Expect(err).To(MatchError(model.ErrMalformedKey))
		})

		It("hydrates a stored draft", func() {
			rec := checklistRecord(checklist.AC)
			rec.Rows["r1"] = model.RowState{PF: model.PFFail, Remark: "cracked"}
			rec.Summary = "in progress"
			drafts.Save(ctx, key, rec)

			snap := open().Snapshot()
			Expect(snap.Record.Rows["r1"]).To(Equal(model.RowState{PF: model.PFFail, Remark: "cracked"}))
			Expect(snap.Record.Summary).To(Equal("in progress"))
		})

		It("fills rows missing from an older draft", func() {
			drafts.Save(ctx, key, model.DraftRecord{Rows: map[string]model.RowState{"r1": {PF: model.PFPass}}})

			snap := open().Snapshot()
			Expect(snap.Record.Rows["r1"].PF).To(Equal(model.PFPass))
			Expect(snap.Record.Rows).To(HaveKey("r9"))
			Expect(snap.Record.PhotoRefs).NotTo(BeNil())
		})

		It("drops refs whose photo binary is gone", func() {
			kept, err := photos.Put(ctx, key.String(), "r1", png())
			Expect(err).NotTo(HaveOccurred())
			gone, err := photos.Put(ctx, key.String(), "r9", png())
			Expect(err).NotTo(HaveOccurred())
			photos.Delete(ctx, gone)

			rec := checklistRecord(checklist.AC)
			rec.PhotoRefs["r1"] = []model.PhotoRef{kept}
			rec.PhotoRefs["r9"] = []model.PhotoRef{gone}
			rec.PhotoRefs["r3"] = []model.PhotoRef{{NA: true}}
			drafts.Save(ctx, key, rec)

			snap := open().Snapshot()
			Expect(snap.Record.Photos("r1")).To(ConsistOf(kept))
			Expect(snap.Record.Photos("r9")).To(BeEmpty())
			Expect(snap.Record.IsNA("r3")).To(BeTrue())
			Expect(snap.Report.MissingPhoto).To(ContainElement("r9"))
			Expect(snap.Report.MissingPhoto).NotTo(ContainElement("r1"))
		})

		It("prefills the head of a new draft from the station lookup", func() {
			deps.Lookup = fakeLookup{heads: map[string]model.Head{
				"ST-001": {StationName: "Rama IV", Location: "Bangkok"},
			}}
			snap := open().Snapshot()
			Expect(snap.Record.Head.StationName).To(Equal("Rama IV"))
		})

		It("starts blank when the lookup fails", func() {
			deps.Lookup = fakeLookup{}
			snap := open().Snapshot()
			Expect(snap.Record.Head).To(Equal(model.Head{}))
		})

		It("does not prefill over a stored draft", func() {
			drafts.Save(ctx, key, model.DraftRecord{Head: model.Head{StationName: "typed by hand"}})
			deps.Lookup = fakeLookup{heads: map[string]model.Head{"ST-001": {StationName: "Rama IV"}}}

			snap := open().Snapshot()
			Expect(snap.Record.Head.StationName).To(Equal("typed by hand"))
		})
	})

	Describe("editing", func() {
		It("recomputes the report synchronously", func() {
			c := open()
			before := c.Report()
			Expect(before.MissingPF).To(ContainElement("r1"))

			snap, err := c.SetPF("r1", model.PFPass)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Report.MissingPF).NotTo(ContainElement("r1"))
			Expect(c.Report().MissingPF).NotTo(ContainElement("r1"))
		})

		It("coalesces a burst of edits into one write of the final state", func() {
			c := open()
			for _, remark := range []string{"a", "ab", "abc", "abcd", "abcde"} {
				_, err := c.SetRemark("r2", remark)
				Expect(err).NotTo(HaveOccurred())
				mock.Add(100 * time.Millisecond)
			}
			Consistently(backend.writes.Load, "50ms").Should(BeZero())

			mock.Add(800 * time.Millisecond)
			Eventually(backend.writes.Load).Should(BeEquivalentTo(1))
			Consistently(backend.writes.Load, "50ms").Should(BeEquivalentTo(1))

			rec, ok := stored()
			Expect(ok).To(BeTrue())
			Expect(rec.Rows["r2"].Remark).To(Equal("abcde"))
		})

		It("flushes the pending save on close", func() {
			c := open()
			_, err := c.SetSummary("draft summary")
			Expect(err).NotTo(HaveOccurred())

			c.Close(ctx)
			Expect(backend.writes.Load()).To(BeEquivalentTo(1))
			rec, ok := stored()
			Expect(ok).To(BeTrue())
			Expect(rec.Summary).To(Equal("draft summary"))
			Expect(rec.UpdatedAt).NotTo(BeNil())
		})

		It("does not write on close without edits", func() {
			open().Close(ctx)
			Expect(backend.writes.Load()).To(BeZero())
		})

		It("rejects unknown items, fields and PF values", func() {
			c := open()
			_, err := c.SetPF("r99", model.PFPass)
			Expect(err).To(MatchError(form.ErrUnknownItem))

			_, err = c.SetValue("r9", "l9_n", "230")
			Expect(err).To(MatchError(form.ErrUnknownField))

			_, err = c.SetValue("r1", "l1_n", "230")
			Expect(err).To(MatchError(form.ErrUnknownField))

			_, err = c.SetPF("r1", "MAYBE")
			Expect(err).To(MatchError(form.ErrInvalidPF))

			_, err = c.SetSummaryPF("MAYBE")
			Expect(err).To(MatchError(form.ErrInvalidPF))

			Consistently(backend.writes.Load, "50ms").Should(BeZero())
		})

		It("applies a row patch whole or not at all", func() {
			c := open()
			bad := model.PF("MAYBE")
			remark := "half applied"
			_, err := c.PatchRow("r9", form.RowPatch{
				Values: map[string]string{"l1_n": "230"},
				PF:     &bad,
				Remark: &remark,
			})
			Expect(err).To(MatchError(form.ErrInvalidPF))
			row := c.Snapshot().Record.Rows["r9"]
			Expect(row.Values).To(HaveKeyWithValue("l1_n", ""))
			Expect(row.Remark).To(BeEmpty())
			Consistently(backend.writes.Load, "50ms").Should(BeZero())

			pass := model.PFPass
			snap, err := c.PatchRow("r9", form.RowPatch{
				Values: map[string]string{"l1_n": "230"},
				PF:     &pass,
				Remark: &remark,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Record.Rows["r9"].Values).To(HaveKeyWithValue("l1_n", "230"))
			Expect(snap.Record.Rows["r9"].PF).To(Equal(model.PFPass))
			Expect(snap.Record.Rows["r9"].Remark).To(Equal(remark))
		})

		It("leaves other readings untouched when setting one", func() {
			c := open()
			_, err := c.SetValues("r9", map[string]string{"l1_n": "230", "l2_n": "231"})
			Expect(err).NotTo(HaveOccurred())
			snap, err := c.SetValue("r9", "l1_n", "229")
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Record.Rows["r9"].Values).To(HaveKeyWithValue("l1_n", "229"))
			Expect(snap.Record.Rows["r9"].Values).To(HaveKeyWithValue("l2_n", "231"))
		})

		It("marks and unmarks N/A", func() {
			c := open()
			snap, err := c.MarkNA("r9", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Record.IsNA("r9")).To(BeTrue())
			Expect(snap.Report.MissingPhoto).NotTo(ContainElement("r9"))
			Expect(snap.Report.MissingInput).NotTo(ContainElement("r9"))

			snap, err = c.MarkNA("r9", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Record.IsNA("r9")).To(BeFalse())
			Expect(snap.Record.Rows["r9"].PF).To(Equal(model.PFUnset))
			Expect(snap.Report.MissingPhoto).To(ContainElement("r9"))
		})

		It("hands out snapshots that do not alias the live record", func() {
			c := open()
			snap := c.Snapshot()
			snap.Record.Rows["r9"].Values["l1_n"] = "999"
			snap.Report.MissingPF[0] = "tampered"

			again := c.Snapshot()
			Expect(again.Record.Rows["r9"].Values["l1_n"]).To(BeEmpty())
			Expect(again.Report.MissingPF[0]).To(Equal("r1"))
		})
	})

	Describe("photos", func() {
		It("attaches, serves and removes photos", func() {
			c := open()
			ref, snap, err := c.AttachPhoto(ctx, "r1", png())
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.ID).NotTo(BeEmpty())
			Expect(snap.Report.MissingPhoto).NotTo(ContainElement("r1"))

			p, ok := c.Photo(ctx, "r1", ref.ID)
			Expect(ok).To(BeTrue())
			Expect(p.ContentType).To(Equal("image/png"))

			_, ok = c.Photo(ctx, "r2", ref.ID)
			Expect(ok).To(BeFalse())

			snap, err = c.RemovePhoto(ctx, "r1", ref.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Report.MissingPhoto).To(ContainElement("r1"))
			_, ok = photos.Get(ctx, ref)
			Expect(ok).To(BeFalse())
		})

		It("treats removing an unknown photo as a no-op", func() {
			c := open()
			_, err := c.RemovePhoto(ctx, "r1", "nope")
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps the draft untouched when the upload is rejected", func() {
			c := open()
			_, _, err := c.AttachPhoto(ctx, "r1", photo.File{ContentType: "application/pdf", Reader: png().Reader})
			Expect(err).To(MatchError(photo.ErrUnsupportedType))
			Expect(c.Snapshot().Record.PhotoRefs["r1"]).To(BeEmpty())
		})
	})

	Describe("Submit", func() {
		It("refuses an incomplete report without calling the backend", func() {
			c := open()
			report, err := c.Submit(ctx)
			Expect(err).To(MatchError(form.ErrIncomplete))

			var incomplete *form.IncompleteError
			Expect(errors.As(err, &incomplete)).To(BeTrue())
			Expect(incomplete.Report).To(Equal(report))
			Expect(report.MissingSummary).To(BeTrue())
			Expect(submitter.calls()).To(BeZero())
			Expect(c.State()).To(Equal(form.StateEditing))
		})

		It("submits, clears the stores and locks the form", func() {
			c := open()
			Expect(fillComplete(ctx, c)).To(Succeed())
			c.Close(ctx)
			_, ok := stored()
			Expect(ok).To(BeTrue())
			refs := c.Snapshot().Record.Photos("r9")
			Expect(refs).To(HaveLen(1))

			report, err := c.Submit(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.IsComplete).To(BeTrue())
			Expect(c.State()).To(Equal(form.StateSubmitted))
			Expect(c.Done()).To(BeTrue())

			_, ok = stored()
			Expect(ok).To(BeFalse())
			_, ok = photos.Get(ctx, refs[0])
			Expect(ok).To(BeFalse())

			_, err = c.SetPF("r1", model.PFFail)
			Expect(err).To(MatchError(form.ErrSubmitted))
			_, err = c.Submit(ctx)
			Expect(err).To(MatchError(form.ErrSubmitted))
			Expect(submitter.calls()).To(Equal(1))
		})

		It("sends resolved photos and mapped rows", func() {
			c := open()
			Expect(fillComplete(ctx, c)).To(Succeed())
			_, err := c.Submit(ctx)
			Expect(err).NotTo(HaveOccurred())

			p := submitter.last()
			Expect(p.FormType).To(Equal(checklist.AC))
			Expect(p.Summary).To(Equal("all fine"))
			Expect(p.Photos).NotTo(BeEmpty())
			data, err := base64.StdEncoding.DecodeString(p.Photos[0].Data)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(HavePrefix("\x89PNG"))
			Expect(p.Rows[8]).To(HaveKeyWithValue("key", "r9"))
			Expect(p.Rows[8]["values"]).To(HaveKeyWithValue("l1_n", 1.5))
		})

		It("refuses to submit when a required photo vanished from the store", func() {
			c := open()
			Expect(fillComplete(ctx, c)).To(Succeed())
			Expect(c.Report().IsComplete).To(BeTrue())
			for _, ref := range c.Snapshot().Record.Photos("r9") {
				photos.Delete(ctx, ref)
			}

			report, err := c.Submit(ctx)
			Expect(err).To(MatchError(form.ErrIncomplete))
			Expect(report.IsComplete).To(BeFalse())
			Expect(report.MissingPhoto).To(ConsistOf("r9"))
			Expect(submitter.calls()).To(BeZero())
			Expect(c.State()).To(Equal(form.StateEditing))

			snap := c.Snapshot()
			Expect(snap.Record.Photos("r9")).To(BeEmpty())
			Expect(snap.Report.MissingPhoto).To(ConsistOf("r9"))

			c.Close(ctx)
			rec, ok := stored()
			Expect(ok).To(BeTrue())
			Expect(rec.Photos("r9")).To(BeEmpty())
		})

		It("returns to editing and keeps the draft when the backend fails", func() {
			submitter.err = errors.New("502 bad gateway")
			c := open()
			Expect(fillComplete(ctx, c)).To(Succeed())
			c.Close(ctx)

			_, err := c.Submit(ctx)
			Expect(err).To(MatchError(ContainSubstring("502 bad gateway")))
			Expect(c.State()).To(Equal(form.StateEditing))

			rec, ok := stored()
			Expect(ok).To(BeTrue())
			Expect(rec.Summary).To(Equal("all fine"))

			_, err = c.SetSummary("retrying")
			Expect(err).NotTo(HaveOccurred())
		})

		It("does not resurrect the draft from a save pending at submit time", func() {
			c := open()
			Expect(fillComplete(ctx, c)).To(Succeed())
			_, err := c.Submit(ctx)
			Expect(err).NotTo(HaveOccurred())

			mock.Add(time.Second)
			Consistently(func() bool { _, ok := stored(); return ok }, "50ms").Should(BeFalse())
		})
	})

	Describe("Discard", func() {
		It("clears draft and photos and cancels the pending save", func() {
			c := open()
			ref, _, err := c.AttachPhoto(ctx, "r1", png())
			Expect(err).NotTo(HaveOccurred())
			c.Close(ctx)
			_, err = c.SetSummary("about to go")
			Expect(err).NotTo(HaveOccurred())

			Expect(c.Discard(ctx)).To(Succeed())
			Expect(c.State()).To(Equal(form.StateDiscarded))
			mock.Add(time.Second)
			Consistently(func() bool { _, ok := stored(); return ok }, "50ms").Should(BeFalse())
			_, ok := photos.Get(ctx, ref)
			Expect(ok).To(BeFalse())

			_, err = c.SetSummary("too late")
			Expect(err).To(MatchError(form.ErrDiscarded))
		})
	})
})

func checklistRecord(formType string) model.DraftRecord {
	schema, err := checklist.Get(formType)
	Expect(err).NotTo(HaveOccurred())
	return schema.EmptyRecord()
}
