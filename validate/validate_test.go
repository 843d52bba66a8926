package validate_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mbolis/pmdraft/checklist"
	"github.com/mbolis/pmdraft/model"
	"github.com/mbolis/pmdraft/validate"
)

var tenVolts = []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8", "v9"}

var schema = model.Schema{
	FormType: "test",
	Remarks:  model.RemarkOnFail,
	Items: []model.ChecklistItem{
		{No: 1, Key: "r1", Kind: model.KindSimple, HasPhoto: true},
		{No: 2, Key: "r2", Kind: model.KindSimple},
		{No: 3, Key: "r3", Kind: model.KindMeasure, Fields: tenVolts},
	},
}

func filled() model.DraftRecord {
	values := map[string]string{}
	for _, f := range tenVolts {
		values[f] = "230"
	}
	return model.DraftRecord{
		Rows: map[string]model.RowState{
			"r1": {PF: model.PFPass},
			"r2": {PF: model.PFPass},
			"r3": {PF: model.PFPass, Values: values},
		},
		Summary:   "all good",
		SummaryPF: model.PFPass,
		PhotoRefs: map[string][]model.PhotoRef{"r1": {{ID: "p1"}}},
	}
}

func allNA(s model.Schema) model.DraftRecord {
	rec := s.EmptyRecord()
	for _, it := range s.Items {
		row := rec.Rows[it.Key]
		row.PF = model.PFNA
		rec.Rows[it.Key] = row
	}
	rec.Summary = "not in service"
	rec.SummaryPF = model.PFNA
	return rec
}

var _ = Describe("Evaluate", func() {
	It("reports a fully answered record as complete", func() {
		report := validate.Evaluate(schema, filled())
		Expect(report.IsComplete).To(BeTrue())
		Expect(report.Messages()).To(BeEmpty())
	})

	It("reports everything missing on an empty record", func() {
		report := validate.Evaluate(schema, schema.EmptyRecord())
		Expect(report.IsComplete).To(BeFalse())
		Expect(report.MissingPhoto).To(Equal([]string{"r1"}))
		Expect(report.MissingInput).To(Equal([]string{"r3"}))
		Expect(report.MissingPF).To(Equal([]string{"r1", "r2", "r3"}))
		Expect(report.MissingRemark).To(BeEmpty())
		Expect(report.MissingSummary).To(BeTrue())
		Expect(report.MissingSummaryPF).To(BeTrue())
	})

	It("is idempotent", func() {
		rec := filled()
		rec.Rows["r2"] = model.RowState{PF: model.PFFail}
		Expect(validate.Evaluate(schema, rec)).To(Equal(validate.Evaluate(schema, rec)))
	})

	It("flags a measure item with one of ten readings empty", func() {
		rec := filled()
		rec.Rows["r3"].Values["v7"] = ""

		report := validate.Evaluate(schema, rec)
		Expect(report.MissingInput).To(Equal([]string{"r3"}))
		Expect(report.IsComplete).To(BeFalse())
	})

	It("treats whitespace as empty", func() {
		rec := filled()
		rec.Rows["r3"].Values["v0"] = "  "
		rec.Summary = "\t"

		report := validate.Evaluate(schema, rec)
		Expect(report.MissingInput).To(Equal([]string{"r3"}))
		Expect(report.MissingSummary).To(BeTrue())
	})

	Context("photos", func() {
		It("clears the missing photo once one is attached", func() {
			rec := filled()
			rec.PhotoRefs = map[string][]model.PhotoRef{}
			Expect(validate.Evaluate(schema, rec).MissingPhoto).To(Equal([]string{"r1"}))

			rec.PhotoRefs["r1"] = append(rec.PhotoRefs["r1"], model.PhotoRef{ID: "new"})
			Expect(validate.Evaluate(schema, rec).MissingPhoto).To(BeEmpty())
		})

		It("accepts an NA photo slot in place of a photo and a PF selection", func() {
			rec := filled()
			rec.Rows["r1"] = model.RowState{}
			rec.PhotoRefs = map[string][]model.PhotoRef{"r1": {{NA: true}}}

			report := validate.Evaluate(schema, rec)
			Expect(report.MissingPhoto).To(BeEmpty())
			Expect(report.MissingPF).To(BeEmpty())
			Expect(report.IsComplete).To(BeTrue())
		})
	})

	Context("remarks", func() {
		It("requires a remark on FAIL under the on_fail policy", func() {
			rec := filled()
			rec.Rows["r2"] = model.RowState{PF: model.PFFail}
			Expect(validate.Evaluate(schema, rec).MissingRemark).To(Equal([]string{"r2"}))

			rec.Rows["r2"] = model.RowState{PF: model.PFFail, Remark: "loose cover"}
			Expect(validate.Evaluate(schema, rec).MissingRemark).To(BeEmpty())
		})

		It("requires a remark everywhere under the always policy", func() {
			s := schema
			s.Remarks = model.RemarkAlways
			Expect(validate.Evaluate(s, filled()).MissingRemark).To(Equal([]string{"r1", "r2", "r3"}))
		})

		It("honours a per item requirement under the never policy", func() {
			s := model.Schema{
				Remarks: model.RemarkNever,
				Items:   []model.ChecklistItem{{No: 1, Key: "r1", Kind: model.KindSimple, RemarkRequired: true}},
			}
			rec := model.DraftRecord{Rows: map[string]model.RowState{"r1": {PF: model.PFPass}}, Summary: "x", SummaryPF: model.PFPass}
			Expect(validate.Evaluate(s, rec).MissingRemark).To(Equal([]string{"r1"}))
		})
	})

	It("rejects unknown PF values", func() {
		rec := filled()
		rec.Rows["r2"] = model.RowState{PF: "MAYBE"}
		rec.SummaryPF = "MAYBE"

		report := validate.Evaluate(schema, rec)
		Expect(report.MissingPF).To(Equal([]string{"r2"}))
		Expect(report.MissingSummaryPF).To(BeTrue())
	})

	It("never completes an item of unknown kind unless it is N/A", func() {
		s := model.Schema{Items: []model.ChecklistItem{{No: 1, Key: "x", Kind: "photo-only"}}}
		rec := model.DraftRecord{Rows: map[string]model.RowState{"x": {PF: model.PFPass}}, Summary: "x", SummaryPF: model.PFPass}
		Expect(validate.Evaluate(s, rec).MissingInput).To(Equal([]string{"x"}))

		rec.Rows["x"] = model.RowState{PF: model.PFNA}
		Expect(validate.Evaluate(s, rec).IsComplete).To(BeTrue())
	})

	DescribeTable("every item N/A plus a summary is complete",
		func(formType string) {
			s, err := checklist.Get(formType)
			Expect(err).ToNot(HaveOccurred())
			Expect(validate.Evaluate(s, allNA(s)).IsComplete).To(BeTrue())
		},
		Entry("ac", checklist.AC),
		Entry("dc", checklist.DC),
		Entry("ccb", checklist.CCB),
		Entry("cbbox", checklist.CBBox),
		Entry("station", checklist.Station),
		Entry("charger", checklist.Charger),
	)
})

var _ = Describe("Progress", func() {
	It("counts finished items", func() {
		rec := filled()
		rec.Rows["r2"] = model.RowState{}

		done, total := validate.Progress(schema, rec)
		Expect(done).To(Equal(2))
		Expect(total).To(Equal(3))
	})
})
