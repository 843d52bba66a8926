package form_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mbolis/pmdraft/checklist"
	"github.com/mbolis/pmdraft/form"
	"github.com/mbolis/pmdraft/model"
)

var _ = Describe("DefaultMappers", func() {
	mappers := form.DefaultMappers()

	It("covers every form type", func() {
		for _, t := range checklist.Types() {
			Expect(mappers).To(HaveKey(t))
		}
	})

	It("flattens the grouped CB-BOX measurements into the row", func() {
		schema, _ := checklist.Get(checklist.CBBox)
		rec := schema.EmptyRecord()
		rec.Rows["r9"] = model.RowState{PF: model.PFPass, Values: map[string]string{
			"m9_0": "12.5", "m9_1": "13", "m9_2": "n/r", "m9_3": "1", "m9_4": "2", "m9_5": "3",
		}}

		p := mappers[checklist.CBBox](schema, rec, nil)
		row := p.Rows[8]
		Expect(row).To(HaveKeyWithValue("key", "r9"))
		Expect(row).To(HaveKeyWithValue("m9_0", 12.5))
		Expect(row).To(HaveKeyWithValue("m9_2", "n/r"))
		Expect(row).NotTo(HaveKey("values"))
	})

	It("reports N/A items as NA without readings", func() {
		schema, _ := checklist.Get(checklist.AC)
		rec := schema.EmptyRecord()
		rec.PhotoRefs["r9"] = []model.PhotoRef{{NA: true}}

		p := mappers[checklist.AC](schema, rec, nil)
		Expect(p.Rows[8]).To(HaveKeyWithValue("pf", model.PFNA))
		Expect(p.Rows[8]).NotTo(HaveKey("values"))
		Expect(p.Rows).To(HaveLen(len(schema.Items)))
	})

	It("uses lower case status names for station reports", func() {
		schema, _ := checklist.Get(checklist.Station)
		rec := schema.EmptyRecord()
		first := schema.Items[0]
		rec.Rows[first.Key] = model.RowState{PF: model.PFFail, Remark: "rust"}
		rec.Summary = "  follow up  "

		p := mappers[checklist.Station](schema, rec, nil)
		Expect(p.FormType).To(Equal(checklist.Station))
		Expect(p.Summary).To(Equal("follow up"))
		Expect(p.Rows[0]).To(HaveKeyWithValue("item", first.No))
		Expect(p.Rows[0]).To(HaveKeyWithValue("status", "fail"))
	})
})
