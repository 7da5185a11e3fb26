package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Extractor", func() {
	var (
		extractor *Extractor
		line      string
		fields    ItemFields
		ok        bool
	)

	BeforeEach(func() {
		extractor = NewExtractor()
	})

	JustBeforeEach(func() {
		fields, ok = extractor.Extract(line)
	})

	When("the line has no quantity token", func() {
		BeforeEach(func() {
			line = "FEHÉR KENYÉR          250 Ft"
		})

		It("accepts the line", func() {
			Expect(ok).To(BeTrue())
		})

		It("defaults to one piece", func() {
			Expect(fields.Name).To(Equal("FEHÉR KENYÉR"))
			Expect(fields.Quantity).To(Equal(1.0))
			Expect(fields.Unit).To(Equal("piece"))
			Expect(fields.Price).To(Equal(250))
		})

		It("assigns a category", func() {
			Expect(fields.Category).To(Equal(Bakery))
		})
	})

	When("the quantity is glued to the unit", func() {
		BeforeEach(func() {
			line = "ALMA 2KG             600 Ft"
		})

		It("splits the quantity out of the name", func() {
			Expect(ok).To(BeTrue())
			Expect(fields.Name).To(Equal("ALMA"))
			Expect(fields.Quantity).To(Equal(2.0))
			Expect(fields.Unit).To(Equal("kg"))
			Expect(fields.Price).To(Equal(600))
		})
	})

	When("the quantity has a decimal comma", func() {
		BeforeEach(func() {
			line = "BANÁN 1,5 KG 399 Ft"
		})

		It("parses a fractional quantity", func() {
			Expect(ok).To(BeTrue())
			Expect(fields.Name).To(Equal("BANÁN"))
			Expect(fields.Quantity).To(Equal(1.5))
			Expect(fields.Unit).To(Equal("kg"))
			Expect(fields.Price).To(Equal(399))
		})
	})

	When("the line is a multiplied entry", func() {
		BeforeEach(func() {
			line = "KIFLI 3 db x 45 Ft 135 Ft"
		})

		It("keeps the unit price rather than the line total", func() {
			Expect(ok).To(BeTrue())
			Expect(fields.Name).To(Equal("KIFLI"))
			Expect(fields.Quantity).To(Equal(3.0))
			Expect(fields.Unit).To(Equal("piece"))
			Expect(fields.Price).To(Equal(45))
		})
	})

	When("the line carries a promotion marker", func() {
		BeforeEach(func() {
			line = "NATÚR JOGHURT AKCIÓ 189 Ft"
		})

		It("drops the marker from the name", func() {
			Expect(ok).To(BeTrue())
			Expect(fields.Name).To(Equal("NATÚR JOGHURT"))
			Expect(fields.Price).To(Equal(189))
			Expect(fields.Category).To(Equal(Dairy))
		})
	})

	When("the price is glued to the name", func() {
		BeforeEach(func() {
			line = "PAPRIKA199"
		})

		It("falls back to the bare pattern", func() {
			Expect(ok).To(BeTrue())
			Expect(fields.Name).To(Equal("PAPRIKA"))
			Expect(fields.Price).To(Equal(199))
		})
	})

	When("the name is lower case", func() {
		BeforeEach(func() {
			line = "óvodás túró rudi 159 Ft"
		})

		It("upper-cases the display name", func() {
			Expect(fields.Name).To(Equal("ÓVODÁS TÚRÓ RUDI"))
		})
	})

	DescribeTable("rejected lines",
		func(text string) {
			_, accepted := extractor.Extract(text)
			Expect(accepted).To(BeFalse())
		},
		Entry("payment line", "KÉSZPÉNZ 5000 Ft"),
		Entry("total keyword", "ÖSSZESEN 5000 Ft"),
		Entry("tax line", "ÁFA 27% 500 Ft"),
		Entry("price above the plausible range", "LAPTOP 60000 Ft"),
		Entry("zero price", "ZACSKÓ 0 Ft"),
		Entry("name too short", "AB 100 Ft"),
		Entry("name without letters", "12345 100 Ft"),
		Entry("no price", "FEHÉR KENYÉR"),
	)

	When("a custom strategy list is given", func() {
		BeforeEach(func() {
			extractor = NewExtractorWithStrategies(nil)
			line = "FEHÉR KENYÉR 250 Ft"
		})

		It("matches nothing without strategies", func() {
			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("CleanName", func() {
	It("removes residual quantity tokens and edge punctuation", func() {
		Expect(CleanName("  - sajt 2x 25 dkg. *")).To(Equal("SAJT"))
	})

	It("collapses inner whitespace", func() {
		Expect(CleanName("fehér    kenyér")).To(Equal("FEHÉR KENYÉR"))
	})
})
