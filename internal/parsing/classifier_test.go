package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classify", func() {
	var (
		line   string
		index  int
		found  Found
		result Classification
	)

	BeforeEach(func() {
		index = 0
		found = Found{}
	})

	JustBeforeEach(func() {
		result = Classify(line, index, found)
	})

	When("the line is a total", func() {
		BeforeEach(func() {
			line = "ÖSSZESEN:           5250 Ft"
			index = 8
		})

		It("is a total candidate, not an item", func() {
			Expect(result.Kind).To(Equal(TotalCandidate))
		})

		It("carries the declared amount", func() {
			Expect(result.Amount).To(Equal(5250))
		})
	})

	When("the amount comes before the total keyword", func() {
		BeforeEach(func() {
			line = "5 250 Ft ÖSSZESEN"
			index = 8
		})

		It("is a total candidate", func() {
			Expect(result.Kind).To(Equal(TotalCandidate))
			Expect(result.Amount).To(Equal(5250))
		})
	})

	When("a total was already found", func() {
		BeforeEach(func() {
			line = "BANKKÁRTYA 5250 Ft"
			index = 9
			found.Total = true
		})

		It("falls through to an item candidate", func() {
			Expect(result.Kind).To(Equal(ItemCandidate))
		})
	})

	When("a card payment line carries the total", func() {
		BeforeEach(func() {
			line = "BANKKÁRTYA 5250 Ft"
			index = 9
		})

		It("is a total candidate", func() {
			Expect(result.Kind).To(Equal(TotalCandidate))
			Expect(result.Amount).To(Equal(5250))
		})
	})

	When("a total keyword is the tail of a product word", func() {
		BeforeEach(func() {
			line = "AJÁNDÉKKÁRTYA 2000 Ft"
			index = 6
		})

		It("is an item candidate", func() {
			Expect(result.Kind).To(Equal(ItemCandidate))
		})
	})

	When("a retailer name is in the first lines", func() {
		BeforeEach(func() {
			line = "SPAR   MAGYARORSZÁG KFT."
			index = 1
		})

		It("is a store candidate", func() {
			Expect(result.Kind).To(Equal(StoreCandidate))
		})

		It("collapses whitespace in the store name", func() {
			Expect(result.Value).To(Equal("SPAR MAGYARORSZÁG KFT."))
		})
	})

	When("a retailer name appears late in the document", func() {
		BeforeEach(func() {
			line = "SPAR MAGYARORSZÁG KFT."
			index = 7
		})

		It("is not a store candidate", func() {
			Expect(result.Kind).To(Equal(Noise))
		})
	})

	When("a retailer name has one misread letter", func() {
		BeforeEach(func() {
			line = "TESKO GLOBAL ZRT."
		})

		It("is still a store candidate", func() {
			Expect(result.Kind).To(Equal(StoreCandidate))
		})
	})

	When("a priced product word is one letter off a retailer", func() {
		BeforeEach(func() {
			line = "PENNE TÉSZTA 500G 399 Ft"
			index = 2
		})

		It("is an item candidate, not a store", func() {
			Expect(result.Kind).To(Equal(ItemCandidate))
		})
	})

	When("the store was already found", func() {
		BeforeEach(func() {
			line = "LIDL MAGYARORSZÁG"
			index = 2
			found.Store = true
		})

		It("is not a store candidate again", func() {
			Expect(result.Kind).To(Equal(Noise))
		})
	})

	When("the line holds a date", func() {
		BeforeEach(func() {
			line = "2024.03.15 14:32"
			index = 9
		})

		It("is a date candidate normalized to ISO form", func() {
			Expect(result.Kind).To(Equal(DateCandidate))
			Expect(result.Value).To(Equal("2024-03-15"))
		})
	})

	DescribeTable("date shapes",
		func(text, expected string) {
			c := Classify(text, 9, Found{})
			Expect(c.Kind).To(Equal(DateCandidate))
			Expect(c.Value).To(Equal(expected))
		},
		Entry("day first with dots", "15.03.2024", "2024-03-15"),
		Entry("spaced dots", "2024. 03. 15.", "2024-03-15"),
		Entry("dashes", "Dátum: 2024-3-5", "2024-03-05"),
		Entry("slashes", "05/11/2023", "2023-11-05"),
	)

	It("ignores impossible calendar dates", func() {
		Expect(Classify("2024.02.30", 9, Found{}).Kind).To(Equal(Noise))
	})

	DescribeTable("noise",
		func(text string) {
			Expect(Classify(text, 3, Found{}).Kind).To(Equal(Noise))
		},
		Entry("separator", "-----------------"),
		Entry("time", "14:32"),
		Entry("barcode", "5998765432109"),
		Entry("too short", "Ft"),
		Entry("document header", "NEM ADÓÜGYI BIZONYLAT"),
		Entry("receipt header", "NYUGTA"),
		Entry("footer", "KÖSZÖNJÜK A VÁSÁRLÁST!"),
		Entry("tax id", "ADÓSZÁM: 12345678-2-44"),
		Entry("cashier", "PÉNZTÁROS: 03"),
		Entry("change", "VISSZAJÁRÓ 0 Ft"),
		Entry("plain text", "VÁRJON A SORRA"),
	)

	When("the line is a product with a price", func() {
		BeforeEach(func() {
			line = "FEHÉR KENYÉR          250 Ft"
			index = 5
			found.Store = true
		})

		It("is an item candidate", func() {
			Expect(result.Kind).To(Equal(ItemCandidate))
		})
	})
})

var _ = Describe("LineKind", func() {
	It("has readable names", func() {
		Expect(ItemCandidate.String()).To(Equal("item"))
		Expect(LineKind(42).String()).To(Equal("LineKind(42)"))
	})
})
