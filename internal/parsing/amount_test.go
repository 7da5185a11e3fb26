package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseAmount", func() {
	DescribeTable("localized amounts",
		func(token string, expected int) {
			amount, ok := ParseAmount(token)
			Expect(ok).To(BeTrue())
			Expect(amount).To(Equal(expected))
		},
		Entry("plain digits", "5250", 5250),
		Entry("space thousands separator", "5 250", 5250),
		Entry("dot thousands separator", "5.250", 5250),
		Entry("comma decimals", "250,00", 250),
		Entry("half rounds up", "12,50", 13),
		Entry("dot decimal", "1.4", 1),
		Entry("grouped with decimals", "1 299,90", 1300),
	)

	It("rejects an empty token", func() {
		_, ok := ParseAmount("  ")
		Expect(ok).To(BeFalse())
	})

	It("rejects a token without digits", func() {
		_, ok := ParseAmount("Ft")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("trailingAmount", func() {
	It("reads an amount followed by a currency marker", func() {
		amount, ok := trailingAmount("FEHÉR KENYÉR          250 Ft")
		Expect(ok).To(BeTrue())
		Expect(amount).To(Equal(250))
	})

	It("accepts the ,- suffix", func() {
		amount, ok := trailingAmount("KIFLI 45,-")
		Expect(ok).To(BeTrue())
		Expect(amount).To(Equal(45))
	})

	It("requires whitespace before the amount", func() {
		_, ok := trailingAmount("PAPRIKA199")
		Expect(ok).To(BeFalse())
	})
})
