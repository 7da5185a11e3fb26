package scanning

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EnvCredential", func() {
	const envVar = "RECEIPT_SCANNER_TEST_KEY"

	AfterEach(func() {
		os.Unsetenv(envVar)
	})

	It("prefers the flag value", func() {
		os.Setenv(envVar, "from-env")
		Expect(EnvCredential("from-flag", envVar)()).To(Equal("from-flag"))
	})

	It("reads the environment at call time", func() {
		cred := EnvCredential("", envVar)
		Expect(cred()).To(BeEmpty())

		os.Setenv(envVar, " late-key ")
		Expect(cred()).To(Equal("late-key"))
	})

	It("treats a nil credential as missing", func() {
		var cred Credential
		Expect(cred.value()).To(BeEmpty())
	})
})
