package scanning

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

type fakeProvider struct {
	name   string
	data   receipt.ReceiptData
	err    error
	block  bool
	panics bool
	onCall func()
	calls  int
	hints  []string
	closed bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Recognize(ctx context.Context, _ Image, hints []string) (receipt.ReceiptData, error) {
	f.calls++
	f.hints = hints
	if f.onCall != nil {
		f.onCall()
	}
	if f.panics {
		panic("provider bug")
	}
	if f.block {
		<-ctx.Done()
		return receipt.ReceiptData{}, ctx.Err()
	}
	return f.data.Clone(), f.err
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

type fakeHints []string

func (h fakeHints) RecentHints(n int) []string {
	if len(h) > n {
		return h[len(h)-n:]
	}
	return h
}

func recordWith(names ...string) receipt.ReceiptData {
	data := receipt.ReceiptData{Store: "TESCO", Date: "2024-03-15"}
	for _, n := range names {
		data.Items = append(data.Items, receipt.NewItem(n, 100))
	}
	return data
}

var _ = Describe("Orchestrator", func() {
	var (
		structured *fakeProvider
		ocr        *fakeProvider
		hints      HintSource
		cfg        OrchestratorConfig
		now        time.Time
		orch       *Orchestrator
		img        Image
		ctx        context.Context
		result     Result
	)

	BeforeEach(func() {
		structured = &fakeProvider{name: "structured", data: recordWith("FEHÉR KENYÉR")}
		ocr = &fakeProvider{name: "ocr", data: recordWith("ALMA", "KÖRTE")}
		hints = fakeHints{"A → B", "C → D"}
		cfg = OrchestratorConfig{Timeout: time.Second}
		now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
		img = Image{Data: []byte("image-bytes"), ContentType: "image/png", Ref: "r.png"}
		ctx = context.Background()
	})

	JustBeforeEach(func() {
		orch = NewOrchestratorWithDeps([]Provider{structured, ocr}, hints, cfg, func() time.Time { return now }, quietLogger)
		result = orch.Recognize(ctx, img)
	})

	When("the caller cancels while the first provider runs", func() {
		BeforeEach(func() {
			var cancel context.CancelFunc
			ctx, cancel = context.WithCancel(context.Background())
			DeferCleanup(cancel)
			structured.block = true
			structured.onCall = cancel
		})

		It("does not call the remaining providers", func() {
			Expect(structured.calls).To(Equal(1))
			Expect(ocr.calls).To(BeZero())
		})

		It("records the remaining providers as not attempted", func() {
			Expect(result.Attempts).To(HaveLen(2))
			Expect(result.Attempts[0].Outcome).To(Equal(OutcomeError))
			Expect(result.Attempts[1].Provider).To(Equal("ocr"))
			Expect(result.Attempts[1].Outcome).To(Equal(OutcomeNotAttempted))
			Expect(result.Warnings).To(ConsistOf(WarningCanceled))
		})

		It("still returns the placeholder record", func() {
			Expect(result.Mock).To(BeTrue())
			Expect(result.Data.Store).To(Equal(MockStore))
		})
	})

	When("the caller context is already done", func() {
		BeforeEach(func() {
			var cancel context.CancelFunc
			ctx, cancel = context.WithCancel(context.Background())
			cancel()
		})

		It("calls no provider", func() {
			Expect(structured.calls).To(BeZero())
			Expect(ocr.calls).To(BeZero())
			Expect(result.Attempts).To(HaveLen(2))
			Expect(result.Mock).To(BeTrue())
		})
	})

	When("the structured provider succeeds", func() {
		It("short-circuits on its result", func() {
			Expect(result.Provider).To(Equal("structured"))
			Expect(result.Mock).To(BeFalse())
			Expect(result.Data.Items).To(HaveLen(1))
			Expect(ocr.calls).To(BeZero())
		})

		It("records one successful attempt", func() {
			Expect(result.Attempts).To(HaveLen(1))
			Expect(result.Attempts[0].Outcome).To(Equal(OutcomeSuccess))
		})

		It("passes the recent hints", func() {
			Expect(structured.hints).To(Equal([]string{"A → B", "C → D"}))
		})

		It("applies the total invariant", func() {
			Expect(result.Data.Total).To(Equal(100))
		})
	})

	When("the structured provider fails and the OCR provider succeeds", func() {
		BeforeEach(func() {
			structured.err = fmt.Errorf("calling api: %w", ErrNetworkFailure)
		})

		It("returns the OCR result, not the mock", func() {
			Expect(result.Provider).To(Equal("ocr"))
			Expect(result.Mock).To(BeFalse())
			Expect(result.Data.Items).To(HaveLen(2))
			Expect(result.Data.Items[0].Name).To(Equal("ALMA"))
		})

		It("records both attempts in order", func() {
			Expect(result.Attempts).To(HaveLen(2))
			Expect(result.Attempts[0].Provider).To(Equal("structured"))
			Expect(result.Attempts[0].Outcome).To(Equal(OutcomeError))
			Expect(result.Attempts[0].Error).To(ContainSubstring("network failure"))
			Expect(result.Attempts[1].Outcome).To(Equal(OutcomeSuccess))
		})
	})

	When("the structured provider returns no items", func() {
		BeforeEach(func() {
			structured.data = receipt.ReceiptData{}
		})

		It("counts it as empty and falls through", func() {
			Expect(result.Attempts[0].Outcome).To(Equal(OutcomeEmpty))
			Expect(result.Provider).To(Equal("ocr"))
		})
	})

	When("both providers fail", func() {
		BeforeEach(func() {
			structured.err = fmt.Errorf("no line items: %w", ErrEmptyResult)
			ocr.err = errors.New("boom")
		})

		It("returns the deterministic mock record", func() {
			Expect(result.Mock).To(BeTrue())
			Expect(result.Provider).To(Equal("mock"))
			Expect(result.Data.Store).To(Equal(MockStore))
			Expect(result.Data.Date).To(Equal("2024-06-01"))
			Expect(result.Data.Items).To(HaveLen(4))
			Expect(result.Data.Total).To(Equal(receipt.ItemsTotal(result.Data.Items)))
		})

		It("attempts each provider exactly once", func() {
			Expect(structured.calls).To(Equal(1))
			Expect(ocr.calls).To(Equal(1))
		})

		It("does not warn about credentials", func() {
			Expect(result.Warnings).To(BeEmpty())
		})
	})

	When("no provider is configured", func() {
		BeforeEach(func() {
			structured.err = ErrConfigMissing
			ocr.err = fmt.Errorf("vision api key: %w", ErrConfigMissing)
		})

		It("returns the mock with a warning", func() {
			Expect(result.Mock).To(BeTrue())
			Expect(result.Attempts[0].Outcome).To(Equal(OutcomeSkipped))
			Expect(result.Warnings).To(ConsistOf(WarningNoCredentials))
		})
	})

	When("a provider hangs", func() {
		BeforeEach(func() {
			cfg.Timeout = 20 * time.Millisecond
			structured.block = true
		})

		It("times it out and moves on", func() {
			Expect(result.Attempts[0].Outcome).To(Equal(OutcomeError))
			Expect(result.Attempts[0].Error).To(ContainSubstring("deadline exceeded"))
			Expect(result.Provider).To(Equal("ocr"))
		})
	})

	When("a provider panics", func() {
		BeforeEach(func() {
			structured.panics = true
		})

		It("treats it as a failure", func() {
			Expect(result.Attempts[0].Outcome).To(Equal(OutcomeError))
			Expect(result.Attempts[0].Error).To(ContainSubstring("panicked"))
			Expect(result.Provider).To(Equal("ocr"))
		})
	})

	When("there is no hint source", func() {
		BeforeEach(func() {
			hints = nil
		})

		It("passes no hints", func() {
			Expect(structured.hints).To(BeNil())
		})
	})

	When("caching is enabled", func() {
		BeforeEach(func() {
			cfg.CacheTTL = time.Minute
		})

		It("serves the same image from the cache with fresh ids", func() {
			again := orch.Recognize(context.Background(), img)
			Expect(structured.calls).To(Equal(1))
			Expect(again.Cached).To(BeTrue())
			Expect(again.Provider).To(Equal("structured"))
			Expect(again.Data.Items[0].Name).To(Equal(result.Data.Items[0].Name))
			Expect(again.Data.Items[0].ID).NotTo(Equal(result.Data.Items[0].ID))
		})

		It("calls the providers again for a different image", func() {
			orch.Recognize(context.Background(), Image{Data: []byte("other")})
			Expect(structured.calls).To(Equal(2))
		})

		It("does not cache the mock", func() {
			structured.err = errors.New("down")
			ocr.err = errors.New("down")
			orch.Recognize(context.Background(), Image{Data: []byte("other")})
			second := orch.Recognize(context.Background(), Image{Data: []byte("other")})
			Expect(second.Cached).To(BeFalse())
			Expect(second.Mock).To(BeTrue())
		})
	})

	Describe("Close", func() {
		It("closes every provider", func() {
			Expect(orch.Close()).To(Succeed())
			Expect(structured.closed).To(BeTrue())
			Expect(ocr.closed).To(BeTrue())
		})
	})
})

var _ = Describe("MockReceipt", func() {
	It("has constant content and fresh ids", func() {
		now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
		a, b := MockReceipt(now), MockReceipt(now)
		Expect(a.Total).To(Equal(250 + 350 + 600 + 800))
		Expect(len(a.Items)).To(Equal(len(b.Items)))
		for i := range a.Items {
			Expect(a.Items[i].Name).To(Equal(b.Items[i].Name))
			Expect(a.Items[i].ID).NotTo(Equal(b.Items[i].ID))
		}
	})
})
