package ozonapi_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ozon-tools/ozonapi"
)

var _ = Describe("Backoff", func() {
	var cfg ozonapi.RetryConfig

	BeforeEach(func() {
		cfg = ozonapi.RetryConfig{
			BaseDelay:       time.Second,
			MaxDelay:        30 * time.Second,
			ExponentialBase: 2.0,
		}
	})

	Describe("Delay", func() {
		It("grows exponentially from the base delay", func() {
			Expect(cfg.Delay(1)).To(Equal(1 * time.Second))
			Expect(cfg.Delay(2)).To(Equal(2 * time.Second))
			Expect(cfg.Delay(3)).To(Equal(4 * time.Second))
			Expect(cfg.Delay(5)).To(Equal(16 * time.Second))
		})

		It("caps the delay at MaxDelay", func() {
			Expect(cfg.Delay(6)).To(Equal(30 * time.Second))
			Expect(cfg.Delay(50)).To(Equal(30 * time.Second))
		})

		It("is monotonically non-decreasing without jitter", func() {
			prev := time.Duration(0)
			for attempt := 1; attempt <= 20; attempt++ {
				d := cfg.Delay(attempt)
				Expect(d).To(BeNumerically(">=", prev))
				prev = d
			}
		})

		It("treats attempts below one as the first attempt", func() {
			Expect(cfg.Delay(0)).To(Equal(cfg.Delay(1)))
			Expect(cfg.Delay(-3)).To(Equal(cfg.Delay(1)))
		})

		It("supports non-doubling growth factors", func() {
			cfg.ExponentialBase = 3.0
			Expect(cfg.Delay(1)).To(Equal(1 * time.Second))
			Expect(cfg.Delay(2)).To(Equal(3 * time.Second))
			Expect(cfg.Delay(3)).To(Equal(9 * time.Second))
		})

		It("defaults the growth factor when unset", func() {
			cfg.ExponentialBase = 0
			Expect(cfg.Delay(2)).To(Equal(2 * time.Second))
		})

		Context("with jitter enabled", func() {
			BeforeEach(func() {
				cfg.Jitter = true
			})

			It("stays within [d/2, d] for every attempt", func() {
				for attempt := 1; attempt <= 8; attempt++ {
					unjittered := ozonapi.RetryConfig{
						BaseDelay:       cfg.BaseDelay,
						MaxDelay:        cfg.MaxDelay,
						ExponentialBase: cfg.ExponentialBase,
					}.Delay(attempt)

					for i := 0; i < 100; i++ {
						d := cfg.Delay(attempt)
						Expect(d).To(BeNumerically(">=", unjittered/2))
						Expect(d).To(BeNumerically("<=", unjittered))
					}
				}
			})
		})
	})

	Describe("NewBackoff", func() {
		It("advances the attempt on every Next call", func() {
			backoff := ozonapi.NewBackoff(cfg)

			for attempt := 1; attempt <= 7; attempt++ {
				d, stop := backoff.Next()
				Expect(stop).To(BeFalse())
				Expect(d).To(Equal(cfg.Delay(attempt)))
			}
		})
	})
})
