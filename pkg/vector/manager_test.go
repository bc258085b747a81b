package vector_test

import (
	"context"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	testutils "github.com/papercomputeco/emunet/pkg/utils/test"
	"github.com/papercomputeco/emunet/pkg/vector"
)

// opaqueDriver hides the Describer implementation of the wrapped driver.
type opaqueDriver struct {
	vector.Driver
}

var _ = Describe("Manager", func() {
	var (
		ctx    context.Context
		driver *testutils.MockVectorDriver
		spec   vector.CollectionSpec
		logger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = testutils.NewMockVectorDriver()
		logger = slog.New(slog.DiscardHandler)
		spec = vector.CollectionSpec{Name: "chat", Dimensions: 1536, Distance: vector.DistanceCosine}
	})

	Describe("EnsureCollection", func() {
		It("creates the collection when it is absent", func() {
			mgr := vector.NewManager(driver, logger)
			Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())

			names, err := driver.ListCollections(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(ConsistOf("chat"))
			Expect(driver.CreateCalls()).To(Equal(1))
		})

		It("is idempotent across sessions", func() {
			mgr := vector.NewManager(driver, logger)
			Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())
			Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())

			names, err := driver.ListCollections(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(HaveLen(1))
			Expect(driver.CreateCalls()).To(Equal(1))
		})

		It("leaves existing points untouched", func() {
			mgr := vector.NewManager(driver, logger)
			Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())
			Expect(driver.Upsert(ctx, "chat", []vector.Point{
				{ID: 0, Vector: []float32{1}, Payload: vector.Payload{Text: "Hello"}},
			})).To(Succeed())

			Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())

			count, err := driver.Count(ctx, "chat")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(uint64(1)))
		})

		It("rejects an invalid spec without touching the store", func() {
			mgr := vector.NewManager(driver, logger)
			err := mgr.EnsureCollection(ctx, vector.CollectionSpec{Name: "chat", Distance: vector.DistanceCosine})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("dimensions must be positive"))
			Expect(driver.CreateCalls()).To(Equal(0))
		})

		It("rejects a distance alias that was never parsed", func() {
			mgr := vector.NewManager(driver, logger)
			err := mgr.EnsureCollection(ctx, vector.CollectionSpec{Name: "chat", Dimensions: 4, Distance: "l2"})
			Expect(err).To(MatchError(ContainSubstring(`unsupported distance metric: "l2"`)))
			Expect(driver.CreateCalls()).To(Equal(0))
		})

		It("stores the canonical distance for an alias given to NewCollectionSpec", func() {
			aliased, err := vector.NewCollectionSpec("chat", 4, "l2")
			Expect(err).NotTo(HaveOccurred())
			Expect(aliased.Distance).To(Equal(vector.DistanceEuclid))

			mgr := vector.NewManager(driver, logger, vector.WithSchemaValidation(true))
			Expect(mgr.EnsureCollection(ctx, aliased)).To(Succeed())
			Expect(mgr.EnsureCollection(ctx, aliased)).To(Succeed())
		})

		It("surfaces list failures", func() {
			driver.ListErr = errors.New("connection refused")
			mgr := vector.NewManager(driver, logger)

			err := mgr.EnsureCollection(ctx, spec)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("listing collections"))
		})

		It("surfaces create failures", func() {
			driver.CreateErr = errors.New("quota exceeded")
			mgr := vector.NewManager(driver, logger)

			err := mgr.EnsureCollection(ctx, spec)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("creating collection chat"))
		})

		Context("when the existing collection has a different schema", func() {
			BeforeEach(func() {
				Expect(driver.CreateCollection(ctx, vector.CollectionSpec{
					Name: "chat", Dimensions: 768, Distance: vector.DistanceCosine,
				})).To(Succeed())
			})

			It("returns ErrSchemaMismatch when validation is on", func() {
				mgr := vector.NewManager(driver, logger, vector.WithSchemaValidation(true))

				err := mgr.EnsureCollection(ctx, spec)
				Expect(err).To(MatchError(vector.ErrSchemaMismatch))
				Expect(err.Error()).To(ContainSubstring("768"))
			})

			It("accepts the collection when validation is off", func() {
				mgr := vector.NewManager(driver, logger, vector.WithSchemaValidation(false))
				Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())
			})

			It("accepts the collection when the driver cannot describe it", func() {
				mgr := vector.NewManager(opaqueDriver{driver}, logger, vector.WithSchemaValidation(true))
				Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())
			})

			It("never recreates the collection", func() {
				mgr := vector.NewManager(driver, logger, vector.WithSchemaValidation(true))
				_ = mgr.EnsureCollection(ctx, spec)

				described, err := driver.DescribeCollection(ctx, "chat")
				Expect(err).NotTo(HaveOccurred())
				Expect(described.Dimensions).To(Equal(uint64(768)))
				Expect(driver.CreateCalls()).To(Equal(1))
			})
		})

		It("passes when the existing schema matches", func() {
			mgr := vector.NewManager(driver, logger, vector.WithSchemaValidation(true))
			Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())
			Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())
		})
	})
})

var _ = Describe("ParseDistance", func() {
	DescribeTable("known metrics",
		func(in string, want vector.Distance) {
			got, err := vector.ParseDistance(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("cosine", "cosine", vector.DistanceCosine),
		Entry("upper case", "COSINE", vector.DistanceCosine),
		Entry("dot", "dot", vector.DistanceDot),
		Entry("euclid", "euclid", vector.DistanceEuclid),
		Entry("euclidean alias", "euclidean", vector.DistanceEuclid),
		Entry("l2 alias", "l2", vector.DistanceEuclid),
	)

	It("rejects unknown metrics", func() {
		_, err := vector.ParseDistance("manhattan")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Payload", func() {
	It("omits empty optional fields", func() {
		m := vector.Payload{Text: "Hello"}.Map()
		Expect(m).To(Equal(map[string]string{vector.PayloadText: "Hello"}))
	})

	It("keeps the text verbatim", func() {
		p := vector.Payload{Text: "  Hi there\n", Role: "assistant", SessionID: "s1"}
		Expect(vector.PayloadFromMap(p.Map())).To(Equal(p))
	})
})

var _ = Describe("NewCollectionSpec", func() {
	It("builds the default spec", func() {
		spec, err := vector.NewCollectionSpec("emunet", 1536, "cosine")
		Expect(err).NotTo(HaveOccurred())
		Expect(spec).To(Equal(vector.CollectionSpec{Name: "emunet", Dimensions: 1536, Distance: vector.DistanceCosine}))
		Expect(spec.String()).To(Equal("emunet(1536, cosine)"))
	})

	It("rejects zero dimensions", func() {
		_, err := vector.NewCollectionSpec("emunet", 0, "cosine")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an empty name", func() {
		_, err := vector.NewCollectionSpec("", 3, "cosine")
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown distances", func() {
		_, err := vector.NewCollectionSpec("emunet", 3, "hamming")
		Expect(err).To(HaveOccurred())
	})
})
