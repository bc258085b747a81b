package memory_test

import (
	"context"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/emunet/pkg/memory"
	testutils "github.com/papercomputeco/emunet/pkg/utils/test"
	"github.com/papercomputeco/emunet/pkg/vector"
)

var _ = Describe("Writer", func() {
	var (
		ctx      context.Context
		driver   *testutils.MockVectorDriver
		embedder *testutils.MockEmbedder
		writer   *memory.Writer
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()

		Expect(driver.CreateCollection(ctx, vector.CollectionSpec{
			Name: "emunet", Dimensions: 3, Distance: vector.DistanceCosine,
		})).To(Succeed())

		var err error
		writer, err = memory.NewWriter(driver, embedder, memory.WriterConfig{
			Collection: "emunet",
			SessionID:  "session-1",
		}, slog.New(slog.DiscardHandler))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewWriter", func() {
		It("requires a collection", func() {
			_, err := memory.NewWriter(driver, embedder, memory.WriterConfig{}, slog.New(slog.DiscardHandler))
			Expect(err).To(HaveOccurred())
		})

		It("requires a driver and an embedder", func() {
			_, err := memory.NewWriter(nil, embedder, memory.WriterConfig{Collection: "c"}, slog.New(slog.DiscardHandler))
			Expect(err).To(HaveOccurred())
			_, err = memory.NewWriter(driver, nil, memory.WriterConfig{Collection: "c"}, slog.New(slog.DiscardHandler))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RecordTurn", func() {
		It("writes the first turn as points 0 and 1", func() {
			next, err := writer.RecordTurn(ctx, "Hello", "Hi there", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(uint64(2)))
			Expect(driver.IDs("emunet")).To(Equal([]uint64{0, 1}))

			points, err := writer.Recall(ctx, []uint64{0, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(points[0].Payload).To(Equal(vector.Payload{Text: "Hello", Role: "user", SessionID: "session-1"}))
			Expect(points[1].Payload).To(Equal(vector.Payload{Text: "Hi there", Role: "assistant", SessionID: "session-1"}))
		})

		It("writes both points in a single batch", func() {
			_, err := writer.RecordTurn(ctx, "Hello", "Hi there", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Batches()).To(HaveLen(1))
			Expect(driver.Batches()[0]).To(HaveLen(2))
		})

		It("embeds the prompt and the reply", func() {
			embedder.Embeddings["Hello"] = []float32{1, 0, 0}
			embedder.Embeddings["Hi there"] = []float32{0, 1, 0}

			_, err := writer.RecordTurn(ctx, "Hello", "Hi there", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(embedder.Texts()).To(ConsistOf("Hello", "Hi there"))

			points, err := writer.Recall(ctx, []uint64{0, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(points[0].Vector).To(Equal([]float32{1, 0, 0}))
			Expect(points[1].Vector).To(Equal([]float32{0, 1, 0}))
		})

		It("embeds identical prompt and reply twice", func() {
			_, err := writer.RecordTurn(ctx, "echo", "echo", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(embedder.Calls()).To(Equal(2))
			Expect(driver.IDs("emunet")).To(Equal([]uint64{0, 1}))
		})

		It("keeps text verbatim, including empty input", func() {
			_, err := writer.RecordTurn(ctx, "", "  spaced\n", 4)
			Expect(err).NotTo(HaveOccurred())

			points, err := writer.Recall(ctx, []uint64{4, 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(points[0].Payload.Text).To(Equal(""))
			Expect(points[1].Payload.Text).To(Equal("  spaced\n"))
		})

		It("allocates distinct increasing ids across turns", func() {
			next := uint64(0)
			for range 3 {
				var err error
				next, err = writer.RecordTurn(ctx, "q", "a", next)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(next).To(Equal(uint64(6)))
			Expect(driver.IDs("emunet")).To(Equal([]uint64{0, 1, 2, 3, 4, 5}))
		})

		It("writes nothing when the second embedding fails", func() {
			embedder.FailOnCall = 2

			next, err := writer.RecordTurn(ctx, "Hello", "Hi there", 0)
			Expect(err).To(MatchError(memory.ErrWriteFailed))
			Expect(err).To(MatchError(vector.ErrEmbedding))
			Expect(next).To(Equal(uint64(0)))
			Expect(driver.Batches()).To(BeEmpty())
		})

		It("writes nothing when the prompt embedding fails", func() {
			embedder.FailOn = "Hello"

			_, err := writer.RecordTurn(ctx, "Hello", "Hi there", 0)
			Expect(err).To(MatchError(memory.ErrWriteFailed))
			Expect(driver.IDs("emunet")).To(BeEmpty())
		})

		It("reports upsert failures with the cause", func() {
			driver.UpsertErr = vector.ErrPartialWrite

			next, err := writer.RecordTurn(ctx, "Hello", "Hi there", 8)
			Expect(err).To(MatchError(memory.ErrWriteFailed))
			Expect(err).To(MatchError(vector.ErrPartialWrite))
			Expect(next).To(Equal(uint64(8)))
		})

		It("honors a cancelled context", func() {
			driver.UpsertErr = errors.New("unreachable")
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := writer.RecordTurn(cctx, "Hello", "Hi there", 0)
			Expect(err).To(MatchError(memory.ErrWriteFailed))
		})
	})

	Describe("NextID", func() {
		It("is zero for an empty collection", func() {
			Expect(writer.NextID(ctx)).To(Equal(uint64(0)))
		})

		It("resumes after stored turns", func() {
			_, err := writer.RecordTurn(ctx, "Hello", "Hi there", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.NextID(ctx)).To(Equal(uint64(2)))
		})

		It("fails for a missing collection", func() {
			w, err := memory.NewWriter(driver, embedder, memory.WriterConfig{Collection: "missing"}, slog.New(slog.DiscardHandler))
			Expect(err).NotTo(HaveOccurred())
			_, err = w.NextID(ctx)
			Expect(err).To(MatchError(vector.ErrNotFound))
		})
	})

	Describe("Recall", func() {
		It("returns nothing for no ids", func() {
			points, err := writer.Recall(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(BeEmpty())
		})
	})

	It("satisfies Recorder", func() {
		var _ memory.Recorder = writer
	})
})

var _ = Describe("Reader", func() {
	It("requires a driver and a collection", func() {
		_, err := memory.NewReader(nil, "emunet")
		Expect(err).To(HaveOccurred())
		_, err = memory.NewReader(testutils.NewMockVectorDriver(), "")
		Expect(err).To(HaveOccurred())
	})

	It("reads back what a writer stored", func() {
		ctx := context.Background()
		driver := testutils.NewMockVectorDriver()
		Expect(driver.CreateCollection(ctx, vector.CollectionSpec{
			Name: "emunet", Dimensions: 3, Distance: vector.DistanceCosine,
		})).To(Succeed())

		writer, err := memory.NewWriter(driver, testutils.NewMockEmbedder(), memory.WriterConfig{Collection: "emunet"}, slog.New(slog.DiscardHandler))
		Expect(err).NotTo(HaveOccurred())
		_, err = writer.RecordTurn(ctx, "Hello", "Hi there", 0)
		Expect(err).NotTo(HaveOccurred())

		reader, err := memory.NewReader(driver, "emunet")
		Expect(err).NotTo(HaveOccurred())

		points, err := reader.Recall(ctx, []uint64{1})
		Expect(err).NotTo(HaveOccurred())
		Expect(points).To(HaveLen(1))
		Expect(points[0].Payload.Text).To(Equal("Hi there"))
		Expect(reader.NextID(ctx)).To(Equal(uint64(2)))
	})
})
