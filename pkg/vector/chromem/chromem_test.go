package chromem_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/emunet/pkg/memory"
	testutils "github.com/papercomputeco/emunet/pkg/utils/test"
	"github.com/papercomputeco/emunet/pkg/vector"
	"github.com/papercomputeco/emunet/pkg/vector/chromem"
)

var _ = Describe("Chromem driver", func() {
	var (
		ctx    context.Context
		driver *chromem.Driver
		spec   vector.CollectionSpec
	)

	BeforeEach(func() {
		ctx = context.Background()
		spec = vector.CollectionSpec{Name: "chat", Dimensions: 3, Distance: vector.DistanceCosine}

		var err error
		driver, err = chromem.NewDriver(chromem.Config{}, slog.New(slog.DiscardHandler))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("implements vector.Driver", func() {
		var _ vector.Driver = (*chromem.Driver)(nil)
	})

	Describe("collections", func() {
		It("starts empty", func() {
			names, err := driver.ListCollections(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(BeEmpty())
		})

		It("lists created collections", func() {
			Expect(driver.CreateCollection(ctx, spec)).To(Succeed())
			names, err := driver.ListCollections(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(ConsistOf("chat"))
		})

		It("rejects non-cosine distances", func() {
			spec.Distance = vector.DistanceDot
			Expect(driver.CreateCollection(ctx, spec)).NotTo(Succeed())
		})

		It("works with the collection manager", func() {
			mgr := vector.NewManager(driver, slog.New(slog.DiscardHandler), vector.WithSchemaValidation(true))
			Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())
			Expect(mgr.EnsureCollection(ctx, spec)).To(Succeed())
		})
	})

	Describe("points", func() {
		BeforeEach(func() {
			Expect(driver.CreateCollection(ctx, spec)).To(Succeed())
		})

		It("stores a turn and reads it back", func() {
			Expect(driver.Upsert(ctx, "chat", []vector.Point{
				{ID: 0, Vector: []float32{1, 0, 0}, Payload: vector.Payload{Text: "Hello", Role: "user"}},
				{ID: 1, Vector: []float32{0, 1, 0}, Payload: vector.Payload{Text: "Hi there", Role: "assistant"}},
			})).To(Succeed())

			count, err := driver.Count(ctx, "chat")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(uint64(2)))

			points, err := driver.Get(ctx, "chat", []uint64{0, 1, 99})
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(HaveLen(2))
			Expect(points[0].ID).To(Equal(uint64(0)))
			Expect(points[0].Payload.Text).To(Equal("Hello"))
			Expect(points[1].Payload.Role).To(Equal("assistant"))
			Expect(points[1].Vector).To(HaveLen(3))
		})

		It("rejects a batch with mixed dimensions", func() {
			err := driver.Upsert(ctx, "chat", []vector.Point{
				{ID: 0, Vector: []float32{1, 0, 0}},
				{ID: 1, Vector: []float32{1, 0}},
			})
			Expect(err).To(MatchError(vector.ErrPartialWrite))

			count, err := driver.Count(ctx, "chat")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("stores nothing and fails when the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			err := driver.Upsert(cctx, "chat", []vector.Point{
				{ID: 0, Vector: []float32{1, 0, 0}, Payload: vector.Payload{Text: "Hello"}},
				{ID: 1, Vector: []float32{0, 1, 0}, Payload: vector.Payload{Text: "Hi there"}},
			})
			Expect(err).To(MatchError(vector.ErrPartialWrite))

			count, err := driver.Count(ctx, "chat")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("keeps next_id when a turn is written with a cancelled context", func() {
			writer, err := memory.NewWriter(driver, testutils.NewMockEmbedder(), memory.WriterConfig{
				Collection: "chat",
				SessionID:  "s1",
			}, slog.New(slog.DiscardHandler))
			Expect(err).NotTo(HaveOccurred())

			cctx, cancel := context.WithCancel(ctx)
			cancel()

			next, err := writer.RecordTurn(cctx, "Hello", "Hi there", 0)
			Expect(err).To(MatchError(memory.ErrWriteFailed))
			Expect(next).To(BeZero())

			stored, err := writer.NextID(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeZero())
		})

		It("returns ErrNotFound for unknown collections", func() {
			_, err := driver.Count(ctx, "missing")
			Expect(err).To(MatchError(vector.ErrNotFound))
		})
	})

	Describe("persistence", func() {
		It("reopens a persisted collection", func() {
			dir := GinkgoT().TempDir()

			d1, err := chromem.NewDriver(chromem.Config{Path: dir}, slog.New(slog.DiscardHandler))
			Expect(err).NotTo(HaveOccurred())
			Expect(d1.CreateCollection(ctx, spec)).To(Succeed())
			Expect(d1.Upsert(ctx, "chat", []vector.Point{
				{ID: 0, Vector: []float32{1, 0, 0}, Payload: vector.Payload{Text: "Hello"}},
			})).To(Succeed())

			d2, err := chromem.NewDriver(chromem.Config{Path: dir}, slog.New(slog.DiscardHandler))
			Expect(err).NotTo(HaveOccurred())
			count, err := d2.Count(ctx, "chat")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(uint64(1)))
		})

		It("rolls back a batch that could not be persisted", func() {
			dir := GinkgoT().TempDir()

			d, err := chromem.NewDriver(chromem.Config{Path: dir}, slog.New(slog.DiscardHandler))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.CreateCollection(ctx, spec)).To(Succeed())

			// Replace the collection directory with a plain file so document
			// files cannot be created, regardless of the user running the test.
			entries, err := os.ReadDir(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			colDir := filepath.Join(dir, entries[0].Name())
			Expect(os.RemoveAll(colDir)).To(Succeed())
			Expect(os.WriteFile(colDir, []byte("blocked"), 0o600)).To(Succeed())

			err = d.Upsert(ctx, "chat", []vector.Point{
				{ID: 0, Vector: []float32{1, 0, 0}, Payload: vector.Payload{Text: "Hello"}},
				{ID: 1, Vector: []float32{0, 1, 0}, Payload: vector.Payload{Text: "Hi there"}},
			})
			Expect(err).To(MatchError(vector.ErrPartialWrite))

			count, err := d.Count(ctx, "chat")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})
})
