package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/emunet/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("returns the function's error and marks the step", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "ensuring collection", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("ensuring collection"))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})

	It("marks a successful step", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "connecting", func() error { return nil })).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds above a second", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("keeps the text content", func() {
		out, err := cliui.RenderMarkdown("# Title\n\nsome **bold** text")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Title"))
		Expect(out).To(ContainSubstring("bold"))
	})
})
