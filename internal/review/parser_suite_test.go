package review

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestReviewParser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Review Parser Suite")
}

var _ = Describe("ParseOutput", func() {
	Describe("extraction markers", func() {
		It("parses one comment per marker line", func() {
			output := "some preamble\n" +
				"📝 Extracted: Consider renaming this variable for clarity\n" +
				"noise line\n" +
				"📝 Extracted: This loop can be simplified with a range clause\n" +
				"📊 Review completed with 2 comments\n"

			comments := ParseOutput(output)
			Expect(comments).To(HaveLen(2))
			Expect(comments[0].Text).To(Equal("Consider renaming this variable for clarity"))
			Expect(comments[1].Text).To(Equal("This loop can be simplified with a range clause"))
		})

		It("sets the fixed author and unknown location fields", func() {
			comments := ParseOutput("📝 Extracted: The error from Close is silently discarded here\n")
			Expect(comments).To(HaveLen(1))
			Expect(comments[0].Author).To(Equal("CodeRabbit"))
			Expect(comments[0].Location).To(Equal("Unknown"))
			Expect(comments[0].File).To(Equal("Unknown"))
			Expect(comments[0].Timestamp).NotTo(BeEmpty())
		})

		It("strips ellipsis truncation from comment text", func() {
			comments := ParseOutput("📝 Extracted: This function is doing too much work...\n")
			Expect(comments).To(HaveLen(1))
			Expect(comments[0].Text).To(Equal("This function is doing too much work"))
		})

		It("skips comments at or below the minimum length", func() {
			output := "📝 Extracted: too short\n" +
				"📝 Extracted: long enough to be a real review comment\n"

			comments := ParseOutput(output)
			Expect(comments).To(HaveLen(1))
			Expect(comments[0].Text).To(ContainSubstring("long enough"))
		})
	})

	Describe("completion summary", func() {
		It("does not filter comments by the reported count", func() {
			// The summary claims 5 but only 2 marker lines exist; the
			// parsed result reflects the markers.
			output := "📝 Extracted: First finding about unchecked errors here\n" +
				"📝 Extracted: Second finding about a data race in the pool\n" +
				"📊 Review completed with 5 comments\n"

			Expect(ParseOutput(output)).To(HaveLen(2))
		})

		It("tolerates a malformed count", func() {
			output := "📝 Extracted: A perfectly reasonable review comment\n" +
				"📊 Review completed with many comments\n"

			Expect(ParseOutput(output)).To(HaveLen(1))
		})
	})

	Describe("placeholder", func() {
		It("produces exactly one placeholder when no markers are present", func() {
			comments := ParseOutput("nothing useful in this output\nline two\n")
			Expect(comments).To(HaveLen(1))
			Expect(comments[0].Location).To(Equal("Overall"))
			Expect(comments[0].File).To(Equal("Workspace"))
			Expect(comments[0].Text).To(ContainSubstring("Review completed"))
		})

		It("produces a placeholder for empty output", func() {
			Expect(ParseOutput("")).To(HaveLen(1))
		})
	})
})
