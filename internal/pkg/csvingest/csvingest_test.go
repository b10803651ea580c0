package csvingest_test

import (
	"fmt"
	"strings"

	"trustlens/internal/pkg/csvingest"
	"trustlens/internal/testhelpers"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func loadCSV(name string) string {
	data, err := testhelpers.LoadFixture(name)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}

var _ = Describe("Parse", func() {
	It("keeps blank-text rows so callers can skip them", func() {
		doc, err := csvingest.Parse("review_text,rating\n\"Great product\",5\n\"\",3\n")
		Expect(err).NotTo(HaveOccurred())

		Expect(doc.TotalRows()).To(Equal(2))
		Expect(doc.Rows[0].Text).To(Equal("Great product"))
		Expect(doc.Rows[0].Rating).To(Equal(5.0))
		Expect(doc.Rows[0].Blank()).To(BeFalse())
		Expect(doc.Rows[1].Blank()).To(BeTrue())
	})

	It("parses the basic fixture with defaults for empty identifiers", func() {
		doc, err := csvingest.Parse(loadCSV("reviews_basic.csv"))
		Expect(err).NotTo(HaveOccurred())

		Expect(doc.Delimiter).To(Equal(','))
		Expect(doc.Rows).To(HaveLen(3))
		Expect(doc.Rows[0]).To(Equal(csvingest.Row{
			Line:       1,
			Text:       "Great product, works as described",
			Rating:     5,
			ProductID:  "sku-1",
			ReviewerID: "alice",
		}))
		Expect(doc.Rows[2].ProductID).To(Equal(csvingest.DefaultProductID))
		Expect(doc.Rows[2].ReviewerID).To(Equal(csvingest.DefaultReviewerID))
	})

	It("detects semicolons, strips the BOM and matches aliases case-insensitively", func() {
		doc, err := csvingest.Parse(loadCSV("reviews_semicolon_bom.csv"))
		Expect(err).NotTo(HaveOccurred())

		Expect(doc.Delimiter).To(Equal(';'))
		Expect(doc.Headers).To(Equal([]string{"productid", "comment", "rating", "userid"}))
		Expect(doc.Rows).To(HaveLen(2))
		Expect(doc.Rows[0].Text).To(Equal("Fast shipping; well packed"))
		Expect(doc.Rows[0].ProductID).To(Equal("sku-7"))
		Expect(doc.Rows[0].ReviewerID).To(Equal("carol"))
		Expect(doc.Rows[1].Text).To(Equal(`Would not buy "again"`))
	})

	It("detects tabs and defaults unparseable ratings to zero", func() {
		doc, err := csvingest.Parse(loadCSV("reviews_tab.csv"))
		Expect(err).NotTo(HaveOccurred())

		Expect(doc.Delimiter).To(Equal('\t'))
		Expect(doc.Rows[0].Text).To(Equal("Loved it"))
		Expect(doc.Rows[0].Rating).To(BeZero())
		Expect(doc.Rows[1].Rating).To(Equal(3.5))
	})

	It("uses semicolon for every row when the header has more semicolons", func() {
		doc, err := csvingest.Parse("text;rating;product\nfine, really;4;p1\nbad;1;p2\n")
		Expect(err).NotTo(HaveOccurred())

		Expect(doc.Delimiter).To(Equal(';'))
		Expect(doc.Rows[0].Text).To(Equal("fine, really"))
		Expect(doc.Rows[0].ProductID).To(Equal("p1"))
		Expect(doc.Rows[1].Rating).To(Equal(1.0))
	})

	It("prefers the earliest alias in priority order", func() {
		doc, err := csvingest.Parse("comment,review_text,user,reviewer_id\nignored,picked,u1,r1\n")
		Expect(err).NotTo(HaveOccurred())

		Expect(doc.Rows[0].Text).To(Equal("picked"))
		Expect(doc.Rows[0].ReviewerID).To(Equal("r1"))
	})

	It("tolerates rows shorter than the header", func() {
		doc, err := csvingest.Parse("rating,text,product_id\n4\n")
		Expect(err).NotTo(HaveOccurred())

		Expect(doc.Rows[0].Rating).To(Equal(4.0))
		Expect(doc.Rows[0].Blank()).To(BeTrue())
		Expect(doc.Rows[0].ProductID).To(Equal(csvingest.DefaultProductID))
	})

	It("caps the number of rows considered", func() {
		var b strings.Builder
		b.WriteString("review_text,rating\n")
		for i := 0; i < 1500; i++ {
			fmt.Fprintf(&b, "review %d,%d\n", i, i%5+1)
		}

		doc, err := csvingest.Parse(b.String())
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.TotalRows()).To(Equal(csvingest.MaxRows))
		Expect(doc.Rows[csvingest.MaxRows-1].Text).To(Equal("review 999"))
	})

	DescribeTable("structural errors",
		func(raw string, expected error) {
			doc, err := csvingest.Parse(raw)
			Expect(doc).To(BeNil())
			Expect(err).To(MatchError(expected))

			var structural *csvingest.StructuralError
			Expect(err).To(BeAssignableToTypeOf(structural))
		},
		Entry("empty input", "", csvingest.ErrNoRows),
		Entry("header only", "review_text,rating\n", csvingest.ErrNoRows),
		Entry("header and blank lines", "review_text\r\n   \r\n\r\n", csvingest.ErrNoRows),
		Entry("no text column", "title,rating\nhello,5\n", csvingest.ErrNoTextColumn),
	)
})

var _ = Describe("SplitLine", func() {
	DescribeTable("quoting",
		func(line string, expected []string) {
			Expect(csvingest.SplitLine(line, ',')).To(Equal(expected))
		},
		Entry("embedded delimiter and doubled quote", `"a,b""c"`, []string{`a,b"c`}),
		Entry("plain fields are trimmed", ` a , b ,c`, []string{"a", "b", "c"}),
		Entry("empty fields", `,,`, []string{"", "", ""}),
		Entry("quoted empty field", `"",3`, []string{"", "3"}),
		Entry("unterminated quote swallows the rest", `"a,b`, []string{"a,b"}),
	)
})

var _ = Describe("ParseRating", func() {
	DescribeTable("keeps only finite leading numbers",
		func(raw string, expected float64) {
			Expect(csvingest.ParseRating(raw)).To(Equal(expected))
		},
		Entry("plain number", "3.5", 3.5),
		Entry("negative", "-2", -2.0),
		Entry("unit suffix", "5 stars", 5.0),
		Entry("padded", "  4 ", 4.0),
		Entry("NaN", "NaN", 0.0),
		Entry("inf", "inf", 0.0),
		Entry("Infinity", "-Infinity", 0.0),
		Entry("overflow", "1e999", 0.0),
		Entry("words", "five", 0.0),
		Entry("empty", "", 0.0),
	)

	It("is applied to the rating column", func() {
		doc, err := csvingest.Parse("text,rating\na,NaN\nb,inf\nc,5 stars\n")
		Expect(err).NotTo(HaveOccurred())

		Expect(doc.Rows[0].Rating).To(BeZero())
		Expect(doc.Rows[1].Rating).To(BeZero())
		Expect(doc.Rows[2].Rating).To(Equal(5.0))
	})
})

var _ = Describe("DetectDelimiter", func() {
	DescribeTable("picks the most frequent candidate",
		func(header string, expected rune) {
			Expect(csvingest.DetectDelimiter(header)).To(Equal(expected))
		},
		Entry("comma", "a,b,c", ','),
		Entry("semicolon", "a;b;c,d", ';'),
		Entry("tab", "a\tb\tc", '\t'),
		Entry("no candidates", "review_text", ','),
		Entry("tie goes to comma", "a,b;c", ','),
	)
})
