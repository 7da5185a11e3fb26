package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

var _ = Describe("LoadImage", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("reads a local path and sniffs the content type", func() {
		path := filepath.Join(dir, "receipt.png")
		Expect(os.WriteFile(path, testPNG(), 0600)).To(Succeed())

		img, err := LoadImage(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(img.ContentType).To(Equal("image/png"))
		Expect(img.Ref).To(Equal(path))
	})

	It("accepts a file URI", func() {
		path := filepath.Join(dir, "receipt.png")
		Expect(os.WriteFile(path, testPNG(), 0600)).To(Succeed())

		img, err := LoadImage("file://" + path)
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Data).To(Equal(testPNG()))
	})

	It("fails for a missing file", func() {
		_, err := LoadImage(filepath.Join(dir, "nope.jpg"))
		Expect(err).To(MatchError(ContainSubstring("reading image")))
	})

	It("rejects remote references", func() {
		_, err := LoadImage("https://example.com/receipt.jpg")
		Expect(err).To(MatchError(ContainSubstring("unsupported image reference")))
	})
})

var _ = Describe("LoadImageIn", func() {
	var (
		dir     string
		outside string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		outside = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "receipt.png"), testPNG(), 0600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(outside, "secret.png"), testPNG(), 0600)).To(Succeed())
	})

	It("reads a reference relative to the directory", func() {
		img, err := LoadImageIn(dir, "receipt.png")
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Data).To(Equal(testPNG()))
		Expect(img.Ref).To(Equal("receipt.png"))
	})

	It("reads an absolute path inside the directory", func() {
		img, err := LoadImageIn(dir, "file://"+filepath.Join(dir, "receipt.png"))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.ContentType).To(Equal("image/png"))
	})

	DescribeTable("references leaving the directory",
		func(ref func() string) {
			_, err := LoadImageIn(dir, ref())
			Expect(err).To(MatchError(ErrOutsideImageDir))
		},
		Entry("absolute path elsewhere", func() string { return filepath.Join(outside, "secret.png") }),
		Entry("system file", func() string { return "/etc/passwd" }),
		Entry("parent traversal", func() string { return "../" + filepath.Base(outside) + "/secret.png" }),
		Entry("file uri elsewhere", func() string { return "file://" + filepath.Join(outside, "secret.png") }),
	)

	It("refuses a symlink pointing out of the directory", func() {
		Expect(os.Symlink(filepath.Join(outside, "secret.png"), filepath.Join(dir, "link.png"))).To(Succeed())

		_, err := LoadImageIn(dir, "link.png")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewImage", func() {
	It("sniffs HEIC data", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(NewImage(data, "", "upload").ContentType).To(Equal("image/heic"))
	})

	It("keeps an explicit content type", func() {
		Expect(NewImage(testPNG(), "Image/JPEG", "upload").ContentType).To(Equal("image/jpeg"))
	})
})

var _ = Describe("Image.Hash", func() {
	It("depends only on the bytes", func() {
		a := Image{Data: []byte("abc"), Ref: "a"}
		b := Image{Data: []byte("abc"), Ref: "b"}
		Expect(a.Hash()).To(Equal(b.Hash()))
		Expect(a.Hash()).To(HaveLen(64))
	})
})

var _ = Describe("prepareImage", func() {
	It("passes PNG data through", func() {
		data := testPNG()
		out, err := prepareImage(Image{Data: data, ContentType: "image/png"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})

	It("converts JPEG to PNG", func() {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		img.Set(2, 2, color.RGBA{R: 255, A: 255})
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())

		out, err := prepareImage(Image{Data: buf.Bytes(), ContentType: "image/jpeg"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out[:8]).To(Equal(pngMagic))
	})

	It("rejects unknown formats", func() {
		_, err := prepareImage(Image{Data: []byte("not an image at all"), ContentType: "text/plain"})
		Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
	})
})
