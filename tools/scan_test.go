package tools_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	"github.com/jhl-labs/sepilot-desktop-sub001/tools"
)

func TestUnitScan(t *testing.T) {
	spec.Run(t, "Testing scan", testScan, spec.Report(report.Terminal{}))
}

func testScan(t *testing.T, when spec.G, it spec.S) {
	var workdir string

	it.Before(func() {
		RegisterTestingT(t)
		workdir = t.TempDir()
	})

	write := func(rel, content string) string {
		path := filepath.Join(workdir, rel)
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	when("Listing()", func() {
		it("records size and mtime per file", func() {
			path := write("src/app.ts", "hello")

			listing := tools.Listing(workdir)

			Expect(listing).To(HaveKey(path))
			Expect(listing[path].Size).To(Equal(int64(5)))
			Expect(listing[path].ModTime).NotTo(BeZero())
		})

		it("skips generated and hidden directories", func() {
			write("node_modules/pkg/index.js", "x")
			write(".git/HEAD", "ref")
			kept := write("src/kept.ts", "x")

			listing := tools.Listing(workdir)

			Expect(listing).To(HaveLen(1))
			Expect(listing).To(HaveKey(kept))
		})
	})

	when("DiffListings()", func() {
		it("classifies added, modified and deleted paths", func() {
			stable := write("stable.ts", "same")
			changed := write("changed.ts", "v1")
			removed := write("removed.ts", "bye")

			before := tools.Listing(workdir)

			grown := write("changed.ts", "v1 plus more")
			Expect(grown).To(Equal(changed))
			Expect(os.Remove(removed)).To(Succeed())
			added := write("added.ts", "new")

			after := tools.Listing(workdir)

			addedPaths, modifiedPaths, deletedPaths := tools.DiffListings(before, after)

			Expect(addedPaths).To(Equal([]string{added}))
			Expect(modifiedPaths).To(Equal([]string{changed}))
			Expect(deletedPaths).To(Equal([]string{removed}))
			Expect(addedPaths).NotTo(ContainElement(stable))
		})

		it("detects a same-size rewrite through mtime", func() {
			path := write("a.ts", "12345")
			before := tools.Listing(workdir)

			future := time.Now().Add(2 * time.Second)
			Expect(os.Chtimes(path, future, future)).To(Succeed())

			after := tools.Listing(workdir)
			_, modified, _ := tools.DiffListings(before, after)

			Expect(modified).To(Equal([]string{path}))
		})
	})
}
