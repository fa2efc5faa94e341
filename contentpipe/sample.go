package contentpipe

// allocateSample flags the leading run of sections whose cumulative word
// count covers samplePercent of the book as free. The section that crosses
// the target is still included, so the free sample is never truncated
// mid-chapter and always covers at least the requested fraction.
func allocateSample(sections []Section, samplePercent int) {
	total := 0
	for _, s := range sections {
		total += s.WordCount
	}

	// ceil(total * samplePercent / 100)
	target := (total*samplePercent + 99) / 100

	free := 0
	for i := range sections {
		sections[i].IsFree = free < target
		free += sections[i].WordCount
	}
}
