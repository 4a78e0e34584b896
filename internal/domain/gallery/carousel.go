package gallery

// Carousel is a circular cursor over n slides. The zero value is an empty carousel.
type Carousel struct {
	Index  int
	Length int
}

// NewCarousel positions a carousel at index, wrapping out-of-range values
func NewCarousel(index, length int) Carousel {
	if length <= 0 {
		return Carousel{}
	}
	return Carousel{Index: wrap(index, length), Length: length}
}

// Next moves one slide forward, wrapping from the last slide to the first
func (c Carousel) Next() Carousel {
	if c.Length <= 0 {
		return c
	}
	return Carousel{Index: (c.Index + 1) % c.Length, Length: c.Length}
}

// Prev moves one slide back, wrapping from the first slide to the last
func (c Carousel) Prev() Carousel {
	if c.Length <= 0 {
		return c
	}
	return Carousel{Index: (c.Index - 1 + c.Length) % c.Length, Length: c.Length}
}

// Empty reports whether there is nothing to show
func (c Carousel) Empty() bool {
	return c.Length <= 0
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
