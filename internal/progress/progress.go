// Package progress reports batch progress on a terminal.
package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Bar counts processed items. A nil *Bar ignores all calls, so callers can
// pass nil when progress reporting is off.
type Bar struct {
	bar *progressbar.ProgressBar
}

func New(w io.Writer, description string) *Bar {
	return &Bar{bar: progressbar.NewOptions(0,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)}
}

// AddMax grows the expected total.
func (b *Bar) AddMax(n int) {
	if b == nil {
		return
	}
	b.bar.AddMax(n)
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
}
