package gpio

import (
	"github.com/warthog618/go-gpiocdev"
)

// openCdev opens a single uAPI request covering all offsets, with the
// initial values applied as the request's output defaults. This is what
// keeps multi-line acquisition atomic: the kernel configures and drives
// every line in one ioctl.
func openCdev(chip, consumer string, offsets, values []int) (Device, error) {
	return gpiocdev.RequestLines(chip, offsets,
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsOutput(values...),
	)
}
