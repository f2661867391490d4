// Package gpio mediates access to output lines on a Linux GPIO character
// device. A Controller hands out exclusive Requests covering one or more
// lines; initial values are applied as part of the same device request, so
// a multi-line acquisition never exposes an intermediate state. The package
// performs no timing and no logging: holding a level for a visible duration
// is the caller's job.
package gpio

import (
	"fmt"
)

// Value is the logic level of a line.
type Value int

const (
	Inactive Value = 0
	Active   Value = 1
)

func (v Value) String() string {
	if v == Active {
		return "active"
	}
	return "inactive"
}

// LineConfig pairs a line offset with the value to drive at acquisition.
type LineConfig struct {
	Offset int
	Value  Value
}

// Device is the subset of a character-device line request the package
// drives. The production implementation is a gpiocdev request; tests
// substitute a simulated device.
type Device interface {
	// SetValues drives every line of the request, in the order the lines
	// were requested.
	SetValues(values []int) error
	Close() error
}

// OpenFunc opens an exclusive output request for offsets on the named chip,
// driving each line to the corresponding value as part of the request.
type OpenFunc func(chip, consumer string, offsets, values []int) (Device, error)

// Controller owns the device seam through which line requests are opened.
type Controller struct {
	open OpenFunc
}

// New returns a Controller backed by the GPIO character device.
func New() *Controller {
	return NewWith(openCdev)
}

// NewWith returns a Controller that opens requests through open.
func NewWith(open OpenFunc) *Controller {
	return &Controller{open: open}
}

// Request acquires every line in configs on chip as an output, atomically
// driving each to its configured value. The consumer label is attached to
// the lines for the lifetime of the request and is visible to other
// processes inspecting the chip.
//
// Acquisition is all-or-nothing: on any failure no line is retained and the
// returned error is an *AcquireError wrapping the cause. Lines remain owned
// until Release is called.
func (c *Controller) Request(chip, consumer string, configs []LineConfig) (*Request, error) {
	if len(configs) == 0 {
		return nil, &AcquireError{Chip: chip, Err: errEmptyConfig}
	}

	offsets := make([]int, len(configs))
	values := make([]int, len(configs))
	index := make(map[int]int, len(configs))
	for i, lc := range configs {
		if lc.Offset < 0 {
			return nil, &AcquireError{Chip: chip, Offsets: []int{lc.Offset}, Err: errNegativeOffset}
		}
		if _, dup := index[lc.Offset]; dup {
			return nil, &AcquireError{Chip: chip, Offsets: []int{lc.Offset}, Err: errDuplicateOffset}
		}
		offsets[i] = lc.Offset
		values[i] = int(lc.Value)
		index[lc.Offset] = i
	}

	dev, err := c.open(chip, consumer, offsets, values)
	if err != nil {
		return nil, &AcquireError{Chip: chip, Offsets: offsets, Err: err}
	}

	return &Request{
		chip:     chip,
		consumer: consumer,
		offsets:  offsets,
		index:    index,
		values:   values,
		dev:      dev,
	}, nil
}

// Request is the live ownership handle for a set of lines. Its owned set is
// fixed at acquisition; after Release the handle is dead and every mutation
// fails with ErrReleased.
type Request struct {
	chip     string
	consumer string
	offsets  []int
	index    map[int]int
	values   []int
	dev      Device
	released bool
}

// Chip returns the device path the request was opened on.
func (r *Request) Chip() string {
	return r.chip
}

// Consumer returns the label the lines were tagged with.
func (r *Request) Consumer() string {
	return r.consumer
}

// Offsets returns the owned line offsets in acquisition order.
func (r *Request) Offsets() []int {
	out := make([]int, len(r.offsets))
	copy(out, r.offsets)
	return out
}

// SetValue drives one owned line to v. Sibling lines keep their current
// level; a failed write leaves the whole request, including the named line,
// at the previously driven values.
func (r *Request) SetValue(offset int, v Value) error {
	if r.released {
		return &SetValueError{Chip: r.chip, Offset: offset, Err: ErrReleased}
	}
	i, ok := r.index[offset]
	if !ok {
		return &SetValueError{Chip: r.chip, Offset: offset, Err: ErrNotOwned}
	}

	next := make([]int, len(r.values))
	copy(next, r.values)
	next[i] = int(v)
	if err := r.dev.SetValues(next); err != nil {
		return &SetValueError{Chip: r.chip, Offset: offset, Err: err}
	}
	r.values = next
	return nil
}

// Value reports the level the request last drove on an owned line.
func (r *Request) Value(offset int) (Value, error) {
	if r.released {
		return Inactive, fmt.Errorf("line %d on %s: %w", offset, r.chip, ErrReleased)
	}
	i, ok := r.index[offset]
	if !ok {
		return Inactive, fmt.Errorf("line %d on %s: %w", offset, r.chip, ErrNotOwned)
	}
	return Value(r.values[i]), nil
}

// Release relinquishes every owned line, making them acquirable again. The
// handle is dead once Release returns, whether or not the device reported
// the close cleanly; the physical levels the lines settle at afterwards are
// driver-defined. Releasing a dead handle is a no-op.
func (r *Request) Release() error {
	if r.released {
		return nil
	}
	r.released = true
	if err := r.dev.Close(); err != nil {
		return &ReleaseError{Chip: r.chip, Err: err}
	}
	return nil
}
