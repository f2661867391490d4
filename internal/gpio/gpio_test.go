package gpio

import (
	"errors"
	"io/fs"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeChip emulates the exclusivity the character device enforces: a line
// can belong to at most one open request, requests on missing lines fail,
// and closing a request frees its lines.
type fakeChip struct {
	lines    int
	permErr  bool
	owned    map[int]bool
	requests []*fakeDevice
}

func newFakeChip(lines int) *fakeChip {
	return &fakeChip{lines: lines, owned: map[int]bool{}}
}

func (c *fakeChip) open(chip, consumer string, offsets, values []int) (Device, error) {
	if c.permErr {
		return nil, fs.ErrPermission
	}
	for _, o := range offsets {
		if o >= c.lines {
			return nil, syscall.ENOENT
		}
		if c.owned[o] {
			return nil, syscall.EBUSY
		}
	}
	d := &fakeDevice{chip: c, consumer: consumer, offsets: offsets}
	d.values = append([]int(nil), values...)
	for _, o := range offsets {
		c.owned[o] = true
	}
	c.requests = append(c.requests, d)
	return d, nil
}

type fakeDevice struct {
	chip     *fakeChip
	consumer string
	offsets  []int
	values   []int
	setCalls int
	setErr   error
	closeErr error
	closed   bool
}

func (d *fakeDevice) SetValues(values []int) error {
	d.setCalls++
	if d.closed {
		return syscall.EBADF
	}
	if d.setErr != nil {
		return d.setErr
	}
	d.values = append([]int(nil), values...)
	return nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	for _, o := range d.offsets {
		delete(d.chip.owned, o)
	}
	return d.closeErr
}

func TestRequestValidation(t *testing.T) {
	testCases := []struct {
		name    string
		configs []LineConfig
	}{
		{name: "empty config set", configs: nil},
		{name: "negative offset", configs: []LineConfig{{Offset: -1, Value: Active}}},
		{name: "duplicate offset", configs: []LineConfig{{Offset: 17, Value: Active}, {Offset: 17, Value: Inactive}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chip := newFakeChip(32)
			ctrl := NewWith(chip.open)

			req, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", tc.configs)

			require.Nil(t, req)
			var acqErr *AcquireError
			require.ErrorAs(t, err, &acqErr)
			require.Equal(t, "/dev/gpiochip0", acqErr.Chip)
			require.Empty(t, chip.requests, "no device request must be opened")
		})
	}
}

func TestSingleLineLifecycle(t *testing.T) {
	chip := newFakeChip(32)
	ctrl := NewWith(chip.open)

	req, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 17, Value: Active}})
	require.NoError(t, err)
	require.Equal(t, []int{17}, req.Offsets())
	require.Equal(t, "gasguard-test", req.Consumer())

	v, err := req.Value(17)
	require.NoError(t, err)
	require.Equal(t, Active, v)
	require.Equal(t, []int{1}, chip.requests[0].values)

	require.NoError(t, req.SetValue(17, Inactive))
	v, err = req.Value(17)
	require.NoError(t, err)
	require.Equal(t, Inactive, v)
	require.Equal(t, []int{0}, chip.requests[0].values)

	require.NoError(t, req.Release())
	require.True(t, chip.requests[0].closed)
}

func TestBatchInitialValues(t *testing.T) {
	chip := newFakeChip(32)
	ctrl := NewWith(chip.open)

	req, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{
		{Offset: 17, Value: Active},
		{Offset: 27, Value: Inactive},
		{Offset: 22, Value: Active},
	})
	require.NoError(t, err)

	// One device request carrying every line and its initial value.
	require.Len(t, chip.requests, 1)
	require.Equal(t, []int{17, 27, 22}, chip.requests[0].offsets)
	require.Equal(t, []int{1, 0, 1}, chip.requests[0].values)
	require.Zero(t, chip.requests[0].setCalls, "initial values must not need a separate write")

	for offset, want := range map[int]Value{17: Active, 27: Inactive, 22: Active} {
		v, err := req.Value(offset)
		require.NoError(t, err)
		require.Equal(t, want, v)
	}

	for _, offset := range []int{17, 27, 22} {
		require.NoError(t, req.SetValue(offset, Inactive))
	}
	require.Equal(t, []int{0, 0, 0}, chip.requests[0].values)
	require.NoError(t, req.Release())
}

func TestMissingLine(t *testing.T) {
	chip := newFakeChip(32)
	ctrl := NewWith(chip.open)

	req, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 99, Value: Active}})

	require.Nil(t, req)
	var acqErr *AcquireError
	require.ErrorAs(t, err, &acqErr)
	require.Equal(t, []int{99}, acqErr.Offsets)
	require.ErrorIs(t, err, syscall.ENOENT)
}

func TestExclusiveOwnership(t *testing.T) {
	chip := newFakeChip(32)
	ctrl := NewWith(chip.open)

	first, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 17, Value: Active}})
	require.NoError(t, err)

	second, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 17, Value: Active}})
	require.Nil(t, second)
	require.ErrorIs(t, err, syscall.EBUSY)

	// The holder is unaffected by the losing attempt.
	require.NoError(t, first.SetValue(17, Inactive))
	require.NoError(t, first.Release())

	// Released lines are acquirable again.
	again, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 17, Value: Active}})
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestBatchFailureRetainsNothing(t *testing.T) {
	chip := newFakeChip(32)
	ctrl := NewWith(chip.open)

	held, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 27, Value: Active}})
	require.NoError(t, err)

	// 17 is free but 27 is owned, so the whole batch must fail and 17 must
	// stay acquirable afterwards.
	batch, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{
		{Offset: 17, Value: Active},
		{Offset: 27, Value: Active},
	})
	require.Nil(t, batch)
	require.ErrorIs(t, err, syscall.EBUSY)

	require.NoError(t, held.Release())
	solo, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 17, Value: Active}})
	require.NoError(t, err)
	require.NoError(t, solo.Release())
}

func TestSetValueOutsideOwnedSet(t *testing.T) {
	chip := newFakeChip(32)
	ctrl := NewWith(chip.open)

	req, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 17, Value: Active}})
	require.NoError(t, err)
	defer func() { require.NoError(t, req.Release()) }()

	err = req.SetValue(27, Active)
	var svErr *SetValueError
	require.ErrorAs(t, err, &svErr)
	require.Equal(t, 27, svErr.Offset)
	require.ErrorIs(t, err, ErrNotOwned)
	require.Zero(t, chip.requests[0].setCalls, "no write may reach the device")

	_, err = req.Value(27)
	require.ErrorIs(t, err, ErrNotOwned)
}

func TestDeadAfterRelease(t *testing.T) {
	testCases := []struct {
		name     string
		closeErr error
	}{
		{name: "clean release"},
		{name: "release reports device error", closeErr: syscall.ENODEV},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chip := newFakeChip(32)
			ctrl := NewWith(chip.open)

			req, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 17, Value: Active}})
			require.NoError(t, err)
			chip.requests[0].closeErr = tc.closeErr

			err = req.Release()
			if tc.closeErr != nil {
				var relErr *ReleaseError
				require.ErrorAs(t, err, &relErr)
				require.ErrorIs(t, err, tc.closeErr)
			} else {
				require.NoError(t, err)
			}

			// Dead either way: writes are rejected before touching the device.
			calls := chip.requests[0].setCalls
			err = req.SetValue(17, Active)
			require.ErrorIs(t, err, ErrReleased)
			require.Equal(t, calls, chip.requests[0].setCalls)

			_, err = req.Value(17)
			require.ErrorIs(t, err, ErrReleased)

			// Second release is a no-op.
			require.NoError(t, req.Release())
		})
	}
}

func TestFailedWriteLeavesSiblingsAlone(t *testing.T) {
	chip := newFakeChip(32)
	ctrl := NewWith(chip.open)

	req, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{
		{Offset: 17, Value: Inactive},
		{Offset: 27, Value: Inactive},
	})
	require.NoError(t, err)

	require.NoError(t, req.SetValue(17, Active))

	chip.requests[0].setErr = syscall.EIO
	err = req.SetValue(27, Active)
	require.ErrorIs(t, err, syscall.EIO)

	// 17 keeps the level of the earlier successful write, on the handle and
	// on the device.
	v, err := req.Value(17)
	require.NoError(t, err)
	require.Equal(t, Active, v)
	require.Equal(t, []int{1, 0}, chip.requests[0].values)

	// And 27 was never observed at the failed level.
	v, err = req.Value(27)
	require.NoError(t, err)
	require.Equal(t, Inactive, v)

	chip.requests[0].setErr = nil
	require.NoError(t, req.Release())
}

func TestPermissionDeniedIsDistinguishable(t *testing.T) {
	chip := newFakeChip(32)
	chip.permErr = true
	ctrl := NewWith(chip.open)

	_, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 17, Value: Active}})

	var acqErr *AcquireError
	require.ErrorAs(t, err, &acqErr)
	require.ErrorIs(t, err, fs.ErrPermission)
}

func TestOffsetsIsACopy(t *testing.T) {
	chip := newFakeChip(32)
	ctrl := NewWith(chip.open)

	req, err := ctrl.Request("/dev/gpiochip0", "gasguard-test", []LineConfig{{Offset: 17, Value: Active}})
	require.NoError(t, err)
	defer func() { require.NoError(t, req.Release()) }()

	offsets := req.Offsets()
	offsets[0] = 99
	require.Equal(t, []int{17}, req.Offsets())
	require.False(t, errors.Is(req.SetValue(17, Inactive), ErrNotOwned))
}
