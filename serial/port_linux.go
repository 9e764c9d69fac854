// Package serial implements the blocking, timeout-bounded byte transport
// a ModMiner-class board is driven over: open a path, write commands, read
// fixed or drained replies, and reopen on a transient fault without losing
// track of anything above the transport.
package serial

import (
	"github.com/daedaluz/fdev/poll"
	ioctl "github.com/daedaluz/goioctl"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"
)

// Options configures a Port at Open time.
type Options struct {
	ReadTimeout time.Duration
	BaudRate    CFlag
	OpenMode    int
}

// NewOptions returns the defaults a ModMiner board is opened with: 1s read
// timeout, 115200 baud, read-write without becoming the controlling tty.
func NewOptions() *Options {
	return &Options{
		ReadTimeout: time.Second,
		BaudRate:    B115200,
		OpenMode:    syscall.O_RDWR | syscall.O_NOCTTY,
	}
}

func (o *Options) SetReadTimeout(timeout time.Duration) *Options {
	o.ReadTimeout = timeout
	return o
}

func (o *Options) SetBaudRate(speed CFlag) *Options {
	o.BaudRate = speed
	return o
}

// Port is one open serial device. Closed state is tracked with an atomic
// flag so a concurrent Write/Read racing a Close observes ErrClosed rather
// than operating on a stale descriptor.
type Port struct {
	name    string
	options *Options
	closed  atomic.Bool
	f       int
}

// Open opens name in raw 8N1 mode at the configured baud rate. A nil
// Options pointer uses NewOptions().
func Open(name string, opts *Options) (*Port, error) {
	if opts == nil {
		opts = NewOptions()
	}
	fd, err := syscall.Open(name, opts.OpenMode, 0)
	if err != nil {
		return nil, wrapErr("open "+name, err)
	}
	p := &Port{name: name, options: opts, f: fd}
	if err := p.makeRaw(); err != nil {
		_ = syscall.Close(fd)
		return nil, wrapErr("configure "+name, err)
	}
	return p, nil
}

// Reopen closes the underlying descriptor, if still open, and opens the
// same path again with the same options. It carries no in-flight state
// across the call; FPGA state lives above the transport for exactly this
// reason.
func (p *Port) Reopen() error {
	_ = p.Close()
	fd, err := syscall.Open(p.name, p.options.OpenMode, 0)
	if err != nil {
		return wrapErr("reopen "+p.name, err)
	}
	p.f = fd
	p.closed.Store(false)
	if err := p.makeRaw(); err != nil {
		_ = syscall.Close(fd)
		return wrapErr("configure "+p.name, err)
	}
	return nil
}

func (p *Port) makeRaw() error {
	attrs := &Termios{}
	if err := ioctl.Ioctl(uintptr(p.f), tcgets, uintptr(unsafe.Pointer(attrs))); err != nil {
		return err
	}
	attrs.MakeRaw()
	attrs.SetSpeed(p.options.BaudRate)
	return ioctl.Ioctl(uintptr(p.f), tcsets, uintptr(unsafe.Pointer(attrs)))
}

// Write writes all of data. The wire protocol has no partial-frame
// recovery, so a short write is surfaced as an error rather than retried.
func (p *Port) Write(data []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	n, err := syscall.Write(p.f, data)
	if err != nil {
		return wrapErr("write", err)
	}
	if n != len(data) {
		return wrapErr("short write", syscall.EIO)
	}
	return nil
}

// ReadTimeout blocks until data is available, the deadline elapses, or the
// port is closed. A zero-byte read on a ready descriptor is reported as
// ErrTimeout: every read is timeout-bounded, there is no "read forever".
func (p *Port) ReadTimeout(data []byte, timeout time.Duration) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	if err := poll.WaitInput(p.f, timeout); err != nil {
		return 0, wrapErr("wait for input", err)
	}
	n, err := syscall.Read(p.f, data)
	if err != nil {
		return n, wrapErr("read", err)
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

// ReadExact blocks until exactly len(data) bytes have been read or the
// timeout elapses, accumulating across short reads.
func (p *Port) ReadExact(data []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	read := 0
	for read < len(data) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		n, err := p.ReadTimeout(data[read:], remaining)
		if err != nil {
			return err
		}
		read += n
	}
	return nil
}

// ReadAvailable drains whatever the device sends until a read times out.
// Used to consume GET_VERSION's reply and to flush stray bytes after the
// attach-time PING.
func (p *Port) ReadAvailable(timeout time.Duration) ([]byte, error) {
	var out []byte
	buf := make([]byte, 256)
	for {
		n, err := p.ReadTimeout(buf, timeout)
		if err == ErrTimeout {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, buf[:n]...)
	}
}

func (p *Port) Close() error {
	if !p.closed.Swap(true) {
		fd := p.f
		p.f = -1
		return syscall.Close(fd)
	}
	return nil
}

// Drain waits until all written output has been transmitted.
func (p *Port) Drain() error {
	if p.closed.Load() {
		return ErrClosed
	}
	return wrapErr("drain", ioctl.Ioctl(uintptr(p.f), tcsbrk, 1))
}

// Flush discards unread input, unwritten output, or both, depending on
// queue.
func (p *Port) Flush(queue Queue) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return wrapErr("flush", ioctl.Ioctl(uintptr(p.f), tcflsh, uintptr(queue)))
}
