package wire

import (
	"errors"
	"fmt"
	"time"
)

// ErrBadAck is returned when a command expecting the single-byte 0x01 ack
// receives anything else. At attach time this is fatal; once a device is
// already running, callers treat it the same as a transport fault and
// reopen, since a wedged firmware state is indistinguishable from a byte
// that got lost in transit.
var ErrBadAck = errors.New("wire: unexpected ack byte")

// Transport is the byte-level dependency Codec drives. serial.Port
// satisfies it; tests supply a fake.
type Transport interface {
	Write(data []byte) error
	ReadExact(data []byte, timeout time.Duration) error
	ReadTimeout(data []byte, timeout time.Duration) (int, error)
	ReadAvailable(timeout time.Duration) ([]byte, error)
}

// Codec drives one Transport through the ModMiner command set, enforcing
// each command's documented reply framing. It holds no device state of its
// own; callers own locking and reopen.
type Codec struct {
	T       Transport
	Timeout time.Duration
}

func New(t Transport, timeout time.Duration) *Codec {
	return &Codec{T: t, Timeout: timeout}
}

func (c *Codec) readAck() error {
	var ack [1]byte
	if err := c.T.ReadExact(ack[:], c.Timeout); err != nil {
		return err
	}
	if ack[0] != 0x01 {
		return fmt.Errorf("%w: got %#x", ErrBadAck, ack[0])
	}
	return nil
}

// Flush sends PING followed by FlushPad 0xFF bytes, then drains whatever
// the firmware sends back. Used once at attach.
func (c *Codec) Flush() error {
	buf := make([]byte, 1+FlushPad)
	buf[0] = byte(OpPing)
	for i := 1; i < len(buf); i++ {
		buf[i] = 0xFF
	}
	if err := c.T.Write(buf); err != nil {
		return err
	}
	_, err := c.T.ReadAvailable(c.Timeout)
	return err
}

// GetVersion returns the device's printable version string, delimited by
// the read timeout rather than a length prefix.
func (c *Codec) GetVersion() (string, error) {
	if err := c.T.Write([]byte{byte(OpGetVersion)}); err != nil {
		return "", err
	}
	reply, err := c.T.ReadAvailable(c.Timeout)
	if err != nil {
		return "", err
	}
	return string(reply), nil
}

// FPGACount returns N, the number of FPGAs the device reports.
func (c *Codec) FPGACount() (int, error) {
	if err := c.T.Write([]byte{byte(OpFPGACount)}); err != nil {
		return 0, err
	}
	var reply [1]byte
	if err := c.T.ReadExact(reply[:], c.Timeout); err != nil {
		return 0, err
	}
	return int(reply[0]), nil
}

func (c *Codec) read4(op Opcode, fpgaid byte) ([4]byte, error) {
	var out [4]byte
	if err := c.T.Write([]byte{byte(op), fpgaid}); err != nil {
		return out, err
	}
	err := c.T.ReadExact(out[:], c.Timeout)
	return out, err
}

func (c *Codec) GetIDCode(fpgaid byte) ([4]byte, error) {
	return c.read4(OpGetIDCode, fpgaid)
}

func (c *Codec) GetUserCode(fpgaid byte) ([4]byte, error) {
	return c.read4(OpGetUserCode, fpgaid)
}

// ProgramHeader begins a PROGRAM sequence for length bytes addressed at
// fpgaid (normally FPGAIDAll). The caller then streams ProgramChunk calls
// covering exactly length bytes.
func (c *Codec) ProgramHeader(fpgaid byte, length uint32) error {
	if err := c.T.Write(encodeProgramHeader(fpgaid, length)); err != nil {
		return err
	}
	return c.readAck()
}

// ProgramChunk writes one chunk (ProgramChunkSize bytes, or shorter for
// the final chunk) and consumes its ack.
func (c *Codec) ProgramChunk(chunk []byte) error {
	if err := c.T.Write(chunk); err != nil {
		return err
	}
	return c.readAck()
}

// SetClock requests clockMHz (even) for fpgaid and reports whether the
// device accepted it.
func (c *Codec) SetClock(fpgaid byte, clockMHz byte) (bool, error) {
	if err := c.T.Write(encodeSetClock(fpgaid, clockMHz)); err != nil {
		return false, err
	}
	var reply [1]byte
	if err := c.T.ReadExact(reply[:], c.Timeout); err != nil {
		return false, err
	}
	return reply[0] != 0, nil
}

func (c *Codec) ReadClock(fpgaid byte) (byte, error) {
	if err := c.T.Write([]byte{byte(OpReadClock), fpgaid}); err != nil {
		return 0, err
	}
	var reply [1]byte
	err := c.T.ReadExact(reply[:], c.Timeout)
	return reply[0], err
}

// SendWork submits one work unit's midstate and tail data to fpgaid and
// waits for the ack.
func (c *Codec) SendWork(fpgaid byte, midstate [32]byte, tail [12]byte) error {
	if err := c.T.Write(encodeSendWork(fpgaid, midstate, tail)); err != nil {
		return err
	}
	return c.readAck()
}

// CheckWork polls fpgaid for a candidate nonce. The returned value may be
// NoNonce or DisabledNonce; callers compare against those sentinels before
// treating it as a candidate.
func (c *Codec) CheckWork(fpgaid byte) (uint32, error) {
	reply, err := c.read4(OpCheckWork, fpgaid)
	if err != nil {
		return 0, err
	}
	return decodeNonce(reply), nil
}

// Temp1 reads fpgaid's temperature in whole degrees C.
func (c *Codec) Temp1(fpgaid byte) (byte, error) {
	if err := c.T.Write([]byte{byte(OpTemp1), fpgaid}); err != nil {
		return 0, err
	}
	var reply [1]byte
	err := c.T.ReadExact(reply[:], c.Timeout)
	return reply[0], err
}
