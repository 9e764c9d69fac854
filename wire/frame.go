// Package wire implements the ModMiner command set: opcode framing and
// fixed-width reply decoding. All multi-byte values on the wire are
// little-endian.
package wire

import "encoding/binary"

type Opcode byte

const (
	OpPing        Opcode = 0x00
	OpGetVersion  Opcode = 0x01
	OpFPGACount   Opcode = 0x02
	OpGetIDCode   Opcode = 0x03
	OpGetUserCode Opcode = 0x04
	OpProgram     Opcode = 0x05
	OpSetClock    Opcode = 0x06
	OpReadClock   Opcode = 0x07
	OpSendWork    Opcode = 0x08
	OpCheckWork   Opcode = 0x09
	OpTemp1       Opcode = 0x0A
)

// FPGAIDAll addresses every FPGA on a device at once; only PROGRAM uses it.
const FPGAIDAll = 4

// FlushPad is written after an attach-time PING to clear an in-progress
// "start job" state some firmware revisions get stuck in (bfgminer issue
// #62). The length is a firmware quirk, not a derived value.
const FlushPad = 45

// MaxFPGAs bounds FPGACount's reply; a device reporting outside [1,4] is a
// protocol violation.
const MaxFPGAs = 4

// UserCodeSignature is the USERCODE value a correctly programmed FPGA
// reports.
var UserCodeSignature = [4]byte{0x02, 0x04, 0x24, 0x42}

// NoNonce and DisabledNonce are CHECK_WORK's two sentinel replies, decoded
// as the little-endian uint32 the wire bytes represent.
const (
	NoNonce       uint32 = 0xFFFFFFFF
	DisabledNonce uint32 = 0xFFFFFF00 // wire bytes {0x00,0xFF,0xFF,0xFF}
)

// ProgramChunkSize is the fixed chunk length the bitstream uploader streams
// in; only the final chunk may be shorter.
const ProgramChunkSize = 32

func encodeProgramHeader(fpgaid byte, length uint32) []byte {
	buf := make([]byte, 6)
	buf[0] = byte(OpProgram)
	buf[1] = fpgaid
	binary.LittleEndian.PutUint32(buf[2:], length)
	return buf
}

func encodeSetClock(fpgaid byte, clockMHz byte) []byte {
	return []byte{byte(OpSetClock), fpgaid, clockMHz, 0, 0, 0}
}

func encodeSendWork(fpgaid byte, midstate [32]byte, tail [12]byte) []byte {
	buf := make([]byte, 2+32+12)
	buf[0] = byte(OpSendWork)
	buf[1] = fpgaid
	copy(buf[2:34], midstate[:])
	copy(buf[34:46], tail[:])
	return buf
}

func decodeNonce(reply [4]byte) uint32 {
	return binary.LittleEndian.Uint32(reply[:])
}
