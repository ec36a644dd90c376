// Package wire implements the broker's binary message format: the 16-byte
// envelope header, the prepend-built response buffer (CommBuf), request
// decoders, response encoders and the peer-side response decoder.
//
// All integers are little-endian. Strings are encoded as
// [length:uint16][UTF-8 bytes].
package wire

import "fmt"

// Command identifies a broker operation. It is the first field of every
// request body and is echoed in every response.
type Command uint16

const (
	CmdOpen   Command = 0
	CmdCreate Command = 1
	CmdClose  Command = 2
	CmdRead   Command = 3
	CmdWrite  Command = 4
	CmdSeek   Command = 5
	CmdLength Command = 8
	CmdPread  Command = 9
	CmdStatus Command = 11
	CmdFlush  Command = 12

	// Reserved for directory-tree and lifecycle operations the broker
	// does not serve. Requests carrying them get StatusUnknownCommand.
	CmdRemove   Command = 6
	CmdShutdown Command = 7
	CmdMkdirs   Command = 10
	CmdRmdir    Command = 13
	CmdReaddir  Command = 14
	CmdExists   Command = 15
	CmdRename   Command = 16
)

var commandNames = map[Command]string{
	CmdOpen:     "OPEN",
	CmdCreate:   "CREATE",
	CmdClose:    "CLOSE",
	CmdRead:     "READ",
	CmdWrite:    "WRITE",
	CmdSeek:     "SEEK",
	CmdLength:   "LENGTH",
	CmdPread:    "PREAD",
	CmdStatus:   "STATUS",
	CmdFlush:    "FLUSH",
	CmdRemove:   "REMOVE",
	CmdShutdown: "SHUTDOWN",
	CmdMkdirs:   "MKDIRS",
	CmdRmdir:    "RMDIR",
	CmdReaddir:  "READDIR",
	CmdExists:   "EXISTS",
	CmdRename:   "RENAME",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CMD(%d)", uint16(c))
}

// Served reports whether the broker implements c.
func (c Command) Served() bool {
	switch c {
	case CmdOpen, CmdCreate, CmdClose, CmdRead, CmdWrite, CmdSeek,
		CmdLength, CmdPread, CmdStatus, CmdFlush:
		return true
	}
	return false
}

// Status is the int32 result code leading every response.
type Status int32

const (
	StatusOK             Status = 0
	StatusProtocolError  Status = 1
	StatusUnknownCommand Status = 4

	StatusBadFileHandle    Status = 0x00020001
	StatusIOError          Status = 0x00020002
	StatusFileNotFound     Status = 0x00020003
	StatusBadFilename      Status = 0x00020004
	StatusPermissionDenied Status = 0x00020005
	StatusInvalidArgument  Status = 0x00020006
)

// StatusTruncatedMessage is reported when a request body is shorter than
// its command's fixed layout.
const StatusTruncatedMessage = StatusProtocolError

var statusNames = map[Status]string{
	StatusOK:               "OK",
	StatusProtocolError:    "PROTOCOL_ERROR",
	StatusUnknownCommand:   "UNKNOWN_COMMAND",
	StatusBadFileHandle:    "BAD_FILE_HANDLE",
	StatusIOError:          "IO_ERROR",
	StatusFileNotFound:     "FILE_NOT_FOUND",
	StatusBadFilename:      "BAD_FILENAME",
	StatusPermissionDenied: "PERMISSION_DENIED",
	StatusInvalidArgument:  "INVALID_ARGUMENT",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(0x%08x)", uint32(s))
}
