package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
	"github.com/marmos91/fsbroker/pkg/backend"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want wire.Status
	}{
		{"nil", nil, wire.StatusOK},
		{"status error", wire.NewStatusError(wire.StatusBadFileHandle, nil, "gone"), wire.StatusBadFileHandle},
		{"wrapped status error", fmt.Errorf("ctx: %w", wire.NewStatusError(wire.StatusInvalidArgument, nil, "neg")), wire.StatusInvalidArgument},
		{"truncated", fmt.Errorf("decode: %w", wire.ErrTruncatedMessage), wire.StatusProtocolError},
		{"frame too large", fmt.Errorf("%w: 9 > 8", wire.ErrFrameTooLarge), wire.StatusProtocolError},
		{"not found", fmt.Errorf("s3: %w", backend.ErrNotFound), wire.StatusFileNotFound},
		{"fs not exist", fs.ErrNotExist, wire.StatusFileNotFound},
		{"invalid path", backend.ErrInvalidPath, wire.StatusBadFilename},
		{"permission", backend.ErrPermission, wire.StatusPermissionDenied},
		{"fs permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, wire.StatusPermissionDenied},
		{"invalid offset", backend.ErrInvalidOffset, wire.StatusInvalidArgument},
		{"exists", backend.ErrExists, wire.StatusIOError},
		{"other", errors.New("disk on fire"), wire.StatusIOError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := Classify(tt.err)
			assert.Equal(t, tt.want, got)
			if tt.err != nil {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestClassifyUsesStatusMessage(t *testing.T) {
	_, msg := Classify(wire.NewStatusError(wire.StatusBadFileHandle, nil, "no open file with handle %d", 7))
	assert.Equal(t, "no open file with handle 7", msg)
}

func TestReadCount(t *testing.T) {
	n, err := readCount(3, fs.ErrClosed, 4)
	assert.NoError(t, err)
	assert.Equal(t, int32(3), n)

	_, err = readCount(0, fs.ErrClosed, 4)
	assert.ErrorIs(t, err, fs.ErrClosed)
}
