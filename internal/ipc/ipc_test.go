package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func echo(_ context.Context, msg ControlMessage) ControlReply {
	switch msg.Cmd {
	case CmdAsk:
		return Ok("you asked: " + msg.Text)
	case CmdTrigger:
		return Ok("")
	}
	return Fail("unknown command %q", msg.Cmd)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luna.sock")
	srv, err := StartServer(context.Background(), path, echo)
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := SendCommand(ctx, path, ControlMessage{Cmd: CmdAsk, Text: "what time is it"})
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, "you asked: what time is it", reply.Reply)

	reply, err = SendCommand(ctx, path, ControlMessage{Cmd: CmdTrigger})
	require.NoError(t, err)
	assert.True(t, reply.OK)
}

func TestFailureReply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luna.sock")
	srv, err := StartServer(context.Background(), path, echo)
	require.NoError(t, err)
	defer srv.Close()

	reply, err := SendCommand(context.Background(), path, ControlMessage{Cmd: "dance"})
	require.EqualError(t, err, `unknown command "dance"`)
	assert.False(t, reply.OK)
}

func TestStaleSocketReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luna.sock")

	first, err := StartServer(context.Background(), path, echo)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := StartServer(context.Background(), path, echo)
	require.NoError(t, err)
	defer second.Close()

	_, err = SendCommand(context.Background(), path, ControlMessage{Cmd: CmdTrigger})
	require.NoError(t, err)
}

func TestContextStopsServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luna.sock")
	ctx, cancel := context.WithCancel(context.Background())

	srv, err := StartServer(ctx, path, echo)
	require.NoError(t, err)

	cancel()
	require.NoError(t, srv.Close())

	_, err = SendCommand(context.Background(), path, ControlMessage{Cmd: CmdTrigger})
	assert.Error(t, err)
}

func TestDaemonNotRunning(t *testing.T) {
	_, err := SendCommand(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), ControlMessage{Cmd: CmdTrigger})
	assert.Error(t, err)
}
