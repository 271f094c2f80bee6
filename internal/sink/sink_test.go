package sink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closeBuffer) Close() error {
	c.closed = true
	return nil
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterLines(t *testing.T) {
	t.Parallel()
	var buf closeBuffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteLine("$GPRMC,a"))
	require.NoError(t, w.WriteLine("$GPRMC,b"))
	assert.Equal(t, "$GPRMC,a\n$GPRMC,b\n", buf.String())

	require.NoError(t, w.Close())
	assert.True(t, buf.closed)
}

func TestWriterError(t *testing.T) {
	t.Parallel()
	w := NewWriter(failWriter{})
	assert.Error(t, w.WriteLine("x"))
}

func TestOpenSerialMissingDevice(t *testing.T) {
	t.Parallel()
	_, err := OpenSerial("/dev/fleettrack-does-not-exist", 9600)
	assert.Error(t, err)
}

func TestVirtualPairRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("socat"); err != nil {
		t.Skip("socat not installed")
	}
	dir := t.TempDir()
	vp, err := NewVirtualPair(context.Background(), filepath.Join(dir, "gps"), filepath.Join(dir, "peer"), 2*time.Second)
	require.NoError(t, err)
	defer vp.Close()

	out, err := OpenSerial(vp.Device, 9600)
	require.NoError(t, err)
	defer out.Close()
	in, err := OpenSerial(vp.Peer, 9600)
	require.NoError(t, err)
	defer in.Close()
	require.NoError(t, in.port.SetReadTimeout(2*time.Second))

	require.NoError(t, out.WriteLine("$GPRMC,hello"))
	line, err := bufio.NewReader(in.port).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "$GPRMC,hello\n", line)

	require.NoError(t, vp.Close())
	_, err = os.Lstat(vp.Device)
	assert.True(t, os.IsNotExist(err))
}
