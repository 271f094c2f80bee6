package sink

import (
	"FleetTrack/internal/util"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// VirtualPair is a socat-linked PTY pair. The simulator writes to Device while a
// consumer (gpsd, a dashboard bridge, a test) reads Peer as if it were a receiver.
type VirtualPair struct {
	Device string
	Peer   string

	mu     sync.Mutex
	cmd    *exec.Cmd
	closed bool
}

// NewVirtualPair starts socat linking device and peer and waits up to wait for both
// links to appear.
func NewVirtualPair(ctx context.Context, device, peer string, wait time.Duration) (*VirtualPair, error) {
	cmd := exec.CommandContext(ctx,
		"socat", "-d", "-d",
		fmt.Sprintf("pty,raw,echo=0,link=%s", device),
		fmt.Sprintf("pty,raw,echo=0,link=%s", peer),
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start socat: %w", err)
	}
	vp := &VirtualPair{Device: device, Peer: peer, cmd: cmd}

	deadline := time.Now().Add(wait)
	for !linked(device) || !linked(peer) {
		if time.Now().After(deadline) {
			_ = vp.Close()
			return nil, fmt.Errorf("socat links %s <-> %s not ready after %s", device, peer, wait)
		}
		time.Sleep(20 * time.Millisecond)
	}
	util.Component("sink").WithField("pid", cmd.Process.Pid).Infof("virtual serial %s <-> %s", device, peer)
	return vp, nil
}

func linked(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Close stops socat and removes the links. Safe to call more than once.
func (vp *VirtualPair) Close() error {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	if vp.closed {
		return nil
	}
	vp.closed = true
	if vp.cmd.Process != nil {
		_ = vp.cmd.Process.Kill()
		_ = vp.cmd.Wait()
	}
	for _, p := range []string{vp.Device, vp.Peer} {
		if linked(p) {
			if err := os.Remove(p); err != nil {
				return err
			}
		}
	}
	return nil
}
