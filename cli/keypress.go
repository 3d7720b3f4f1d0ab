package cli

import (
	"bytes"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

const ctrlC = 0x03

// watchKeys reads r until it ends and calls onQuit once for the first q, Q or ctrl-C byte.
func watchKeys(r io.Reader, onQuit func()) {
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if b == 'q' || b == 'Q' || b == ctrlC {
				onQuit()
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// startKeyWatcher runs watchKeys on r in the background. The returned stop unblocks a pending
// Read through a deadline and waits for the watcher to exit. When r has no deadline support,
// stop returns at once and the watcher ends with r.
func startKeyWatcher(r *os.File, onQuit func()) (stop func()) {
	interruptible := r.SetReadDeadline(time.Time{}) == nil
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchKeys(r, onQuit)
	}()
	return func() {
		if !interruptible {
			return
		}
		r.SetReadDeadline(time.Now()) //nolint:errcheck
		<-done
	}
}

// openKeyInput opens the controlling terminal as its own pollable file, so key reads can be
// interrupted without touching the flags of in, which stdout often shares. It falls back to in.
func openKeyInput(in *os.File) (*os.File, func()) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return in, func() {}
	}
	return tty, func() {
		tty.Close() //nolint:errcheck
	}
}

// enableQuitKey puts an interactive stdin into raw mode so a single q press quits, and
// watches for it in the background. It returns a function that stops the watcher and restores
// the terminal, and whether raw mode is on. Raw mode also disables output post-processing, see
// crlfWriter.
func enableQuitKey(in *os.File, onQuit func()) (func(), bool) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, false
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}, false
	}
	keys, closeKeys := openKeyInput(in)
	stopWatcher := startKeyWatcher(keys, onQuit)
	return func() {
		stopWatcher()
		closeKeys()
		term.Restore(fd, state) //nolint:errcheck
	}, true
}

// crlfWriter turns \n into \r\n for a terminal in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (cw crlfWriter) Write(p []byte) (int, error) {
	if !bytes.Contains(p, []byte{'\n'}) {
		return cw.w.Write(p)
	}
	if _, err := cw.w.Write(bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\r', '\n'})); err != nil {
		return 0, err
	}
	return len(p), nil
}
