package runner

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/maxvaer/cmsid/internal/scanner"
)

type keyAction int

const (
	keyIgnore keyAction = iota
	keyToggle
	keyInterrupt
)

const ctrlC = 0x03

func classifyKey(b byte) keyAction {
	switch b {
	case ctrlC:
		return keyInterrupt
	case '\r', '\n', ' ', 'p', 'P':
		return keyToggle
	}
	return keyIgnore
}

// pauseToggle turns keypresses into pause state changes on a shared Pauser.
type pauseToggle struct {
	pauser    *scanner.Pauser
	status    io.Writer // nil when quiet
	log       logrus.FieldLogger
	interrupt func()
}

// run consumes keys from in until EOF, a read error or Ctrl+C.
func (pt *pauseToggle) run(in io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		switch classifyKey(buf[0]) {
		case keyInterrupt:
			if pt.interrupt != nil {
				pt.interrupt()
			}
			return
		case keyToggle:
			pt.toggle()
		}
	}
}

func (pt *pauseToggle) toggle() {
	paused := pt.pauser.Toggle()
	if paused {
		pt.log.Debug("scan paused")
	} else {
		pt.log.WithField("paused_total", pt.pauser.PausedDuration()).Debug("scan resumed")
	}
	if pt.status == nil {
		return
	}
	if paused {
		fmt.Fprint(pt.status, "\r\033[K[*] Scan PAUSED, press Enter or Space to resume\n")
	} else {
		fmt.Fprint(pt.status, "\r\033[K[*] Scan RESUMED\n")
	}
}

// startStdinToggle puts the terminal in raw mode and lets the user pause
// the scan from the keyboard. The returned cleanup restores the terminal.
// When stdin is not a terminal the pauser is nil.
func startStdinToggle(quiet bool, log logrus.FieldLogger) (*scanner.Pauser, func()) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, func() {}
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.WithError(err).Warn("could not enable raw terminal, pause disabled")
		return nil, func() {}
	}
	// Raw mode drops OPOST; keep \n -> \r\n on output.
	fixOutputProcessing(fd)

	restore := func() { _ = term.Restore(fd, oldState) }
	pt := &pauseToggle{
		pauser: scanner.NewPauser(),
		log:    log,
		interrupt: func() {
			restore()
			sendInterrupt()
		},
	}
	if !quiet {
		pt.status = os.Stderr
	}
	go pt.run(os.Stdin)
	return pt.pauser, restore
}
