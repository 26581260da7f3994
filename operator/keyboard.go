package operator

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const ctrlC = 3

// Commands is what the operator can drive.
type Commands interface {
	Start() bool
	Pause() bool
}

// Keyboard reads single-key operator commands.
type Keyboard struct {
	In      io.Reader
	Console *Console
	Engine  Commands
	// Quit is called once when the operator quits.
	Quit   func()
	Logger *zap.Logger

	mu       sync.Mutex
	restore  func()
	restored bool
	exit     func(code int)
}

// Run reads commands until quit or end of input. A terminal stdin is put in
// raw mode so keys act without Enter; anything else is read line by line.
func (k *Keyboard) Run() error {
	if f, ok := k.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return k.runRaw(f)
	}
	return k.runLines(k.In)
}

func (k *Keyboard) runRaw(f *os.File) error {
	fd := int(f.Fd())
	prev, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	k.Console.SetRaw(true)
	undo := func() {
		k.Console.SetRaw(false)
		_ = term.Restore(fd, prev)
	}
	if !k.setRestore(undo) {
		// the process is already shutting down
		undo()
		return nil
	}
	defer k.Restore()

	buf := make([]byte, 1)
	for {
		n, err := f.Read(buf)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read key: %w", err)
		}
		if n == 1 && !k.dispatch(buf[0]) {
			return nil
		}
	}
}

// setRestore records how to leave raw mode. It reports false once Restore
// has already run.
func (k *Keyboard) setRestore(fn func()) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.restored {
		return false
	}
	k.restore = fn
	return true
}

// Restore returns the terminal to the mode Run found it in. It is safe to
// call from any goroutine, more than once, and while Run is blocked reading.
func (k *Keyboard) Restore() {
	k.mu.Lock()
	fn := k.restore
	k.restore = nil
	k.restored = true
	k.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// OnWrite makes a Keyboard usable as zap's fatal hook: the terminal is
// restored before the process exits.
func (k *Keyboard) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) {
	k.Restore()
	exit := k.exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)
}

func (k *Keyboard) runLines(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !k.dispatch(line[0]) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read commands: %w", err)
	}
	return nil
}

// dispatch runs one key. It reports false when the operator quit.
func (k *Keyboard) dispatch(key byte) bool {
	log := k.Logger
	if log == nil {
		log = zap.NewNop()
	}

	switch key {
	case 's', 'S':
		if !k.Engine.Start() {
			log.Debug("Start ignored in current state")
		}
	case 'p', 'P':
		if !k.Engine.Pause() {
			log.Debug("Pause ignored in current state")
		}
	case 'q', 'Q', ctrlC:
		k.Console.Event("quitting")
		if k.Quit != nil {
			k.Quit()
		}
		return false
	default:
		k.Console.Options()
	}
	return true
}
