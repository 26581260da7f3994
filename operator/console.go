package operator

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"dutchAuction/state"

	"github.com/shopspring/decimal"
)

// OptionsLine lists the operator keys.
const OptionsLine = "(s) start  (p) pause  (q) quit"

// Console prints operator-facing lines. Safe for concurrent use.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	raw      bool
	now      func() time.Time
	decimals int32
}

// NewConsole writes to out, formatting money with the given decimal places.
func NewConsole(out io.Writer, decimals int) *Console {
	return &Console{out: out, now: time.Now, decimals: int32(decimals)}
}

// SetRaw switches line endings to CRLF while the terminal is in raw mode.
func (c *Console) SetRaw(raw bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = raw
}

// Event prints a timestamped line.
func (c *Console) Event(msg string) {
	c.write(fmt.Sprintf("\n[%s] %s\n", c.now().Format("15:04:05"), msg))
}

// Clients prints the connected participant list followed by the options line.
func (c *Console) Clients(ps []state.Participant) {
	var b bytes.Buffer
	b.WriteString("\nCurrent clients:\n")
	if len(ps) == 0 {
		b.WriteString("    NONE\n")
	}
	for _, p := range ps {
		money := decimal.NewFromFloat(p.Money).StringFixed(c.decimals)
		fmt.Fprintf(&b, "    %s %s  money %s  goods %d\n", p.Name, p.Address, money, p.Goods)
	}
	b.WriteString("\n" + OptionsLine + "\n")
	c.write(b.String())
}

// Options prints the options line.
func (c *Console) Options() {
	c.write("\n" + OptionsLine + "\n")
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.raw {
		s = string(toCRLF([]byte(s)))
	}
	_, _ = io.WriteString(c.out, s)
}

func (c *Console) isRaw() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw
}

// TerminalWriter wraps w, typically stderr for the logger, so that output
// written while the console is in raw mode also ends lines with CRLF.
func (c *Console) TerminalWriter(w io.Writer) io.Writer {
	return &terminalWriter{console: c, w: w}
}

type terminalWriter struct {
	console *Console
	w       io.Writer
}

func (t *terminalWriter) Write(p []byte) (int, error) {
	if !t.console.isRaw() {
		return t.w.Write(p)
	}
	if _, err := t.w.Write(toCRLF(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func toCRLF(p []byte) []byte {
	return bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
}
