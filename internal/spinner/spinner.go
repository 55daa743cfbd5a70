// Package spinner draws a progress indicator while the CLI waits on a
// cache refresh or a remote server.
package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Interactive reports whether w is a terminal the spinner can redraw.
func Interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start animates message on w until the returned function is called. The
// stop function clears the line and is safe to call more than once. When w
// is not a terminal the message is printed once instead.
func Start(w io.Writer, message string) (stop func()) {
	if !Interactive(w) {
		fmt.Fprintln(w, message) //nolint:errcheck
		return func() {}
	}
	return animate(w, message, interval)
}

func animate(w io.Writer, message string, every time.Duration) func() {
	done := make(chan struct{})
	cleared := make(chan struct{})
	width := runewidth.StringWidth(message) + 2

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-done:
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", width)) //nolint:errcheck
				close(cleared)
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], message) //nolint:errcheck
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-cleared
	}
}
