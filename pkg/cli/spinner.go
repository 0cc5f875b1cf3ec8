package cli

import (
	"io"
	"sync"
	"time"

	"biochat/pkg/ui/styles"

	"charm.land/bubbles/v2/spinner"
	"github.com/charmbracelet/x/ansi"
)

// progress animates a one-line spinner on w until stop is called. The line
// is erased on stop so the answer prints where the spinner was.
type progress struct {
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func startProgress(w io.Writer, s spinner.Spinner, label string, color bool) *progress {
	p := &progress{done: make(chan struct{})}
	fps := s.FPS
	if fps <= 0 {
		fps = time.Second / 10
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(fps)
		defer ticker.Stop()

		for i := 0; ; i++ {
			frame := s.Frames[i%len(s.Frames)]
			if color {
				frame = styles.SpinnerStyle.Render(frame)
			}
			_, _ = io.WriteString(w, "\r"+frame+" "+label)

			select {
			case <-p.done:
				_, _ = io.WriteString(w, "\r"+ansi.EraseEntireLine)
				return
			case <-ticker.C:
			}
		}
	}()
	return p
}

func (p *progress) stop() {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}
