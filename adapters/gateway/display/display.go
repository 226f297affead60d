package display

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Go-routine-4595/iba-monitor/model"
)

type DisplayConfig struct {
	Enabled bool `yaml:"Enabled"`
	Bell    bool `yaml:"Bell"`
}

// Display is the local alarm annunciator: it prints each alarm and rings the
// terminal bell in place of the dashboard's alarm sound.
type Display struct {
	mu   sync.Mutex
	out  io.Writer
	bell bool
}

func NewDisplay(conf DisplayConfig) *Display {
	return NewDisplayWriter(os.Stdout, conf.Bell)
}

func NewDisplayWriter(w io.Writer, bell bool) *Display {
	return &Display{out: w, bell: bell}
}

func (d *Display) SendAlarm(a model.AlarmLog) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prefix := ""
	if d.bell {
		prefix = "\a"
	}
	_, err := fmt.Fprintf(d.out, "%s[%s] %s %s (%s): %s\n",
		prefix,
		a.Severity,
		time.UnixMilli(a.Timestamp).UTC().Format(time.RFC3339),
		a.SignalName,
		a.SignalID,
		a.Message,
	)
	if err != nil {
		return errors.Join(err, errors.New("failed to write alarm display.SendAlarm"))
	}
	return nil
}
