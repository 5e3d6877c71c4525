package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
)

type StdoutNotifier struct {
	name string
	out  io.Writer
}

func NewStdoutNotifier(name string) (*StdoutNotifier, error) {
	return &StdoutNotifier{
		name: name,
		out:  os.Stdout,
	}, nil
}

func (sout *StdoutNotifier) Name() string {
	return sout.name
}

func (sout *StdoutNotifier) Send(_ context.Context, msg Message, templates Templates) error {
	text, err := renderTemplate("stdout_message", templates.pick(msg.Event), msg)
	if err != nil {
		return fmt.Errorf("failed to render template for site '%s': %w", msg.SiteName, err)
	}
	_, err = fmt.Fprintf(sout.out, "%s\n", text)
	return err
}
