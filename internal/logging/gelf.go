package logging

import (
	"fmt"
	"io"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGelfWriter connects a GELF writer for shipping logs to Graylog.
// The returned writer can be added to a zerolog multi-level writer.
func NewGelfWriter(address string) (io.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("error creating gelf writer: %v", err)
	}
	return w, nil
}
