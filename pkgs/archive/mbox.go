// Package archive writes fetched messages to local mbox files.
package archive

import (
	"fmt"
	"io"
	"os"

	"github.com/emersion/go-mbox"

	"github.com/unimail/unimail/pkgs/engine"
)

// WriteMbox appends every raw message to w in mbox format. The engine id
// serves as the envelope sender line; readers only use it for separation.
func WriteMbox(w io.Writer, msgs []engine.RawMessage) error {
	mw := mbox.NewWriter(w)
	for _, msg := range msgs {
		mwr, err := mw.CreateMessage(msg.ID, msg.ReceivedAt)
		if err != nil {
			return fmt.Errorf("starting mbox entry %s: %w", msg.ID, err)
		}
		if _, err := mwr.Write(msg.Raw); err != nil {
			return fmt.Errorf("writing mbox entry %s: %w", msg.ID, err)
		}
	}
	return mw.Close()
}

// SaveMbox writes msgs to path, creating or truncating the file.
func SaveMbox(path string, msgs []engine.RawMessage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteMbox(f, msgs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CountMessages reads an mbox stream and returns how many messages it
// contains.
func CountMessages(r io.Reader) (int, error) {
	mr := mbox.NewReader(r)
	count := 0
	for {
		msg, err := mr.NextMessage()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("reading mbox entry %d: %w", count, err)
		}
		if _, err := io.Copy(io.Discard, msg); err != nil {
			return count, fmt.Errorf("draining mbox entry %d: %w", count, err)
		}
		count++
	}
}
