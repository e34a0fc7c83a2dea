package message

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	// Registers decoders for non-UTF-8 charsets seen in the wild.
	_ "github.com/emersion/go-message/charset"
)

// NoSubject is the subject placeholder used when the header is absent.
const NoSubject = "(no subject)"

// ParseOptions carries the per-message context the raw payload cannot
// provide: session-derived flags and engine-assigned identity.
type ParseOptions struct {
	// ID is the engine-generated, provider-scoped identifier.
	ID string
	// ProviderLabel names the account/provider the message came from.
	ProviderLabel string
	// Unseen marks the message as explicitly not read. Absent flag
	// information leaves the message read.
	Unseen bool
	// ReceivedAt is the fallback timestamp when the Date header is
	// missing or unparsable.
	ReceivedAt time.Time
}

// Parse converts one raw RFC 5322 message into a NormalizedEmail.
//
// Attachment bodies are never retained: they are read only to measure their
// size. Any header, structure or decode failure surfaces as an error so the
// caller can count the message as a partial failure instead of aborting the
// batch.
func Parse(raw []byte, opts ParseOptions) (*NormalizedEmail, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	out := &NormalizedEmail{
		ID:            opts.ID,
		ProviderLabel: opts.ProviderLabel,
		IsRead:        !opts.Unseen,
		ReceivedAt:    opts.ReceivedAt,
	}

	header := mr.Header

	if from, err := header.Text("From"); err == nil && from != "" {
		out.Sender = ParseAddress(from)
	}

	subject, _ := header.Subject()
	if subject == "" {
		subject = NoSubject
	}
	out.Subject = subject

	if date, err := header.Date(); err == nil && !date.IsZero() {
		out.ReceivedAt = date
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("reading %s body: %w", ct, err)
			}
			switch {
			case strings.HasPrefix(ct, "text/plain") && out.BodyPlain == "":
				out.BodyPlain = string(body)
			case strings.HasPrefix(ct, "text/html") && out.BodyHTML == "":
				out.BodyHTML = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			// Read for the size only; the bytes are dropped.
			n, err := io.Copy(io.Discard, part.Body)
			if err != nil {
				return nil, fmt.Errorf("reading attachment %q: %w", filename, err)
			}
			out.Attachments = append(out.Attachments, AttachmentMeta{
				Filename:    filename,
				SizeBytes:   n,
				ContentType: ct,
			})
		}
	}

	out.PreviewText = Preview(out.BodyPlain, out.BodyHTML, PreviewMaxLen)

	return out, nil
}
