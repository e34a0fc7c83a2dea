package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/google/uuid"

	"github.com/unimail/unimail/pkgs/classify"
	"github.com/unimail/unimail/pkgs/message"
)

// DefaultFetchLimit caps a FetchRequest that does not state its own limit.
const DefaultFetchLimit = 20

// FetchRequest describes one bounded page of messages. It is a value
// object; the zero value means "first 20 of INBOX, read or unread".
type FetchRequest struct {
	// Limit is the page size; <=0 means DefaultFetchLimit.
	Limit int
	// Skip is the number of most-recent messages to pass over.
	Skip int
	// UnreadOnly restricts the search to messages without the seen flag.
	UnreadOnly bool
	// Mailbox defaults to INBOX.
	Mailbox string
}

func (r FetchRequest) limit() int {
	if r.Limit <= 0 {
		return DefaultFetchLimit
	}
	return r.Limit
}

func (r FetchRequest) mailbox() string {
	if r.Mailbox == "" {
		return "INBOX"
	}
	return r.Mailbox
}

// RawMessage is one fetched message in wire form, for archival.
type RawMessage struct {
	ID         string
	Raw        []byte
	ReceivedAt time.Time
}

// FetchEmails searches the mailbox, fetches the requested window in one bulk
// command, and parses each message concurrently into a NormalizedEmail.
//
// A single message's parse failure is logged and skipped; the call errors
// only when the bulk command itself fails, the budget expires, or every
// message in the batch fails to parse. Results are sorted by ReceivedAt
// descending regardless of arrival order.
func (e *Engine) FetchEmails(ctx context.Context, req FetchRequest) ([]message.NormalizedEmail, error) {
	bufs, err := e.fetchWindow(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(bufs) == 0 {
		return []message.NormalizedEmail{}, nil
	}

	var (
		mu      sync.Mutex
		results []message.NormalizedEmail
		failed  int
		wg      sync.WaitGroup
	)

	for _, buf := range bufs {
		wg.Add(1)
		go func(buf *imapclient.FetchMessageBuffer) {
			defer wg.Done()
			email, err := e.parseMessage(buf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				e.log.Warn("message parse failed",
					"seq", buf.SeqNum, "uid", uint32(buf.UID), "error", err)
				return
			}
			results = append(results, *email)
		}(buf)
	}
	wg.Wait()

	if len(results) == 0 && failed > 0 {
		return nil, classify.New(classify.ParsePartial,
			fmt.Sprintf("all %d messages in the batch failed to parse", failed), "")
	}
	if failed > 0 {
		e.log.Warn("batch completed with parse failures",
			"parsed", len(results), "failed", failed)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ReceivedAt.After(results[j].ReceivedAt)
	})
	return results, nil
}

// FetchRaw retrieves the same window as FetchEmails but keeps the messages
// in wire form, for mbox archival. Messages whose body section is missing
// are skipped.
func (e *Engine) FetchRaw(ctx context.Context, req FetchRequest) ([]RawMessage, error) {
	bufs, err := e.fetchWindow(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make([]RawMessage, 0, len(bufs))
	for _, buf := range bufs {
		raw := buf.FindBodySection(peekSection)
		if raw == nil {
			continue
		}
		received := buf.InternalDate
		if buf.Envelope != nil && !buf.Envelope.Date.IsZero() {
			received = buf.Envelope.Date
		}
		out = append(out, RawMessage{
			ID:         e.newMessageID(),
			Raw:        raw,
			ReceivedAt: received,
		})
	}
	return out, nil
}

// peekSection requests the full message body without setting the seen flag.
var peekSection = &imap.FetchItemBodySection{Peek: true}

// fetchWindow runs search + windowing + the single bulk fetch. It owns the
// serialized command stream for the duration of the call.
func (e *Engine) fetchWindow(ctx context.Context, req FetchRequest) ([]*imapclient.FetchMessageBuffer, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if st := e.currentState(); st != StateReady {
		ce := classify.New(classify.Transport,
			fmt.Sprintf("session is %s, not ready for fetch", st), "")
		e.setLastError(ce)
		return nil, ce
	}

	if mb := req.mailbox(); mb != e.mailbox {
		if err := e.selectMailbox(ctx, mb); err != nil {
			return nil, e.failFetch(err)
		}
	}

	seqs, err := e.search(ctx, req.UnreadOnly)
	if err != nil {
		return nil, e.failFetch(err)
	}

	win := window(seqs, req.limit(), req.Skip)
	if len(win) == 0 {
		return nil, nil
	}

	seqSet := imap.SeqSetNum(win...)
	fetchOptions := &imap.FetchOptions{
		Envelope:     true,
		Flags:        true,
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{peekSection},
	}

	var bufs []*imapclient.FetchMessageBuffer
	err = e.await(ctx, e.fetchTimeout, func() error {
		var err error
		bufs, err = e.client.Fetch(seqSet, fetchOptions).Collect()
		return err
	})
	if err != nil {
		return nil, e.failFetch(fmt.Errorf("fetching %d messages: %w", len(win), err))
	}

	e.log.Debug("bulk fetch complete",
		"mailbox", e.mailbox, "requested", len(win), "received", len(bufs))
	return bufs, nil
}

// search returns matching sequence numbers in ascending server order. The
// result is transient: sequence numbers are not stable across sessions and
// are recomputed on every call.
func (e *Engine) search(ctx context.Context, unreadOnly bool) ([]uint32, error) {
	criteria := &imap.SearchCriteria{}
	if unreadOnly {
		criteria.NotFlag = []imap.Flag{imap.FlagSeen}
	}

	var data *imap.SearchData
	err := e.await(ctx, e.fetchTimeout, func() error {
		var err error
		data, err = e.client.Search(criteria, nil).Wait()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", e.mailbox, err)
	}

	seqs := data.AllSeqNums()
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs, nil
}

// failFetch settles the session as Failed with the classified cause and
// returns it. A mid-fetch transport error leaves the command stream in an
// unknown position, so the session cannot be reused.
func (e *Engine) failFetch(err error) *classify.Error {
	ce := classify.Classify(err)
	e.fail(ce)
	return ce
}

// parseMessage runs the parse pipeline for one fetch buffer.
func (e *Engine) parseMessage(buf *imapclient.FetchMessageBuffer) (*message.NormalizedEmail, error) {
	raw := buf.FindBodySection(peekSection)
	if raw == nil {
		return nil, fmt.Errorf("no body section for seq %d", buf.SeqNum)
	}

	received := buf.InternalDate
	if buf.Envelope != nil && !buf.Envelope.Date.IsZero() {
		received = buf.Envelope.Date
	}

	// A message is read unless flag information explicitly marks it
	// unseen. Missing flag data leaves it read.
	unseen := false
	if buf.Flags != nil {
		unseen = true
		for _, f := range buf.Flags {
			if f == imap.FlagSeen {
				unseen = false
				break
			}
		}
	}

	id := e.newMessageID()
	email, err := message.Parse(raw, message.ParseOptions{
		ID:            id,
		ProviderLabel: e.cred.Provider,
		Unseen:        unseen,
		ReceivedAt:    received,
	})
	if err != nil {
		return nil, err
	}

	e.stateMu.Lock()
	e.uidByID[id] = buf.UID
	e.stateMu.Unlock()

	return email, nil
}

// newMessageID builds a provider-scoped id for one fetched message. Ids are
// random and session-local; the stable UID is tracked separately for flag
// updates.
func (e *Engine) newMessageID() string {
	return e.cred.Provider + "-" + uuid.NewString()
}

// MarkAsRead sets or clears the seen flag for a message fetched earlier in
// this session. It is best-effort: the id is only valid for UIDs captured at
// fetch time, and a server-side failure does not end the session.
func (e *Engine) MarkAsRead(ctx context.Context, id string, read bool) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if st := e.currentState(); st != StateReady {
		return classify.New(classify.Transport,
			fmt.Sprintf("session is %s, not ready for flag update", st), "")
	}

	e.stateMu.Lock()
	uid, ok := e.uidByID[id]
	e.stateMu.Unlock()
	if !ok {
		return fmt.Errorf("unknown message id %q: not fetched in this session", id)
	}

	op := imap.StoreFlagsAdd
	if !read {
		op = imap.StoreFlagsDel
	}

	err := e.await(ctx, e.fetchTimeout, func() error {
		_, err := e.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
			Op:     op,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagSeen},
		}, nil).Collect()
		return err
	})
	if err != nil {
		return fmt.Errorf("updating seen flag for %s: %w", id, err)
	}
	return nil
}
