package device

import (
	"errors"
	"net/textproto"
	"strings"
	"sync"
)

// transferSucceededMarker is the text the Instant Replay puts in its final
// STOR reply ("226 Transfer succeeded."). The numeric code alone is not
// trusted by the device tooling, so the marker is matched verbatim.
const transferSucceededMarker = "Transfer succeeded"

// TransferSucceeded reports whether a final STOR reply confirms the upload.
func TransferSucceeded(reply string) bool {
	return strings.Contains(reply, transferSucceededMarker)
}

// IsPermissionDenied reports whether err carries a permanent negative FTP
// reply (5xx), which is how the device refuses logins, listings, and
// missing files.
func IsPermissionDenied(err error) bool {
	var protoErr *textproto.Error
	if !errors.As(err, &protoErr) {
		return false
	}
	return protoErr.Code >= 500 && protoErr.Code < 600
}

// replyRecorder receives the control-connection transcript from the FTP
// client and groups server replies by the command that triggered them.
type replyRecorder struct {
	mu        sync.Mutex
	partial   []byte
	exchanges []exchange
}

type exchange struct {
	verb    string
	replies []string
}

const maxExchanges = 32

func (r *replyRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partial = append(r.partial, p...)
	for {
		idx := strings.IndexByte(string(r.partial), '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(r.partial[:idx]), "\r")
		r.partial = r.partial[idx+1:]
		r.record(line)
	}
	return len(p), nil
}

func (r *replyRecorder) record(line string) {
	if line == "" {
		return
	}
	if !isReplyLine(line) {
		verb, _, _ := strings.Cut(line, " ")
		r.exchanges = append(r.exchanges, exchange{verb: strings.ToUpper(verb)})
		if len(r.exchanges) > maxExchanges {
			r.exchanges = append([]exchange(nil), r.exchanges[len(r.exchanges)-maxExchanges:]...)
		}
		return
	}
	if len(r.exchanges) == 0 {
		// greeting
		r.exchanges = append(r.exchanges, exchange{})
	}
	last := &r.exchanges[len(r.exchanges)-1]
	last.replies = append(last.replies, line)
}

// finalReply returns the completion reply of the most recent exchange for
// verb, without preliminary 1xx lines. Multi-line replies are joined with
// newlines.
func (r *replyRecorder) finalReply(verb string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.exchanges) - 1; i >= 0; i-- {
		ex := r.exchanges[i]
		if ex.verb != verb {
			continue
		}
		var lines []string
		for _, line := range ex.replies {
			if line[0] == '1' {
				continue
			}
			lines = append(lines, line)
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

// isReplyLine reports whether line was sent by the server. Client commands
// start with a letter; replies start with a three-digit code, and
// continuation lines of multi-line replies are indented.
func isReplyLine(line string) bool {
	if line[0] == ' ' {
		return true
	}
	if len(line) < 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if line[i] < '0' || line[i] > '9' {
			return false
		}
	}
	return true
}
