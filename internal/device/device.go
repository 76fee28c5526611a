package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"cmd360/internal/logging"
)

// DefaultPort is the FTP control port used when the host carries none.
const DefaultPort = 21

// Session is one authenticated FTP connection to an Instant Replay unit.
type Session interface {
	// Store uploads r under name and returns the final server reply text.
	Store(name string, r io.Reader) (string, error)
	// Retrieve streams the remote file into w.
	Retrieve(name string, w io.Writer) error
	// NameList returns every name the device lists (NLST), in server order.
	NameList() ([]string, error)
	// List returns the parsed LIST entries in server order. Lines the parser
	// does not understand are skipped.
	List() ([]Entry, error)
	Close() error
}

// Dialer opens sessions. Commands take a Dialer so tests can substitute an
// in-memory device.
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, cfg Config) (Session, error)

// Dial calls f(ctx, cfg).
func (f DialerFunc) Dial(ctx context.Context, cfg Config) (Session, error) {
	return f(ctx, cfg)
}

// FTPDialer dials real devices.
var FTPDialer Dialer = DialerFunc(func(ctx context.Context, cfg Config) (Session, error) {
	return Dial(ctx, cfg)
})

// Config describes how to reach and log in to a device.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// Timeout bounds the connect phase. Zero keeps the transport default.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Entry is one line of the remote listing.
type Entry struct {
	Name     string
	Kind     string
	Size     uint64
	Modified time.Time
}

// Address joins host and port unless host already names a port.
func Address(host string, port int) string {
	host = strings.TrimSpace(host)
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(port))
}

// Client is a Session backed by github.com/jlaffaye/ftp.
type Client struct {
	addr    string
	conn    *ftp.ServerConn
	replies *replyRecorder
	logger  *slog.Logger
}

// Dial connects and logs in. The connection is closed again when login fails.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	addr := Address(cfg.Host, cfg.Port)
	logger := logging.NewComponentLogger(cfg.Logger, "device").With(logging.String(logging.FieldHost, addr))

	replies := &replyRecorder{}
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithDebugOutput(replies),
		// The device tooling expects LIST even when MLST is advertised.
		ftp.DialWithDisabledMLSD(true),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(cfg.Timeout))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	if err := conn.Login(cfg.Username, cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("login to %s as %s: %w", addr, cfg.Username, err)
	}
	logger.Debug("device session opened", logging.String("user", cfg.Username))

	return &Client{addr: addr, conn: conn, replies: replies, logger: logger}, nil
}

// Store uploads r as name in binary mode.
func (c *Client) Store(name string, r io.Reader) (string, error) {
	err := c.conn.Stor(name, r)
	reply := c.replies.finalReply("STOR")
	if err != nil && !positiveCompletion(err) {
		return reply, fmt.Errorf("store %s: %w", name, err)
	}
	c.logger.Debug("store finished", logging.String(logging.FieldRemote, name), logging.String("reply", reply))
	return reply, nil
}

// Retrieve downloads name into w in binary mode.
func (c *Client) Retrieve(name string, w io.Writer) (err error) {
	resp, err := c.conn.Retr(name)
	if err != nil {
		return fmt.Errorf("retrieve %s: %w", name, err)
	}
	defer func() {
		if closeErr := resp.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("retrieve %s: %w", name, closeErr)
		}
	}()

	n, err := io.Copy(w, resp)
	if err != nil {
		return fmt.Errorf("retrieve %s: %w", name, err)
	}
	c.logger.Debug("retrieve finished", logging.String(logging.FieldRemote, name), logging.Int64("bytes", n))
	return nil
}

// NameList issues NLST. Servers that do not implement NLST (500, 502) get
// the names of a parsed LIST instead. On a failing completion reply the
// names received so far are returned with the error.
func (c *Client) NameList() ([]string, error) {
	names, err := c.conn.NameList("")
	if err == nil {
		return names, nil
	}
	if !notImplemented(err) {
		return names, fmt.Errorf("name list: %w", err)
	}
	c.logger.Debug("NLST unsupported, using LIST names", logging.Error(err))
	entries, err := c.List()
	names = make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, err
}

// List issues LIST on the working directory. When nothing in the reply
// parses, the names from NLST are returned instead. On a failing completion
// reply the entries received so far are returned with the error.
func (c *Client) List() ([]Entry, error) {
	raw, err := c.conn.List("")
	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, Entry{
			Name:     e.Name,
			Kind:     entryKind(e.Type),
			Size:     e.Size,
			Modified: e.Time,
		})
	}
	if err != nil {
		return entries, fmt.Errorf("list: %w", err)
	}
	if len(entries) > 0 {
		return entries, nil
	}

	names, err := c.conn.NameList("")
	if err != nil {
		c.logger.Debug("name list fallback failed", logging.Error(err))
		return nil, nil
	}
	for _, name := range names {
		entries = append(entries, Entry{Name: name})
	}
	return entries, nil
}

// Close ends the session with QUIT.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("close session to %s: %w", c.addr, err)
	}
	return nil
}

// positiveCompletion reports whether err only complains that the final reply
// was a 2xx other than 226. Some firmware answers STOR with 250.
func positiveCompletion(err error) bool {
	var protoErr *textproto.Error
	if !errors.As(err, &protoErr) {
		return false
	}
	return protoErr.Code >= 200 && protoErr.Code < 300
}

// notImplemented reports a 500 or 502 reply: the server does not know the
// command at all.
func notImplemented(err error) bool {
	var protoErr *textproto.Error
	if !errors.As(err, &protoErr) {
		return false
	}
	return protoErr.Code == ftp.StatusBadCommand || protoErr.Code == ftp.StatusNotImplemented
}

func entryKind(t ftp.EntryType) string {
	switch t {
	case ftp.EntryTypeFolder:
		return "dir"
	case ftp.EntryTypeLink:
		return "link"
	default:
		return "file"
	}
}
