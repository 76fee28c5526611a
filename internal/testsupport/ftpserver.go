package testsupport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	defaultFTPUser    = "360USER"
	defaultFTPPass    = "PASSWORD"
	defaultStoreReply = "226 Transfer succeeded."
	dataAcceptTimeout = 5 * time.Second
)

// FTPServer is an in-process FTP server that behaves like an Instant Replay
// unit closely enough for github.com/jlaffaye/ftp: greeting, USER/PASS,
// FEAT (unsupported unless configured), TYPE, EPSV/PASV, STOR, RETR, LIST, NLST, and QUIT.
type FTPServer struct {
	ln net.Listener

	user       string
	pass       string
	storeReply string
	denyList   bool
	rawListing []string
	rawNames   []string
	listReply  string
	disabled   map[string]bool
	features   []string

	mu       sync.Mutex
	files    map[string][]byte
	order    []string
	commands []string
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// FTPOption customizes an FTPServer.
type FTPOption func(*FTPServer)

// WithFTPCredentials sets the accepted login.
func WithFTPCredentials(user, pass string) FTPOption {
	return func(s *FTPServer) {
		s.user = user
		s.pass = pass
	}
}

// WithStoreReply overrides the final reply sent after a STOR completes.
func WithStoreReply(reply string) FTPOption {
	return func(s *FTPServer) {
		s.storeReply = reply
	}
}

// WithDeniedListing makes LIST and NLST fail with 550.
func WithDeniedListing() FTPOption {
	return func(s *FTPServer) {
		s.denyList = true
	}
}

// WithRawListing replaces the generated LIST output with the given lines.
func WithRawListing(lines ...string) FTPOption {
	return func(s *FTPServer) {
		s.rawListing = append([]string(nil), lines...)
	}
}

// WithRawNameList replaces the generated NLST output with the given names.
func WithRawNameList(names ...string) FTPOption {
	return func(s *FTPServer) {
		s.rawNames = append([]string(nil), names...)
	}
}

// WithListCompletion overrides the reply sent after LIST or NLST data has
// been sent, for example "550 Permission denied." to fail mid-listing.
func WithListCompletion(reply string) FTPOption {
	return func(s *FTPServer) {
		s.listReply = reply
	}
}

// WithDisabledCommands answers the given verbs with 502.
func WithDisabledCommands(verbs ...string) FTPOption {
	return func(s *FTPServer) {
		if s.disabled == nil {
			s.disabled = make(map[string]bool)
		}
		for _, v := range verbs {
			s.disabled[strings.ToUpper(v)] = true
		}
	}
}

// WithFeatures makes FEAT advertise the given feature lines.
func WithFeatures(features ...string) FTPOption {
	return func(s *FTPServer) {
		s.features = append([]string(nil), features...)
	}
}

// WithRemoteFile seeds a file on the server.
func WithRemoteFile(name string, data []byte) FTPOption {
	return func(s *FTPServer) {
		s.putFile(name, data)
	}
}

// NewFTPServer starts a server on a loopback port and stops it when the test
// ends.
func NewFTPServer(t testing.TB, opts ...FTPOption) *FTPServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &FTPServer{
		ln:         ln,
		user:       defaultFTPUser,
		pass:       defaultFTPPass,
		storeReply: defaultStoreReply,
		files:      make(map[string][]byte),
		conns:      make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Host returns the listener IP.
func (s *FTPServer) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listener port.
func (s *FTPServer) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Addr returns host:port.
func (s *FTPServer) Addr() string {
	return s.ln.Addr().String()
}

// File returns the stored contents of name.
func (s *FTPServer) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// FileNames returns stored names in upload order.
func (s *FTPServer) FileNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Commands returns every command received, with PASS arguments masked.
func (s *FTPServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Close stops accepting and drops open control connections.
func (s *FTPServer) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *FTPServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				_ = conn.Close()
			}()
			s.handle(conn)
		}()
	}
}

type ftpSession struct {
	tp       *textproto.Conn
	user     string
	loggedIn bool
	data     *net.TCPListener
}

func (s *FTPServer) handle(conn net.Conn) {
	sess := &ftpSession{tp: textproto.NewConn(conn)}
	defer sess.closeData()

	if !sess.reply(220, "Instant Replay FTP ready.") {
		return
	}
	for {
		line, err := sess.tp.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")
		verb = strings.ToUpper(verb)
		arg = strings.TrimSpace(arg)
		s.record(verb, arg)

		if !s.dispatch(sess, verb, arg) {
			return
		}
	}
}

func (s *FTPServer) dispatch(sess *ftpSession, verb, arg string) bool {
	switch verb {
	case "USER":
		sess.user = arg
		sess.loggedIn = false
		return sess.reply(331, "Password required.")
	case "PASS":
		if sess.user != s.user || arg != s.pass {
			return sess.reply(530, "Login incorrect.")
		}
		sess.loggedIn = true
		return sess.reply(230, "User logged in.")
	case "FEAT":
		return s.feat(sess)
	case "OPTS":
		return sess.reply(502, "Command not implemented.")
	case "QUIT":
		sess.reply(221, "Goodbye.")
		return false
	}

	if !sess.loggedIn {
		return sess.reply(530, "Not logged in.")
	}

	if s.disabled[verb] {
		sess.closeData()
		return sess.reply(502, "Command not implemented.")
	}

	switch verb {
	case "TYPE":
		return sess.reply(200, "Type set to "+arg+".")
	case "EPSV":
		port, err := sess.openData()
		if err != nil {
			return sess.reply(425, "Cannot open data connection.")
		}
		return sess.reply(229, fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", port))
	case "PASV":
		port, err := sess.openData()
		if err != nil {
			return sess.reply(425, "Cannot open data connection.")
		}
		return sess.reply(227, fmt.Sprintf("Entering Passive Mode (127,0,0,1,%d,%d)", port/256, port%256))
	case "STOR":
		return s.store(sess, arg)
	case "RETR":
		return s.retrieve(sess, arg)
	case "LIST":
		return s.list(sess)
	case "NLST":
		return s.nameList(sess)
	default:
		return sess.reply(502, "Command not implemented.")
	}
}

func (s *FTPServer) store(sess *ftpSession, name string) bool {
	data, err := sess.acceptData()
	if err != nil {
		return sess.reply(425, "Cannot open data connection.")
	}
	if !sess.reply(150, "Opening BINARY mode data connection.") {
		_ = data.Close()
		return false
	}
	payload, err := io.ReadAll(data)
	_ = data.Close()
	if err != nil {
		return sess.reply(426, "Connection closed; transfer aborted.")
	}
	s.putFile(name, payload)
	return sess.replyRaw(s.storeReply)
}

func (s *FTPServer) retrieve(sess *ftpSession, name string) bool {
	payload, ok := s.File(name)
	if !ok {
		sess.closeData()
		return sess.reply(550, "File not found.")
	}
	data, err := sess.acceptData()
	if err != nil {
		return sess.reply(425, "Cannot open data connection.")
	}
	if !sess.reply(150, "Opening BINARY mode data connection.") {
		_ = data.Close()
		return false
	}
	_, err = data.Write(payload)
	_ = data.Close()
	if err != nil {
		return sess.reply(426, "Connection closed; transfer aborted.")
	}
	return sess.reply(226, "Transfer complete.")
}

func (s *FTPServer) list(sess *ftpSession) bool {
	if s.denyList {
		sess.closeData()
		return sess.reply(550, "Permission denied.")
	}
	lines := s.rawListing
	if lines == nil {
		lines = s.listingLines()
	}
	return s.sendLines(sess, lines)
}

func (s *FTPServer) nameList(sess *ftpSession) bool {
	if s.denyList {
		sess.closeData()
		return sess.reply(550, "Permission denied.")
	}
	names := s.rawNames
	if names == nil {
		names = s.FileNames()
	}
	return s.sendLines(sess, names)
}

func (s *FTPServer) feat(sess *ftpSession) bool {
	if len(s.features) == 0 {
		return sess.reply(502, "Command not implemented.")
	}
	if !sess.replyRaw("211-Features:") {
		return false
	}
	for _, f := range s.features {
		if !sess.replyRaw(" " + f) {
			return false
		}
	}
	return sess.reply(211, "End")
}

func (s *FTPServer) sendLines(sess *ftpSession, lines []string) bool {
	data, err := sess.acceptData()
	if err != nil {
		return sess.reply(425, "Cannot open data connection.")
	}
	if !sess.reply(150, "Here comes the directory listing.") {
		_ = data.Close()
		return false
	}
	for _, line := range lines {
		if _, err := io.WriteString(data, line+"\r\n"); err != nil {
			_ = data.Close()
			return sess.reply(426, "Connection closed; transfer aborted.")
		}
	}
	_ = data.Close()
	if s.listReply != "" {
		return sess.replyRaw(s.listReply)
	}
	return sess.reply(226, "Directory send OK.")
}

func (s *FTPServer) listingLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := append([]string(nil), s.order...)
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("-rw-r--r--   1 replay   replay   %8d Jan  2  2024 %s", len(s.files[name]), name))
	}
	return lines
}

func (s *FTPServer) putFile(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.files[name]; !exists {
		s.order = append(s.order, name)
	}
	s.files[name] = append([]byte(nil), data...)
}

func (s *FTPServer) record(verb, arg string) {
	entry := verb
	if verb == "PASS" {
		entry += " ****"
	} else if arg != "" {
		entry += " " + arg
	}
	s.mu.Lock()
	s.commands = append(s.commands, entry)
	s.mu.Unlock()
}

func (sess *ftpSession) reply(code int, msg string) bool {
	return sess.replyRaw(strconv.Itoa(code) + " " + msg)
}

func (sess *ftpSession) replyRaw(line string) bool {
	return sess.tp.PrintfLine("%s", line) == nil
}

func (sess *ftpSession) openData() (int, error) {
	sess.closeData()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	sess.data = ln.(*net.TCPListener)
	return sess.data.Addr().(*net.TCPAddr).Port, nil
}

func (sess *ftpSession) acceptData() (net.Conn, error) {
	if sess.data == nil {
		return nil, errors.New("no passive listener")
	}
	defer sess.closeData()
	if err := sess.data.SetDeadline(time.Now().Add(dataAcceptTimeout)); err != nil {
		return nil, err
	}
	return sess.data.Accept()
}

func (sess *ftpSession) closeData() {
	if sess.data != nil {
		_ = sess.data.Close()
		sess.data = nil
	}
}
