package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"

	"cmd360/internal/device"
	"cmd360/internal/transcode"
)

type fakeSession struct {
	mu       sync.Mutex
	reply    string
	replies  map[string]string
	storeErr error
	stored   map[string][]byte
	order    []string
	remote   map[string][]byte
	entries  []device.Entry
	listErr  error
	names    []string
	nameErr  error
	closed   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		reply:   "226 Transfer succeeded.",
		replies: map[string]string{},
		stored:  map[string][]byte{},
		remote:  map[string][]byte{},
	}
}

func (s *fakeSession) Store(name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return "", s.storeErr
	}
	s.stored[name] = data
	s.order = append(s.order, name)
	if reply, ok := s.replies[name]; ok {
		return reply, nil
	}
	return s.reply, nil
}

func (s *fakeSession) Retrieve(name string, w io.Writer) error {
	s.mu.Lock()
	data, ok := s.remote[name]
	s.mu.Unlock()
	if !ok {
		return &textproto.Error{Code: 550, Msg: "File not found."}
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

// NameList reports names, or the entry names when names is unset. nameErr
// falls back to listErr the same way.
func (s *fakeSession) NameList() ([]string, error) {
	err := s.nameErr
	if err == nil {
		err = s.listErr
	}
	if s.names != nil {
		return s.names, err
	}
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.Name)
	}
	return names, err
}

func (s *fakeSession) List() ([]device.Entry, error) {
	return s.entries, s.listErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

type fakeDialer struct {
	session *fakeSession
	err     error
	dials   int
	configs []device.Config
}

func (d *fakeDialer) Dial(_ context.Context, cfg device.Config) (device.Session, error) {
	d.dials++
	d.configs = append(d.configs, cfg)
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

// fakeTranscoder writes a deterministic payload derived from the source name
// and params. Sources listed in fail return the mapped error instead.
type fakeTranscoder struct {
	sources []string
	targets []string
	fail    map[string]error
}

func (f *fakeTranscoder) Convert(_ context.Context, source, target string, p transcode.Params) error {
	f.sources = append(f.sources, source)
	f.targets = append(f.targets, target)
	if err, ok := f.fail[filepath.Base(source)]; ok {
		return err
	}
	payload := []byte("WAV:" + filepath.Base(source))
	payload = append(payload, []byte(p.LoudnormFilter())...)
	return os.WriteFile(target, payload, 0o644)
}

func (f *fakeTranscoder) bases() []string {
	out := make([]string, 0, len(f.sources))
	for _, s := range f.sources {
		out = append(out, filepath.Base(s))
	}
	return out
}

var errBoom = errors.New("boom")
