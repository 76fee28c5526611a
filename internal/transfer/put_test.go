package transfer

import (
	"bytes"
	"context"
	"errors"
	"net/textproto"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cmd360/internal/device"
	"cmd360/internal/testsupport"
	"cmd360/internal/transcode"
)

type putFixture struct {
	session    *fakeSession
	dialer     *fakeDialer
	transcoder *fakeTranscoder
	out        *bytes.Buffer
	runner     *Runner
	tempRoot   string
	workDir    string
}

func newPutFixture(t *testing.T) *putFixture {
	t.Helper()
	f := &putFixture{
		session:    newFakeSession(),
		transcoder: &fakeTranscoder{fail: map[string]error{}},
		out:        &bytes.Buffer{},
		tempRoot:   filepath.Join(t.TempDir(), "tmp"),
		workDir:    t.TempDir(),
	}
	f.dialer = &fakeDialer{session: f.session}
	f.runner = NewRunner(f.dialer,
		WithTranscoder(f.transcoder),
		WithReporter(NewReporter(f.out, nil)),
	)
	return f
}

func (f *putFixture) request(files ...string) PutRequest {
	return PutRequest{
		Device:   device.Config{Host: "192.0.2.10", Username: "360USER", Password: "PASSWORD"},
		Files:    files,
		WorkDir:  f.workDir,
		TempRoot: f.tempRoot,
	}
}

func (f *putFixture) assertTempRootEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.tempRoot)
	if err != nil {
		t.Fatalf("read temp root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover conversion files, found %d entries", len(entries))
	}
}

func TestPutSingleFile(t *testing.T) {
	f := newPutFixture(t)
	src := testsupport.WriteFiles(t, f.workDir, "song.mp3")[0]

	result, err := f.runner.Put(context.Background(), f.request(src))
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if got := f.transcoder.bases(); !reflect.DeepEqual(got, []string{"song.mp3"}) {
		t.Fatalf("expected one conversion, got %v", got)
	}
	if !reflect.DeepEqual(f.session.order, []string{"SONG.WAV"}) {
		t.Fatalf("expected one upload of SONG.WAV, got %v", f.session.order)
	}
	want := "Converting: song.mp3\nSuccessfully Transferred: SONG.WAV\n"
	if f.out.String() != want {
		t.Fatalf("unexpected output %q", f.out.String())
	}
	if len(result.Files) != 1 || result.Files[0].Outcome != OutcomeTransferred || result.Files[0].Remote != "SONG.WAV" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Files[0].Bytes != int64(len(f.session.stored["SONG.WAV"])) {
		t.Fatalf("byte count %d does not match upload", result.Files[0].Bytes)
	}
	if f.dialer.dials != 1 || f.session.closed != 1 {
		t.Fatalf("expected one session opened and closed, got dials=%d closed=%d", f.dialer.dials, f.session.closed)
	}
	f.assertTempRootEmpty(t)
}

func TestPutUsesDeviceParams(t *testing.T) {
	f := newPutFixture(t)
	src := testsupport.WriteFiles(t, f.workDir, "a.flac")[0]

	if _, err := f.runner.Put(context.Background(), f.request(src)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if !strings.HasSuffix(string(f.session.stored["A.WAV"]), "loudnorm=tp=-0.1") {
		t.Fatalf("expected default device params, got %q", f.session.stored["A.WAV"])
	}
}

func TestPutExcludedExtensions(t *testing.T) {
	f := newPutFixture(t)
	files := testsupport.WriteFiles(t, f.workDir, "notes.pk", "SCENE.XMP", "take.Pk")

	result, err := f.runner.Put(context.Background(), f.request(files...))
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if len(f.transcoder.sources) != 0 {
		t.Fatalf("expected no conversions, got %v", f.transcoder.sources)
	}
	if len(f.session.order) != 0 {
		t.Fatalf("expected no uploads, got %v", f.session.order)
	}
	if f.out.Len() != 0 {
		t.Fatalf("expected no output, got %q", f.out.String())
	}
	if result.Count(OutcomeExcluded) != 3 {
		t.Fatalf("expected 3 excluded files, got %+v", result)
	}
}

func TestPutCustomExclusions(t *testing.T) {
	f := newPutFixture(t)
	files := testsupport.WriteFiles(t, f.workDir, "notes.pk", "cover.jpg")

	req := f.request(files...)
	req.Excluded = []string{".jpg"}
	if _, err := f.runner.Put(context.Background(), req); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if got := f.transcoder.bases(); !reflect.DeepEqual(got, []string{"notes.pk"}) {
		t.Fatalf("expected only notes.pk converted, got %v", got)
	}
}

func TestPutExpandsCurrentDirectoryOnce(t *testing.T) {
	f := newPutFixture(t)
	testsupport.WriteFiles(t, f.workDir, "b.wav", "a.mp3", "meta.xmp")
	if err := os.Mkdir(filepath.Join(f.workDir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	explicit := testsupport.WriteFiles(t, t.TempDir(), "intro.aiff")[0]

	files := []string{CurrentDir, explicit, CurrentDir}
	original := append([]string(nil), files...)

	result, err := f.runner.Put(context.Background(), f.request(files...))
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if !reflect.DeepEqual(files, original) {
		t.Fatalf("input slice was modified: %v", files)
	}
	if got := f.transcoder.bases(); !reflect.DeepEqual(got, []string{"intro.aiff", "a.mp3", "b.wav"}) {
		t.Fatalf("unexpected conversion order %v", got)
	}
	if !reflect.DeepEqual(f.session.order, []string{"INTRO.WAV", "A.WAV", "B.WAV"}) {
		t.Fatalf("unexpected upload order %v", f.session.order)
	}
	if result.Count(OutcomeExcluded) != 1 {
		t.Fatalf("expected meta.xmp to be excluded, got %+v", result.Files)
	}
}

func TestPutSkipsUndecodableSource(t *testing.T) {
	f := newPutFixture(t)
	files := testsupport.WriteFiles(t, f.workDir, "bad-tags.flac", "good.mp3")
	f.transcoder.fail["bad-tags.flac"] = transcode.ErrUndecodableMetadata

	result, err := f.runner.Put(context.Background(), f.request(files...))
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if !reflect.DeepEqual(f.session.order, []string{"GOOD.WAV"}) {
		t.Fatalf("expected only GOOD.WAV uploaded, got %v", f.session.order)
	}
	if result.Count(OutcomeUndecodable) != 1 || result.Count(OutcomeTransferred) != 1 {
		t.Fatalf("unexpected outcomes %+v", result.Files)
	}
	f.assertTempRootEmpty(t)
}

func TestPutConversionFailureAbortsBatch(t *testing.T) {
	f := newPutFixture(t)
	files := testsupport.WriteFiles(t, f.workDir, "one.mp3", "two.mp3", "three.mp3")
	f.transcoder.fail["two.mp3"] = errBoom

	result, err := f.runner.Put(context.Background(), f.request(files...))
	var convErr *transcode.ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if convErr.Source != files[1] {
		t.Fatalf("expected error to name %s, got %s", files[1], convErr.Source)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if got := f.transcoder.bases(); !reflect.DeepEqual(got, []string{"one.mp3", "two.mp3"}) {
		t.Fatalf("expected batch to stop at two.mp3, got %v", got)
	}
	if !reflect.DeepEqual(f.session.order, []string{"ONE.WAV"}) {
		t.Fatalf("unexpected uploads %v", f.session.order)
	}
	if len(result.Files) != 1 {
		t.Fatalf("expected partial result with one file, got %+v", result.Files)
	}
	if f.session.closed != 1 {
		t.Fatalf("expected session to be closed after failure, got %d", f.session.closed)
	}
	f.assertTempRootEmpty(t)
}

func TestPutKeepsTypedConversionError(t *testing.T) {
	f := newPutFixture(t)
	src := testsupport.WriteFiles(t, f.workDir, "x.mp3")[0]
	typed := &transcode.ConversionError{Source: src, Output: "Invalid data", Err: errBoom}
	f.transcoder.fail["x.mp3"] = typed

	_, err := f.runner.Put(context.Background(), f.request(src))
	var convErr *transcode.ConversionError
	if !errors.As(err, &convErr) || convErr != typed {
		t.Fatalf("expected the transcoder's ConversionError, got %v", err)
	}
}

func TestPutUnconfirmedReplyContinues(t *testing.T) {
	f := newPutFixture(t)
	files := testsupport.WriteFiles(t, f.workDir, "first.mp3", "second.mp3")
	f.session.replies["FIRST.WAV"] = "226 Closing data connection."

	result, err := f.runner.Put(context.Background(), f.request(files...))
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if !reflect.DeepEqual(f.session.order, []string{"FIRST.WAV", "SECOND.WAV"}) {
		t.Fatalf("expected both uploads attempted, got %v", f.session.order)
	}
	out := f.out.String()
	if strings.Contains(out, "Successfully Transferred: FIRST.WAV") {
		t.Fatalf("unconfirmed upload must not be reported as success: %q", out)
	}
	if !strings.Contains(out, "Successfully Transferred: SECOND.WAV") {
		t.Fatalf("expected success line for SECOND.WAV: %q", out)
	}
	if result.Files[0].Outcome != OutcomeUnconfirmed || result.Files[0].Reply != "226 Closing data connection." {
		t.Fatalf("unexpected first result %+v", result.Files[0])
	}
}

func TestPutStoreErrorPropagates(t *testing.T) {
	f := newPutFixture(t)
	src := testsupport.WriteFiles(t, f.workDir, "song.mp3")[0]
	f.session.storeErr = &textproto.Error{Code: 552, Msg: "Disk full."}

	_, err := f.runner.Put(context.Background(), f.request(src))
	if err == nil || !strings.Contains(err.Error(), "upload SONG.WAV") {
		t.Fatalf("expected upload error, got %v", err)
	}
	if f.session.closed != 1 {
		t.Fatalf("expected session closed, got %d", f.session.closed)
	}
	f.assertTempRootEmpty(t)
}

func TestPutDialFailure(t *testing.T) {
	f := newPutFixture(t)
	src := testsupport.WriteFiles(t, f.workDir, "song.mp3")[0]
	f.dialer.err = errors.New("connect to 192.0.2.10:21: connection refused")

	if _, err := f.runner.Put(context.Background(), f.request(src)); err == nil {
		t.Fatal("expected dial error")
	}
	if len(f.transcoder.sources) != 0 {
		t.Fatalf("expected no conversions without a session, got %v", f.transcoder.sources)
	}
	f.assertTempRootEmpty(t)
}

func TestPutIsDeterministic(t *testing.T) {
	f := newPutFixture(t)
	src := testsupport.WriteFiles(t, f.workDir, "loop.wav")[0]

	if _, err := f.runner.Put(context.Background(), f.request(src)); err != nil {
		t.Fatalf("first Put returned error: %v", err)
	}
	first := append([]byte(nil), f.session.stored["LOOP.WAV"]...)
	if _, err := f.runner.Put(context.Background(), f.request(src)); err != nil {
		t.Fatalf("second Put returned error: %v", err)
	}
	if !bytes.Equal(first, f.session.stored["LOOP.WAV"]) {
		t.Fatal("expected identical output across runs")
	}
}

func TestPutRequiresFilesAndHost(t *testing.T) {
	f := newPutFixture(t)
	if _, err := f.runner.Put(context.Background(), f.request()); err == nil {
		t.Fatal("expected error for empty file list")
	}
	req := f.request("a.mp3")
	req.Device.Host = ""
	if _, err := f.runner.Put(context.Background(), req); err == nil {
		t.Fatal("expected error for missing host")
	}
	if f.dialer.dials != 0 {
		t.Fatalf("expected no dial for invalid requests, got %d", f.dialer.dials)
	}
}

func TestPutDeviceBusy(t *testing.T) {
	f := newPutFixture(t)
	lockDir := t.TempDir()
	f.runner = NewRunner(f.dialer, WithTranscoder(f.transcoder), WithLockDir(lockDir))
	src := testsupport.WriteFiles(t, f.workDir, "song.mp3")[0]

	held, err := device.AcquireLock(lockDir, device.Address("192.0.2.10", 0))
	if err != nil {
		t.Fatalf("AcquireLock returned error: %v", err)
	}
	defer held.Release()

	_, err = f.runner.Put(context.Background(), f.request(src))
	if !errors.Is(err, device.ErrDeviceBusy) {
		t.Fatalf("expected ErrDeviceBusy, got %v", err)
	}
	if f.dialer.dials != 0 {
		t.Fatalf("expected no dial while the device is locked, got %d", f.dialer.dials)
	}
}
