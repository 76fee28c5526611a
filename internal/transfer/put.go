package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cmd360/internal/config"
	"cmd360/internal/device"
	"cmd360/internal/logging"
	"cmd360/internal/transcode"
)

// Outcome classifies what put did with one source.
type Outcome string

const (
	OutcomeExcluded    Outcome = "excluded"
	OutcomeUndecodable Outcome = "undecodable"
	OutcomeTransferred Outcome = "transferred"
	OutcomeUnconfirmed Outcome = "unconfirmed"
)

// FileResult records one processed source.
type FileResult struct {
	Source  string
	Remote  string
	Outcome Outcome
	Reply   string
	Bytes   int64
}

// PutResult lists every source put handled, in processing order. On a fatal
// error it holds the files completed before the failure.
type PutResult struct {
	Files []FileResult
}

// Count returns how many files ended with outcome.
func (r PutResult) Count(outcome Outcome) int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == outcome {
			n++
		}
	}
	return n
}

// PutRequest describes one convert-and-upload batch.
type PutRequest struct {
	Device device.Config
	Files  []string
	// WorkDir is expanded for CurrentDir. Empty means the process working
	// directory.
	WorkDir string
	// TempRoot holds the scoped conversion directory. Empty means the system
	// temp directory.
	TempRoot string
	// Excluded extensions are never converted. Nil means the device defaults.
	Excluded []string
	// Params default to transcode.DeviceParams when zero.
	Params transcode.Params
}

// Put converts every eligible source to a device WAV and uploads it.
//
// A conversion failure aborts the batch with a *transcode.ConversionError;
// a source with undecodable metadata is skipped. An upload whose final reply
// lacks the device's success text is logged and the batch continues. The
// conversion directory and the session are released on every return path.
func (r *Runner) Put(ctx context.Context, req PutRequest) (result PutResult, err error) {
	if err := checkHost(req.Device); err != nil {
		return result, err
	}
	if len(req.Files) == 0 {
		return result, errors.New("no files to send")
	}
	if r.transcoder == nil {
		return result, errors.New("no transcoder configured")
	}
	params := req.Params
	if params == (transcode.Params{}) {
		params = transcode.DeviceParams()
	}
	excluded := req.Excluded
	if excluded == nil {
		excluded = config.DefaultExcludedExtensions
	}
	workDir := req.WorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return result, fmt.Errorf("resolve working directory: %w", err)
		}
	}

	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldCommand, "put"))

	if req.TempRoot != "" {
		if err := os.MkdirAll(req.TempRoot, 0o755); err != nil {
			return result, fmt.Errorf("create temp root: %w", err)
		}
	}
	tempDir, err := os.MkdirTemp(req.TempRoot, "cmd360-")
	if err != nil {
		return result, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			logger.Warn("temp dir cleanup failed", logging.String("path", tempDir), logging.Error(rmErr))
		}
	}()

	session, release, err := r.open(ctx, req.Device)
	if err != nil {
		return result, err
	}
	defer release()

	sources, err := ExpandSources(req.Files, workDir)
	if err != nil {
		return result, err
	}
	logger.Debug("put batch starting", logging.Int("sources", len(sources)), logging.String("temp_dir", tempDir))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if IsExcluded(src, excluded) {
			logger.Debug("source excluded", logging.String(logging.FieldSource, src))
			result.Files = append(result.Files, FileResult{Source: src, Outcome: OutcomeExcluded})
			continue
		}

		remote := RemoteName(src)
		target := filepath.Join(tempDir, remote)
		r.reporter.Converting(filepath.Base(src))

		if err := r.transcoder.Convert(ctx, src, target, params); err != nil {
			if errors.Is(err, transcode.ErrUndecodableMetadata) {
				logging.WarnWithContext(logger, "source skipped", "source_undecodable",
					logging.String(logging.FieldSource, src),
					logging.String(logging.FieldErrorHint, "source tags are not valid text; re-tag or re-encode the file"),
					logging.String(logging.FieldImpact, "file was not sent"),
					logging.Error(err),
				)
				result.Files = append(result.Files, FileResult{Source: src, Remote: remote, Outcome: OutcomeUndecodable})
				continue
			}
			var convErr *transcode.ConversionError
			if !errors.As(err, &convErr) {
				convErr = &transcode.ConversionError{Source: src, Err: err}
			}
			return result, convErr
		}

		reply, n, err := r.upload(session, target, remote)
		if err != nil {
			return result, err
		}
		_ = os.Remove(target)

		file := FileResult{Source: src, Remote: remote, Reply: reply, Bytes: n}
		if device.TransferSucceeded(reply) {
			file.Outcome = OutcomeTransferred
			r.reporter.Transferred(remote)
			logger.Info("file transferred", logging.String(logging.FieldRemote, remote), logging.Int64("bytes", n))
		} else {
			file.Outcome = OutcomeUnconfirmed
			logging.WarnWithContext(logger, "upload not confirmed by device", "upload_unconfirmed",
				logging.String(logging.FieldRemote, remote),
				logging.String("reply", reply),
				logging.String(logging.FieldErrorHint, "run list to check whether the file arrived"),
				logging.String(logging.FieldImpact, "file may be missing on the device"),
			)
		}
		result.Files = append(result.Files, file)
	}
	return result, nil
}

func (r *Runner) upload(session device.Session, path, remote string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open converted file: %w", err)
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	m := r.reporter.startMeter(remote, size)
	counter := &countingReader{r: f, m: m}
	reply, err := session.Store(remote, counter)
	m.finish()
	if err != nil {
		return reply, counter.count, fmt.Errorf("upload %s: %w", remote, err)
	}
	return reply, counter.count, nil
}
