package transfer

import (
	"context"

	"cmd360/internal/device"
	"cmd360/internal/logging"
)

// ListRequest targets one device listing.
type ListRequest struct {
	Device device.Config
	// Long adds type, size and modification time from a parsed LIST to each
	// name.
	Long bool
}

// List returns the device's directory listing in server order. Names come
// from NLST so no entry is lost to an unfamiliar LIST format; Long requests
// also fetch LIST and attach whatever details parse.
//
// A permanent negative reply at any stage, including a refused login, is not
// an error: List returns whatever was collected, which may be nothing. Other
// failures are returned.
func (r *Runner) List(ctx context.Context, req ListRequest) ([]device.Entry, error) {
	if err := checkHost(req.Device); err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldCommand, "list"))

	session, release, err := r.open(ctx, req.Device)
	if err != nil {
		if device.IsPermissionDenied(err) {
			logger.Debug("listing refused at login", logging.Error(err))
			return nil, nil
		}
		return nil, err
	}
	defer release()

	names, err := session.NameList()
	entries := namedEntries(names)
	if err != nil {
		if device.IsPermissionDenied(err) {
			logger.Debug("listing refused", logging.Error(err), logging.Int("entries", len(entries)))
			return entries, nil
		}
		return nil, err
	}

	if req.Long {
		detailed, err := session.List()
		if err != nil && !device.IsPermissionDenied(err) {
			return nil, err
		}
		if err != nil {
			logger.Debug("detailed listing refused", logging.Error(err))
		}
		entries = mergeDetails(entries, detailed)
	}
	logger.Debug("listing received", logging.Int("entries", len(entries)))
	return entries, nil
}

func namedEntries(names []string) []device.Entry {
	entries := make([]device.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, device.Entry{Name: name})
	}
	return entries
}

// mergeDetails fills names with matching parsed entries. Parsed entries the
// name list did not mention are appended in their own order.
func mergeDetails(names, detailed []device.Entry) []device.Entry {
	byName := make(map[string]device.Entry, len(detailed))
	for _, e := range detailed {
		byName[e.Name] = e
	}
	merged := make([]device.Entry, 0, len(names)+len(detailed))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n.Name] = true
		if e, ok := byName[n.Name]; ok {
			merged = append(merged, e)
			continue
		}
		merged = append(merged, n)
	}
	for _, e := range detailed {
		if !seen[e.Name] {
			merged = append(merged, e)
		}
	}
	return merged
}
