package transfer

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
)

// Options tune a Put or Get call.
type Options struct {
	// Verbose raises per-item logging from debug to info: 1 logs transfers,
	// 2 also logs skips.
	Verbose int

	// IfChanged uploads only files the Detector reports as changed (put)
	IfChanged bool

	// IfMissing downloads only files absent locally (get)
	IfMissing bool

	// DryRun makes every decision but mutates nothing, locally or remotely
	DryRun bool

	// Schedule holds each transfer until its direction's window is open
	Schedule bool
}

// Decision is what the engine chose to do with one item.
type Decision int

const (
	Skip Decision = iota
	Transfer
)

func (d Decision) String() string {
	if d == Transfer {
		return "transfer"
	}
	return "skip"
}

// Reason explains a Decision.
type Reason int

const (
	// Unchanged: the remote copy is at least as recent, same size
	Unchanged Reason = iota

	// MissingLocally: the download destination does not exist yet
	MissingLocally

	// Changed: the Detector reported a difference
	Changed

	// Forced: no condition was requested
	Forced

	// Exists: the download destination exists and IfMissing was set
	Exists
)

func (r Reason) String() string {
	switch r {
	case Unchanged:
		return "unchanged"
	case MissingLocally:
		return "missing locally"
	case Changed:
		return "changed"
	case Forced:
		return "forced"
	case Exists:
		return "exists"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Intent is the decision taken for one file.
type Intent struct {
	// Direction is schedule.Upload or schedule.Download
	Direction string
	Local     string
	Remote    string
	Decision  Decision
	Reason    Reason
}

// Result identifies what a Put or Get call was about.
type Result struct {
	ID         int64
	RemotePath string
	URL        string
	LocalPath  string
}

// Outcome is a file that was transferred, planned (dry run) or skipped.
type Outcome struct {
	Intent

	// ID is the remote item, or fs.NoID for a dry-run upload
	ID    int64
	URL   string
	Bytes int64
}

// Failure is a file or folder that could not be handled. The rest of the
// tree was still processed.
type Failure struct {
	Local  string
	Remote string
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s -> %s: %v", f.Local, f.Remote, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Report collects per-item results of one Put or Get call.
type Report struct {
	// ID correlates the call's log lines
	ID     string
	DryRun bool
	Root   Result

	Succeeded []Outcome
	Skipped   []Outcome
	Failed    []*Failure
}

func (r *Report) record(o Outcome) {
	if o.Decision == Transfer {
		r.Succeeded = append(r.Succeeded, o)
	} else {
		r.Skipped = append(r.Skipped, o)
	}
}

func (r *Report) fail(local, remote string, err error) {
	r.Failed = append(r.Failed, &Failure{Local: local, Remote: remote, Err: err})
}

// Err aggregates all failures, or returns nil when there were none.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, f := range r.Failed {
		result = multierror.Append(result, f)
	}
	return result.ErrorOrNil()
}

// Bytes is the total transferred (or, in a dry run, planned) volume.
func (r *Report) Bytes() int64 {
	var n int64
	for _, o := range r.Succeeded {
		n += o.Bytes
	}
	return n
}

// Summary renders counts and volume on one line.
func (r *Report) Summary() string {
	verb := "transferred"
	if r.DryRun {
		verb = "planned"
	}
	parts := []string{
		fmt.Sprintf("%d %s (%s)", len(r.Succeeded), verb, humanize.Bytes(uint64(r.Bytes()))),
		fmt.Sprintf("%d skipped", len(r.Skipped)),
	}
	if len(r.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", len(r.Failed)))
	}
	return strings.Join(parts, ", ")
}
