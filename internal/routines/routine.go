package routines

import (
	"context"
	"sort"

	"transmute/internal/config"
	"transmute/internal/extcmd"
)

// ID is the stable identifier of a conversion routine. IDs are what job
// payloads carry; they must never change meaning between releases.
type ID string

const (
	CompressCDToCHD  ID = "chd-cd-compress"
	CompressDVDToCHD ID = "chd-dvd-compress"
	CompressHDToCHD  ID = "chd-hd-compress"
	CompressLDToCHD  ID = "chd-ld-compress"
	CompressRawToCHD ID = "chd-raw-compress"
	ExtractCHDToCD   ID = "chd-cd-extract"
	ExtractCHDToDVD  ID = "chd-dvd-extract"
	ExtractCHDToHD   ID = "chd-hd-extract"
	ExtractCHDToLD   ID = "chd-ld-extract"
	ExtractCHDToRaw  ID = "chd-raw-extract"
	VerifyCHD        ID = "chd-verify"
	InfoCHD          ID = "chd-info"
	CompressDolphin  ID = "dolphin-compress"
	ExtractDolphin   ID = "dolphin-extract"
	ExtractArchive   ID = "archive-extract"
	ArchiveTo7z      ID = "archive-to-7z"
	CompressISOToCSO ID = "iso-cso-compress"
)

// JobType partitions routines by user intent.
type JobType string

const (
	JobCompress JobType = "compress"
	JobExtract  JobType = "extract"
	JobVerify   JobType = "verify"
)

// OutputMode describes how finalization should collect a routine's products.
type OutputMode int

const (
	// OutputFiles moves files matching the expected extensions.
	OutputFiles OutputMode = iota
	// OutputFolder moves the entire workspace content into a directory named
	// after the input stem (archive extraction).
	OutputFolder
	// OutputNone produces no files (verify, info).
	OutputNone
)

// Description is the static metadata of a routine.
type Description struct {
	ID           ID
	Name         string
	Job          JobType
	Media        string
	InputExts    []string
	OutputExt    string
	SecondaryExt string
	// CompanionExts are extra workspace products moved alongside the primary
	// output when present (gdi track files).
	CompanionExts []string
	Mode          OutputMode
	// MultiFile marks descriptor inputs whose sibling data files must be
	// staged together (.cue, .gdi).
	MultiFile bool
	Tool      string
}

// Request carries the per-job inputs a routine needs. InputPath points at the
// staged input inside (or referenced by) the workspace; all products must be
// written into WorkspaceDir.
type Request struct {
	InputPath    string
	WorkspaceDir string
	BaseName     string

	Config *config.Config
	Runner *extcmd.Runner

	// Extractor stages archive inputs. Optional; routines that receive an
	// archive without one fail the conversion.
	Extractor Extractor

	OnOutput func(line string)
	OnError  func(line string)
}

// Routine performs one conversion inside a workspace. Convert returns nil on
// success; any error marks the job's conversion stage as failed. Convert must
// not panic and must confine side effects to the workspace.
type Routine interface {
	Describe() Description
	Convert(ctx context.Context, req Request) error
}

// Extractor is the archive staging collaborator: it unpacks archive_path into
// destination_dir, reporting success via a nil error.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

var registry = buildRegistry()

func buildRegistry() map[ID]Routine {
	table := map[ID]Routine{}
	register := func(r Routine) {
		desc := r.Describe()
		if _, dup := table[desc.ID]; dup {
			panic("duplicate routine id: " + string(desc.ID))
		}
		table[desc.ID] = r
	}

	for _, r := range chdmanRoutines() {
		register(r)
	}
	for _, r := range dolphinRoutines() {
		register(r)
	}
	for _, r := range maxcsoRoutines() {
		register(r)
	}
	for _, r := range archiveRoutines() {
		register(r)
	}
	return table
}

// Get resolves a routine by identifier.
func Get(id ID) (Routine, bool) {
	r, ok := registry[id]
	return r, ok
}

// All returns every registered routine description, sorted by identifier.
func All() []Description {
	out := make([]Description, 0, len(registry))
	for _, r := range registry {
		out = append(out, r.Describe())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r Request) emitOutput(line string) {
	if r.OnOutput != nil {
		r.OnOutput(line)
	}
}

func (r Request) emitError(line string) {
	if r.OnError != nil {
		r.OnError(line)
	}
}
