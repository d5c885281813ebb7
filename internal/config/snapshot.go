package config

import (
	"strconv"
	"strings"
)

// Snapshot is a flat, serializable copy of the settings a conversion job needs.
// It is captured once at submission time and carried by value in each job
// payload, so workers observe configuration consistent as of submission no
// matter what the coordinator changes afterwards.
type Snapshot map[string]string

// Snapshot captures the conversion-relevant settings as a flat key/value map.
func (c *Config) Snapshot() Snapshot {
	s := Snapshot{
		"paths.temp_dir":                 c.Paths.TempDir,
		"workers.subprocess_timeout":     strconv.Itoa(c.Workers.SubprocessTimeout),
		"behavior.copy_locally":          strconv.FormatBool(c.Behavior.CopyLocally),
		"behavior.overwrite_outputs":     strconv.FormatBool(c.Behavior.OverwriteOutputs),
		"behavior.delete_source":         strconv.FormatBool(c.Behavior.DeleteSourceOnSuccess),
		"behavior.use_trash":             strconv.FormatBool(c.Behavior.UseTrash),
		"tools.chdman":                   c.Tools.Chdman,
		"tools.dolphin_tool":             c.Tools.DolphinTool,
		"tools.sevenzip":                 c.Tools.SevenZip,
		"tools.maxcso":                   c.Tools.Maxcso,
		"chdman.num_processors":          strconv.Itoa(c.CHDMan.NumProcessors),
		"chdman.cd_hunk_size":            strconv.Itoa(c.CHDMan.CDHunkSize),
		"chdman.cd_compression":          c.CHDMan.CDCompression,
		"chdman.dvd_hunk_size":           strconv.Itoa(c.CHDMan.DVDHunkSize),
		"chdman.dvd_compression":         c.CHDMan.DVDCompression,
		"chdman.hd_hunk_size":            strconv.Itoa(c.CHDMan.HDHunkSize),
		"chdman.hd_compression":          c.CHDMan.HDCompression,
		"chdman.ld_hunk_size":            strconv.Itoa(c.CHDMan.LDHunkSize),
		"chdman.ld_compression":          c.CHDMan.LDCompression,
		"chdman.raw_hunk_size":           strconv.Itoa(c.CHDMan.RawHunkSize),
		"chdman.raw_compression":         c.CHDMan.RawCompression,
		"dolphin.format":                 c.Dolphin.Format,
		"dolphin.compression_level":      strconv.Itoa(c.Dolphin.CompressionLevel),
	}
	return s
}

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	cp := make(Snapshot, len(s))
	for key, value := range s {
		cp[key] = value
	}
	return cp
}

func (s Snapshot) str(key, fallback string) string {
	if value, ok := s[key]; ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func (s Snapshot) boolean(key string, fallback bool) bool {
	value, ok := s[key]
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func (s Snapshot) integer(key string, fallback int) int {
	value, ok := s[key]
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

// FromSnapshot reconstructs a Config from a settings snapshot. Fields absent
// from the snapshot keep repository defaults. Malformed values fall back to
// defaults rather than failing the job; validation happened before submission.
func FromSnapshot(s Snapshot) *Config {
	cfg := Default()
	if s == nil {
		return &cfg
	}

	cfg.Paths.TempDir = s.str("paths.temp_dir", cfg.Paths.TempDir)
	cfg.Workers.SubprocessTimeout = s.integer("workers.subprocess_timeout", cfg.Workers.SubprocessTimeout)

	cfg.Behavior.CopyLocally = s.boolean("behavior.copy_locally", cfg.Behavior.CopyLocally)
	cfg.Behavior.OverwriteOutputs = s.boolean("behavior.overwrite_outputs", cfg.Behavior.OverwriteOutputs)
	cfg.Behavior.DeleteSourceOnSuccess = s.boolean("behavior.delete_source", cfg.Behavior.DeleteSourceOnSuccess)
	cfg.Behavior.UseTrash = s.boolean("behavior.use_trash", cfg.Behavior.UseTrash)

	cfg.Tools.Chdman = s.str("tools.chdman", cfg.Tools.Chdman)
	cfg.Tools.DolphinTool = s.str("tools.dolphin_tool", cfg.Tools.DolphinTool)
	cfg.Tools.SevenZip = s.str("tools.sevenzip", cfg.Tools.SevenZip)
	cfg.Tools.Maxcso = s.str("tools.maxcso", cfg.Tools.Maxcso)

	cfg.CHDMan.NumProcessors = s.integer("chdman.num_processors", cfg.CHDMan.NumProcessors)
	cfg.CHDMan.CDHunkSize = s.integer("chdman.cd_hunk_size", cfg.CHDMan.CDHunkSize)
	cfg.CHDMan.CDCompression = s.str("chdman.cd_compression", cfg.CHDMan.CDCompression)
	cfg.CHDMan.DVDHunkSize = s.integer("chdman.dvd_hunk_size", cfg.CHDMan.DVDHunkSize)
	cfg.CHDMan.DVDCompression = s.str("chdman.dvd_compression", cfg.CHDMan.DVDCompression)
	cfg.CHDMan.HDHunkSize = s.integer("chdman.hd_hunk_size", cfg.CHDMan.HDHunkSize)
	cfg.CHDMan.HDCompression = s.str("chdman.hd_compression", cfg.CHDMan.HDCompression)
	cfg.CHDMan.LDHunkSize = s.integer("chdman.ld_hunk_size", cfg.CHDMan.LDHunkSize)
	cfg.CHDMan.LDCompression = s.str("chdman.ld_compression", cfg.CHDMan.LDCompression)
	cfg.CHDMan.RawHunkSize = s.integer("chdman.raw_hunk_size", cfg.CHDMan.RawHunkSize)
	cfg.CHDMan.RawCompression = s.str("chdman.raw_compression", cfg.CHDMan.RawCompression)

	cfg.Dolphin.Format = s.str("dolphin.format", cfg.Dolphin.Format)
	cfg.Dolphin.CompressionLevel = s.integer("dolphin.compression_level", cfg.Dolphin.CompressionLevel)

	return &cfg
}
