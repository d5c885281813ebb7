package config

import "runtime"

const (
	defaultTempDir           = "~/.local/share/transmute/work"
	defaultLogDir            = "~/.local/share/transmute/logs"
	defaultPollIntervalMS    = 200
	defaultSubprocessTimeout = 3600
	defaultMinFreeSpaceGiB   = 2
	defaultChdmanBinary      = "chdman"
	defaultDolphinToolBinary = "dolphin-tool"
	defaultSevenZipBinary    = "7z"
	defaultMaxcsoBinary      = "maxcso"
	defaultCDCompression     = "cdlz,cdzl,cdfl"
	defaultDVDCompression    = "lzma,zlib,huff,flac"
	defaultHDCompression     = "lzma,zlib,huff,flac"
	defaultLDCompression     = "avhu"
	defaultRawCompression    = "lzma,zlib,huff,flac"
	defaultDolphinFormat     = "rvz"
	defaultDolphinLevel      = 5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

func defaultWorkerCount() int {
	// Jobs block on external tools, so leave headroom for the tools' own
	// thread pools rather than saturating every core with workers.
	count := runtime.NumCPU() / 2
	if count < 1 {
		count = 1
	}
	if count > 4 {
		count = 4
	}
	return count
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir: defaultTempDir,
			LogDir:  defaultLogDir,
		},
		Workers: Workers{
			Count:             defaultWorkerCount(),
			PollIntervalMS:    defaultPollIntervalMS,
			SubprocessTimeout: defaultSubprocessTimeout,
			MinFreeSpaceGiB:   defaultMinFreeSpaceGiB,
		},
		Behavior: Behavior{
			CopyLocally: true,
			UseTrash:    true,
		},
		Tools: Tools{
			Chdman:      defaultChdmanBinary,
			DolphinTool: defaultDolphinToolBinary,
			SevenZip:    defaultSevenZipBinary,
			Maxcso:      defaultMaxcsoBinary,
		},
		CHDMan: CHDMan{
			CDCompression:  defaultCDCompression,
			DVDCompression: defaultDVDCompression,
			HDCompression:  defaultHDCompression,
			LDCompression:  defaultLDCompression,
			RawCompression: defaultRawCompression,
		},
		Dolphin: Dolphin{
			Format:           defaultDolphinFormat,
			CompressionLevel: defaultDolphinLevel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
