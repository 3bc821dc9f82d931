// conf/consts.go hard coded constants
package conf

const (
	// OutputFileExt is the canonical extension of a written SpectraList file.
	OutputFileExt = ".pico"

	// BatchFilePattern is the glob form of the output file names the batch
	// counter looks for; datadir.GetNextCounter matches them with its own
	// regular expression rather than this constant.
	BatchFilePattern = "b??????_s??????.pico*"

	// DefaultDispatcherTick is the fallback idle-poll period for the dispatcher.
	DefaultDispatcherTick = "100ms"
)
