package config

// Entry is a single configuration key with its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns the default configuration entries, one per key.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		{
			Key:         "output_format",
			Value:       d.OutputFormat,
			Description: "Output format when the output path has no .cbz or .pdf extension",
		},
		{
			Key:         "on_invalid",
			Value:       d.OnInvalid,
			Description: "What to do with image entries whose names are not page numbers: skip or abort",
		},
		{
			Key:         "strict_spreads",
			Value:       d.StrictSpreads,
			Description: "Reject spread names whose second number is not the first plus one",
		},
		{
			Key:         "min_width",
			Value:       d.MinWidth,
			Description: "Minimum number of digits in output page names",
		},
		{
			Key:         "archive_extensions",
			Value:       d.ArchiveExtensions,
			Description: "Archive extensions picked up from the input directory",
		},
		{
			Key:         "progress",
			Value:       d.Progress,
			Description: "Draw a progress bar on stderr while merging",
		},
		{
			Key:         "log_level",
			Value:       d.LogLevel,
			Description: "Log level: debug, info, warn or error",
		},
		{
			Key:         "watch.debounce",
			Value:       d.Watch.Debounce,
			Description: "Quiet period after the last change before watch mode merges",
		},
	}
}

// GetDefault returns the default entry for a key, or nil if none exists.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}
