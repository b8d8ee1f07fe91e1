package layer

// Standard priority levels for settings layers.
// Higher values override lower values during merging.
const (
	// PriorityDefaults is the lowest priority for tree defaults.
	PriorityDefaults = 0

	// PriorityFile is the priority of the first settings file. Later files
	// take PriorityFile+1, PriorityFile+2 and so on.
	PriorityFile = 100

	// PriorityEnv is for environment variable overrides.
	PriorityEnv = 500

	// PrioritySession is the highest priority for values set at runtime.
	PrioritySession = 1000
)

// DefaultPriority returns the default priority for a given source.
func DefaultPriority(source Source) int {
	switch source {
	case SourceDefaults:
		return PriorityDefaults
	case SourceFile:
		return PriorityFile
	case SourceEnv:
		return PriorityEnv
	case SourceSession:
		return PrioritySession
	default:
		return PriorityDefaults
	}
}
