package talkgroup

// IncludeExcludeFilter implements Filter: if Include is non-empty,
// only listed talkgroups are allowed; Exclude always takes priority
// over Include.
type IncludeExcludeFilter struct {
	Include map[uint16]struct{}
	Exclude map[uint16]struct{}
}

// NewIncludeExcludeFilter builds a filter from plain slices.
func NewIncludeExcludeFilter(include, exclude []uint16) *IncludeExcludeFilter {
	f := &IncludeExcludeFilter{
		Include: make(map[uint16]struct{}, len(include)),
		Exclude: make(map[uint16]struct{}, len(exclude)),
	}
	for _, tg := range include {
		f.Include[tg] = struct{}{}
	}
	for _, tg := range exclude {
		f.Exclude[tg] = struct{}{}
	}
	return f
}

// Allow implements Filter.
func (f *IncludeExcludeFilter) Allow(tg uint16) bool {
	if _, excluded := f.Exclude[tg]; excluded {
		return false
	}
	if len(f.Include) == 0 {
		return true
	}
	_, included := f.Include[tg]
	return included
}
