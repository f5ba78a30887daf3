package domain

// SubjectFilter tracks which subject filters are selected on the study page.
// The zero-value-adjacent state (via NewSubjectFilter) shows everything; the
// sentinel "all" is mutually exclusive with specific subject selections, and
// deselecting the last specific subject falls back to "all".
type SubjectFilter struct {
	selected map[int64]bool
	all      bool
}

func NewSubjectFilter() *SubjectFilter {
	return &SubjectFilter{selected: make(map[int64]bool), all: true}
}

// ToggleAll resets the filter to show all files.
func (f *SubjectFilter) ToggleAll() {
	f.selected = make(map[int64]bool)
	f.all = true
}

// Toggle flips the selection state of a specific subject.
func (f *SubjectFilter) Toggle(subjectID int64) {
	f.all = false
	if f.selected[subjectID] {
		delete(f.selected, subjectID)
		if len(f.selected) == 0 {
			f.all = true
		}
		return
	}
	f.selected[subjectID] = true
}

// ShowsAll reports whether the filter is in the show-everything state.
func (f *SubjectFilter) ShowsAll() bool {
	return f.all
}

// Apply returns the files visible under the current selection.
func (f *SubjectFilter) Apply(files []*StudyFile) []*StudyFile {
	if f.all {
		return files
	}
	visible := make([]*StudyFile, 0, len(files))
	for _, file := range files {
		if f.selected[file.SubjectID] {
			visible = append(visible, file)
		}
	}
	return visible
}
