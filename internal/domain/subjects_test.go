package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSubjectsCarryIconoirIcons(t *testing.T) {
	require.Len(t, DefaultSubjects, len(IconoirSubjectIcons))
	for _, subject := range DefaultSubjects {
		icon, ok := IconoirSubjectIcons[subject.Name]
		require.True(t, ok, "no icon mapped for %s", subject.Name)
		assert.Equal(t, icon, subject.Icon, subject.Name)
		assert.NotEmpty(t, subject.Color, subject.Name)
	}
}

func TestIconoirSubjectIconNames(t *testing.T) {
	assert.Equal(t, "calculator", IconoirSubjectIcons["Mathematics"])
	assert.Equal(t, "flask", IconoirSubjectIcons["Science"])
	assert.Equal(t, DefaultSubjectIcon, IconoirSubjectIcons["Other"])
}
