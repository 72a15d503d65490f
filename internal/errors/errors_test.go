package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "minimal",
			err:      &Error{Kind: KindOutOfRange},
			contains: []string{"out_of_range"},
		},
		{
			name:     "with phase and address",
			err:      New(PhaseAttach, KindCorruptAttach).At(0x40).Detail("index %d", 9).Build(),
			contains: []string{"[attach]", "corrupt_attach", "0x00000040", "index 9"},
		},
		{
			name:     "with cause",
			err:      New(PhaseRead, KindInvalidPath).Cause(fmt.Errorf("no such file")).Build(),
			contains: []string{"invalid_path", "caused by: no such file"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.err.Error()
			for _, want := range tc.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := New(PhaseHierarchy, KindOutOfRange).At(8).Build()
	wrapped := fmt.Errorf("mdl: read nodes: %w", err)

	assert.True(t, stderrors.Is(wrapped, OutOfRange))
	assert.False(t, stderrors.Is(wrapped, CorruptAttach))
	assert.True(t, stderrors.Is(wrapped, &Error{Phase: PhaseHierarchy, Kind: KindOutOfRange}))
	assert.False(t, stderrors.Is(wrapped, &Error{Phase: PhaseAttach, Kind: KindOutOfRange}))
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(PhaseSkin, KindCorruptAttach).Build())
	assert.Equal(t, KindCorruptAttach, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestRephase(t *testing.T) {
	base := New(PhaseMetadata, KindOutOfRange).At(0x100).Build()

	got := Rephase(base, PhaseMetadata, KindOutOfRange, KindUnterminatedList)
	assert.Equal(t, KindUnterminatedList, KindOf(got))
	assert.True(t, stderrors.Is(got, UnterminatedList))

	other := New(PhaseMetadata, KindCorruptAttach).Build()
	assert.Same(t, other, Rephase(other, PhaseMetadata, KindOutOfRange, KindUnterminatedList))
}
