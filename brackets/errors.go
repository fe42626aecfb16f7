package brackets

import "errors"

// Ошибки движка прогнозов. Все, кроме ErrSubmissionLocked, восстановимы:
// операция отклоняется, состояние не меняется.
var (
	ErrInvalidPermutation  = errors.New("group order is not a permutation of the group's teams")
	ErrSelectionFull       = errors.New("third-place selection already has 8 teams")
	ErrInvalidPick         = errors.New("team is not eligible for this pick")
	ErrNotYetResolvable    = errors.New("match participants are not yet determined")
	ErrSubmissionLocked    = errors.New("bracket has been submitted and is locked")
	ErrUnknownMatch        = errors.New("unknown match")
	ErrUnknownTeam         = errors.New("unknown team")
	ErrIncompleteSelection = errors.New("exactly 8 third-place qualifiers are required")
	ErrInvalidSnapshot     = errors.New("snapshot is not internally consistent")
)
