package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// sanitizeInput removes null bytes and other invisible control characters from input
func sanitizeInput(s string) string {
	// Remove null bytes and other control characters (except whitespace)
	result := strings.Map(func(r rune) rune {
		// Keep printable characters and normal whitespace (space, tab)
		if r == 0 || (r < 32 && r != '\t') {
			return -1 // Remove the character
		}
		return r
	}, s)
	return result
}

// PromptSave asks whether unsaved edits should be written before exit
func PromptSave(form string) (bool, error) {
	var save bool

	f := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Save changes to %s?", form)).
				Description("Edited records have not been written to the database").
				Affirmative("Save").
				Negative("Discard").
				Value(&save),
		),
	).WithTheme(NewAppTheme())

	if err := f.Run(); err != nil {
		return false, fmt.Errorf("prompt cancelled: %w", err)
	}

	return save, nil
}

// ConfirmReseed asks before the demo tables are replaced
func ConfirmReseed(path string, existing int) (bool, error) {
	var confirm bool

	f := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Replace data in %s?", path)).
				Description(fmt.Sprintf("%d employees will be deleted", existing)).
				Affirmative("Yes, reseed").
				Negative("Cancel").
				Value(&confirm),
		),
	).WithTheme(NewAppTheme())

	if err := f.Run(); err != nil {
		return false, err
	}

	return confirm, nil
}
