package document

import (
	"github.com/ehrlich-b/wscode/internal/apierr"
)

// applyChanges walks a DiffChange sequence left-to-right over the
// current content's codepoint sequence with a single cursor into it:
//
//   - removed: advance the cursor by the change's codepoint count.
//     The value is not checked against the underlying text — the
//     caller is trusted to send a valid diff.
//   - added: append the change's value to the output.
//   - neither: copy the change's codepoint count from the cursor
//     position and advance; fails InvalidChange if it would overrun.
func applyChanges(current string, changes []DiffChange) (string, error) {
	runes := []rune(current)
	p := 0
	var out []rune

	for _, c := range changes {
		count := len([]rune(c.Value))
		switch {
		case c.Removed:
			p += count
		case c.Added:
			out = append(out, []rune(c.Value)...)
		default:
			if p+count > len(runes) {
				return "", apierr.New(apierr.InvalidChange, "unchanged run overruns document")
			}
			out = append(out, runes[p:p+count]...)
			p += count
		}
	}
	return string(out), nil
}
