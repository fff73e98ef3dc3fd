package celldevs

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/devs-sim/devs-sim/sim"
)

// MergePatch applies an RFC 7386 JSON merge patch to base and returns the
// merged document. The patch wins field by field, recursively; a null value
// in the patch deletes the field; arrays are replaced, never merged.
func MergePatch(base, patch []byte) ([]byte, error) {
	merged, err := jsonpatch.MergePatch(base, patch)
	if err != nil {
		return nil, fmt.Errorf("merge patch: %v: %w", err, sim.ErrConfig)
	}
	return merged, nil
}
