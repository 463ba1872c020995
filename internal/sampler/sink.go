package sampler

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/Dicklesworthstone/resmon/internal/model"
)

// WriteSummary writes the summary as a single JSON line.
func WriteSummary(w io.Writer, summary *model.Summary) error {
	return json.NewEncoder(w).Encode(summary)
}
