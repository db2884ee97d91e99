package export

import (
	"fmt"

	"github.com/pavelanni/examgen/internal/model"
)

// JSONProjector writes the exam verbatim as pretty-printed JSON (2-space indent, trailing newline).
type JSONProjector struct{}

// Project implements Projector.
func (JSONProjector) Project(exam model.Exam) ([]byte, error) {
	data, err := model.MarshalIndentJSON(exam, "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}
