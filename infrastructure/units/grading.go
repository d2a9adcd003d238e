package units

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-concord/internal/domain"
)

// gradeInputs is what a grading unit compares.
type gradeInputs struct {
	candidate string
	reference string
	sentinel  bool
}

// readGradeInputs pulls the consensus answer and the expected answer from
// state. ok is false when the task has no expected answer, in which case
// the grader leaves state untouched.
func readGradeInputs(unit string, state domain.State, span trace.Span) (in gradeInputs, ok bool, err error) {
	agg, found := domain.Get(state, domain.KeyAggregation)
	if !found {
		return in, false, fail(span, domain.MissingStateError(unit, domain.KeyAggregation))
	}
	task, found := domain.Get(state, domain.KeyTask)
	if !found {
		return in, false, fail(span, domain.MissingStateError(unit, domain.KeyTask))
	}

	if task.ExpectedAnswer == "" {
		span.SetAttributes(attribute.Bool("grade.skipped", true))
		return in, false, nil
	}

	if len(task.ExpectedAnswer) > MaxStringLength {
		err := fmt.Errorf("expected answer too long: %d bytes exceeds limit of %d",
			len(task.ExpectedAnswer), MaxStringLength)
		return in, false, fail(span, domain.NewUnitError(unit, "read expected answer", err))
	}
	if len(agg.FinalAnswer) > MaxStringLength {
		err := fmt.Errorf("%w: consensus answer has %d bytes, limit is %d",
			ErrAnswerTooLong, len(agg.FinalAnswer), MaxStringLength)
		return in, false, fail(span, domain.NewUnitError(unit, "read consensus answer", err))
	}

	return gradeInputs{
		candidate: agg.FinalAnswer,
		reference: task.ExpectedAnswer,
		sentinel:  agg.IsSentinel(),
	}, true, nil
}
