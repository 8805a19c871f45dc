package progress

import (
	"context"
	"fmt"
	"time"

	"lms/models/course"
)

// SubmitAssessment grades one submission, records it on the owning module and,
// when it passes, runs the module/course completion cascade.
func (e *Engine) SubmitAssessment(ctx context.Context, assessmentID, userID uint, answers []Answer) (*AttemptResult, error) {
	const op = "submitAssessment"
	def, err := e.assessments.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("progress.%s: load assessment: %w", op, err)
	}
	if def == nil {
		return nil, newError(KindNotFound, op, "assessment %d not found", assessmentID)
	}
	if len(def.Questions) == 0 {
		return nil, newError(KindValidation, op, "assessment %d has no questions", assessmentID)
	}

	var res AttemptResult
	justCompleted := false
	p, err := e.mutate(ctx, op, userID, def.CourseID, func(p *course.Progress, now time.Time) (bool, error) {
		res = AttemptResult{AssessmentID: def.ID, PassingScore: def.PassingScore, AttemptsAllowed: def.AttemptsAllowed}
		justCompleted = false

		mi := p.ModuleIndex(def.ModuleID)
		if mi < 0 {
			return false, newError(KindNotFound, op, "module %d not in progress, requires reconciliation", def.ModuleID)
		}
		if !p.CanAccessModule(mi) {
			return false, newError(KindForbidden, op, "module %d is locked", def.ModuleID)
		}

		m := &p.Modules[mi]
		prior := m.AttemptsFor(def.ID)
		if def.AttemptsAllowed > 0 && len(prior) >= def.AttemptsAllowed {
			return false, newError(KindInvalidState, op, "max attempts reached (%d)", def.AttemptsAllowed)
		}
		for _, a := range prior {
			if a.Passed {
				return false, newError(KindInvalidState, op, "assessment %d already passed", def.ID)
			}
		}

		graded, correct, err := grade(op, def, answers)
		if err != nil {
			return false, err
		}
		score := roundHalfUp(float64(correct) / float64(len(def.Questions)) * 100)
		passed := score >= def.PassingScore

		m.AssessmentAttempts = append(m.AssessmentAttempts, course.AssessmentAttempt{
			AssessmentID: def.ID,
			Score:        score,
			Passed:       passed,
			AttemptedAt:  now,
			Answers:      graded,
		})

		moduleDone := m.IsCompleted
		if passed {
			moduleDone, _ = evaluateModule(p, mi, now)
			refreshAggregates(p)
			justCompleted = markCourseCompletion(p, now)
		}

		used := len(prior) + 1
		res.Score = score
		res.Passed = passed
		res.CorrectAnswers = correct
		res.TotalQuestions = len(def.Questions)
		res.AttemptsUsed = used
		res.CanRetake = !passed && (def.AttemptsAllowed <= 0 || used < def.AttemptsAllowed)
		res.ModuleCompleted = moduleDone
		res.NextModuleUnlocked = p.CanAccessModule(mi + 1)
		res.CourseCompleted = p.IsCompleted
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if justCompleted {
		e.notifyCompleted(ctx, p)
	}
	return &res, nil
}

// grade checks that answers cover every question exactly once with a known
// option and counts the correct ones.
func grade(op string, def *AssessmentDefinition, answers []Answer) ([]course.AttemptAnswer, int, error) {
	if len(answers) != len(def.Questions) {
		return nil, 0, newError(KindValidation, op, "expected %d answers, got %d", len(def.Questions), len(answers))
	}
	questions := make(map[uint]*QuestionDefinition, len(def.Questions))
	for i := range def.Questions {
		questions[def.Questions[i].ID] = &def.Questions[i]
	}

	seen := make(map[uint]bool, len(answers))
	graded := make([]course.AttemptAnswer, 0, len(answers))
	correct := 0
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			return nil, 0, newError(KindValidation, op, "unknown question %d", a.QuestionID)
		}
		if seen[a.QuestionID] {
			return nil, 0, newError(KindValidation, op, "question %d answered more than once", a.QuestionID)
		}
		seen[a.QuestionID] = true

		var opt *OptionDefinition
		for i := range q.Options {
			if q.Options[i].ID == a.OptionID {
				opt = &q.Options[i]
				break
			}
		}
		if opt == nil {
			return nil, 0, newError(KindValidation, op, "unknown option %d for question %d", a.OptionID, a.QuestionID)
		}
		if opt.IsCorrect {
			correct++
		}
		graded = append(graded, course.AttemptAnswer{
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.OptionID,
			IsCorrect:        opt.IsCorrect,
		})
	}
	return graded, correct, nil
}
