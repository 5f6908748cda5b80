package app

import (
	"context"
	"fmt"

	"classroom-quiz-service/internal/domain"
)

type membership int

const (
	outsider membership = iota
	classTeacher
	enrolledStudent
)

// base carries the collaborators and settings shared by the services.
type base struct {
	settings
	quizzes QuizRepository
	classes ClassDirectory
}

func requireTeacher(actor domain.Actor) error {
	if !actor.IsTeacher() {
		return domain.ErrTeacherOnly
	}
	return nil
}

func requireStudent(actor domain.Actor) error {
	if !actor.IsStudent() {
		return domain.ErrStudentOnly
	}
	return nil
}

// membershipOf asks the class directory how actor relates to classID. Roles
// on the actor are only trusted together with the directory answer.
func (b base) membershipOf(ctx context.Context, actor domain.Actor, classID string) (domain.Class, membership, error) {
	class, err := b.classes.GetClass(ctx, classID)
	if err != nil {
		return domain.Class{}, outsider, err
	}
	switch {
	case actor.IsTeacher() && class.TeacherID == actor.ID:
		return class, classTeacher, nil
	case actor.IsStudent():
		ok, err := b.classes.IsEnrolled(ctx, classID, actor.ID)
		if err != nil {
			return domain.Class{}, outsider, fmt.Errorf("check enrollment: %w", err)
		}
		if ok {
			return class, enrolledStudent, nil
		}
	}
	return class, outsider, nil
}

// requireClassTeacher loads the class and fails unless actor teaches it.
func (b base) requireClassTeacher(ctx context.Context, actor domain.Actor, classID string) (domain.Class, error) {
	if err := requireTeacher(actor); err != nil {
		return domain.Class{}, err
	}
	class, m, err := b.membershipOf(ctx, actor, classID)
	if err != nil {
		return domain.Class{}, err
	}
	if m != classTeacher {
		return domain.Class{}, domain.ErrNotClassTeacher
	}
	return class, nil
}

// requireEnrolled fails unless actor is a student enrolled in classID.
func (b base) requireEnrolled(ctx context.Context, actor domain.Actor, classID string) (domain.Class, error) {
	if err := requireStudent(actor); err != nil {
		return domain.Class{}, err
	}
	class, m, err := b.membershipOf(ctx, actor, classID)
	if err != nil {
		return domain.Class{}, err
	}
	if m != enrolledStudent {
		return domain.Class{}, domain.ErrNotEnrolled
	}
	return class, nil
}

func forbiddenFor(actor domain.Actor) error {
	if actor.IsTeacher() {
		return domain.ErrNotClassTeacher
	}
	return domain.ErrNotEnrolled
}
