package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classroom-quiz-service/internal/domain"
)

// ClassDirectory reads class membership from the classes and class_students
// tables.
type ClassDirectory struct {
	pool *pgxpool.Pool
}

func NewClassDirectory(pool *pgxpool.Pool) *ClassDirectory {
	return &ClassDirectory{pool: pool}
}

func (d *ClassDirectory) GetClass(ctx context.Context, classID string) (domain.Class, error) {
	class := domain.Class{ID: classID}
	err := d.pool.QueryRow(ctx, `SELECT name, teacher_id FROM classes WHERE id=$1`, classID).Scan(&class.Name, &class.TeacherID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Class{}, domain.ErrClassNotFound
	}
	if err != nil {
		return domain.Class{}, fmt.Errorf("load class: %w", err)
	}
	students, err := d.students(ctx, classID)
	if err != nil {
		return domain.Class{}, err
	}
	class.Students = students
	return class, nil
}

func (d *ClassDirectory) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	var classExists, enrolled bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM classes WHERE id=$1),
		        EXISTS (SELECT 1 FROM class_students WHERE class_id=$1 AND student_id=$2)`,
		classID, studentID).Scan(&classExists, &enrolled)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	if !classExists {
		return false, domain.ErrClassNotFound
	}
	return enrolled, nil
}

func (d *ClassDirectory) ListStudents(ctx context.Context, classID string) ([]string, error) {
	var exists bool
	if err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM classes WHERE id=$1)`, classID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check class: %w", err)
	}
	if !exists {
		return nil, domain.ErrClassNotFound
	}
	return d.students(ctx, classID)
}

// Upsert writes a class and replaces its roster. Used to seed classes from
// configuration.
func (d *ClassDirectory) Upsert(ctx context.Context, class domain.Class) error {
	return d.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO classes (id, name, teacher_id) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, teacher_id=EXCLUDED.teacher_id`,
			class.ID, class.Name, class.TeacherID); err != nil {
			return fmt.Errorf("upsert class: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM class_students WHERE class_id=$1`, class.ID); err != nil {
			return fmt.Errorf("reset roster: %w", err)
		}
		batch := &pgx.Batch{}
		for _, studentID := range class.Students {
			batch.Queue(`INSERT INTO class_students (class_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, class.ID, studentID)
		}
		if batch.Len() == 0 {
			return nil
		}
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("enroll student: %w", err)
			}
		}
		return results.Close()
	})
}

func (d *ClassDirectory) students(ctx context.Context, classID string) ([]string, error) {
	rows, err := d.pool.Query(ctx, `SELECT student_id FROM class_students WHERE class_id=$1 ORDER BY enrolled_at, student_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
