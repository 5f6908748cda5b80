package memory

import (
	"context"
	"slices"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// ClassDirectory is a static class membership directory, seeded from config
// or tests.
type ClassDirectory struct {
	mu      sync.RWMutex
	classes map[string]domain.Class
}

func NewClassDirectory(classes ...domain.Class) *ClassDirectory {
	d := &ClassDirectory{classes: make(map[string]domain.Class, len(classes))}
	for _, c := range classes {
		d.Put(c)
	}
	return d
}

// Put adds or replaces a class.
func (d *ClassDirectory) Put(class domain.Class) {
	class.Students = slices.Clone(class.Students)
	d.mu.Lock()
	d.classes[class.ID] = class
	d.mu.Unlock()
}

// Enroll adds a student to an existing class.
func (d *ClassDirectory) Enroll(classID, studentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	class, ok := d.classes[classID]
	if !ok {
		return domain.ErrClassNotFound
	}
	if !slices.Contains(class.Students, studentID) {
		class.Students = append(class.Students, studentID)
		d.classes[classID] = class
	}
	return nil
}

func (d *ClassDirectory) GetClass(_ context.Context, classID string) (domain.Class, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	class, ok := d.classes[classID]
	if !ok {
		return domain.Class{}, domain.ErrClassNotFound
	}
	class.Students = slices.Clone(class.Students)
	return class, nil
}

func (d *ClassDirectory) IsEnrolled(_ context.Context, classID, studentID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	class, ok := d.classes[classID]
	if !ok {
		return false, domain.ErrClassNotFound
	}
	return slices.Contains(class.Students, studentID), nil
}

func (d *ClassDirectory) ListStudents(_ context.Context, classID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	class, ok := d.classes[classID]
	if !ok {
		return nil, domain.ErrClassNotFound
	}
	return slices.Clone(class.Students), nil
}
