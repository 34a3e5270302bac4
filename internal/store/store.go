package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hort-presence-backend/internal/location"
	"hort-presence-backend/internal/model"
	"hort-presence-backend/internal/session"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB
	UpsertGroupsAndStudents(ctx context.Context, rows []session.StudentLocation) error
	UpdatePresence(ctx context.Context, now time.Time, rows []session.StudentLocation) ([]string, error)
	SyncUnclaimed(ctx context.Context, now time.Time, unclaimed []session.ActiveGroup) ([]string, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// UpdatePresence diffs the latest backend snapshot against the open presence
// rows and archives finished spans, all in one transaction. It returns the
// IDs of students whose whereabouts changed. Students at home and not sick
// are untracked: their open row, if any, is archived and removed.
func (s *gormStore) UpdatePresence(ctx context.Context, now time.Time, rows []session.StudentLocation) ([]string, error) {
	currentOpen, err := s.fetchAllOpenPresence(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open presence records: %w", err)
	}

	var changed []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			oldRecord, exists := currentOpen[row.StudentID]

			if exists {
				if row.CurrentLocation != oldRecord.RawLocation || row.Sick != oldRecord.Sick {
					if err := archiveSpan(tx, oldRecord, now); err != nil {
						return err
					}

					if isTracked(row) {
						updated := preparePresence(row, now)
						if err := tx.Save(&updated).Error; err != nil {
							return fmt.Errorf("failed to update presence record for student %s: %w", row.StudentID, err)
						}
					} else {
						if err := tx.Delete(&model.PresenceOpen{}, "student_id = ?", oldRecord.StudentID).Error; err != nil {
							return fmt.Errorf("failed to delete open presence record for student %s: %w", oldRecord.StudentID, err)
						}
					}
					changed = append(changed, row.StudentID)
				}
				delete(currentOpen, row.StudentID)
			} else if isTracked(row) {
				newRecord := preparePresence(row, now)
				if err := tx.Create(&newRecord).Error; err != nil {
					return fmt.Errorf("failed to create presence record for student %s: %w", row.StudentID, err)
				}
				changed = append(changed, row.StudentID)
			}
		}

		// Students that were tracked but are no longer in the feed.
		for _, remaining := range currentOpen {
			if err := archiveSpan(tx, remaining, now); err != nil {
				return err
			}
			if err := tx.Delete(&model.PresenceOpen{}, "student_id = ?", remaining.StudentID).Error; err != nil {
				return fmt.Errorf("failed to delete open presence record for student %s: %w", remaining.StudentID, err)
			}
			changed = append(changed, remaining.StudentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// isTracked reports whether a snapshot warrants an open row. Home-and-well is
// the default state and is represented by absence.
func isTracked(row session.StudentLocation) bool {
	return location.Parse(row.CurrentLocation).Kind != location.KindHome || row.Sick
}

// archiveSpan writes a completed presence span into the history table.
func archiveSpan(tx *gorm.DB, record model.PresenceOpen, observationTime time.Time) error {
	historyRecord := model.PresenceHistory{
		StudentID:   record.StudentID,
		ObservedAt:  observationTime, // WHEN we confirmed the span's completion.
		RawLocation: record.RawLocation,
		Kind:        record.Kind,
		RoomName:    record.RoomName,
		Sick:        record.Sick,
		PeriodStart: record.ObservedAt,
		PeriodEnd:   observationTime,
	}

	if err := tx.Create(&historyRecord).Error; err != nil {
		return fmt.Errorf("failed to archive presence record for student %s: %w", record.StudentID, err)
	}
	return nil
}

// UpsertGroupsAndStudents refreshes the roster tables from the latest feed.
func (s *gormStore) UpsertGroupsAndStudents(ctx context.Context, rows []session.StudentLocation) error {
	existingStudents, err := s.fetchAllStudents(ctx)
	if err != nil {
		log.Printf("Warning: could not pre-fetch students: %v", err)
		existingStudents = make(map[string]model.Student)
	}

	if err := s.saveGroups(ctx, rows); err != nil {
		return fmt.Errorf("failed to process groups: %w", err)
	}

	var studentsToUpsert []model.Student
	for _, row := range rows {
		student, needsUpsert := prepareStudent(row, existingStudents)
		if needsUpsert {
			studentsToUpsert = append(studentsToUpsert, student)
		}
	}

	if len(studentsToUpsert) > 0 {
		log.Printf("Batch upserting %d students...", len(studentsToUpsert))
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return batchUpsertStudents(tx, studentsToUpsert)
		})
	}
	return nil
}

// SyncUnclaimed reconciles the alert table against the current unclaimed set
// and returns the active-group IDs that are newly unclaimed, so each group is
// alerted on exactly once per unclaimed episode.
func (s *gormStore) SyncUnclaimed(ctx context.Context, now time.Time, unclaimed []session.ActiveGroup) ([]string, error) {
	var existing []model.UnclaimedAlert
	if err := s.db.WithContext(ctx).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch unclaimed alerts: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, alert := range existing {
		known[alert.ActiveGroupID] = true
	}

	current := make(map[string]bool, len(unclaimed))
	var fresh []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, group := range unclaimed {
			current[group.ID] = true
			if known[group.ID] {
				continue
			}
			alert := model.UnclaimedAlert{
				ActiveGroupID: group.ID,
				GroupID:       group.GroupID,
				FirstSeenAt:   now,
			}
			if err := tx.Create(&alert).Error; err != nil {
				return fmt.Errorf("failed to create unclaimed alert for group %s: %w", group.ID, err)
			}
			fresh = append(fresh, group.ID)
		}

		// Groups claimed or ended since the last cycle.
		for _, alert := range existing {
			if !current[alert.ActiveGroupID] {
				if err := tx.Delete(&model.UnclaimedAlert{}, "active_group_id = ?", alert.ActiveGroupID).Error; err != nil {
					return fmt.Errorf("failed to clear unclaimed alert for group %s: %w", alert.ActiveGroupID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// --- Helpers ---

func (s *gormStore) fetchAllOpenPresence(ctx context.Context) (map[string]model.PresenceOpen, error) {
	var openRecords []model.PresenceOpen
	if err := s.db.WithContext(ctx).Find(&openRecords).Error; err != nil {
		return nil, err
	}
	recordMap := make(map[string]model.PresenceOpen, len(openRecords))
	for _, r := range openRecords {
		recordMap[r.StudentID] = r
	}
	return recordMap, nil
}

func (s *gormStore) fetchAllStudents(ctx context.Context) (map[string]model.Student, error) {
	var students []model.Student
	if err := s.db.WithContext(ctx).Find(&students).Error; err != nil {
		return nil, err
	}
	studentMap := make(map[string]model.Student, len(students))
	for _, st := range students {
		studentMap[st.ID] = st
	}
	return studentMap, nil
}

func (s *gormStore) saveGroups(ctx context.Context, rows []session.StudentLocation) error {
	groupsToUpsert := make(map[string]model.Group)
	for _, row := range rows {
		if row.GroupID == "" {
			continue
		}
		if _, exists := groupsToUpsert[row.GroupID]; !exists {
			groupsToUpsert[row.GroupID] = model.Group{ID: row.GroupID, Name: row.GroupName}
		}
	}

	if len(groupsToUpsert) == 0 {
		return nil
	}

	var groupList []model.Group
	for _, g := range groupsToUpsert {
		groupList = append(groupList, g)
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&groupList).Error; err != nil {
		return fmt.Errorf("batch upsert groups failed: %w", err)
	}
	return nil
}

func preparePresence(row session.StudentLocation, now time.Time) model.PresenceOpen {
	st := location.Parse(row.CurrentLocation)
	return model.PresenceOpen{
		StudentID:   row.StudentID,
		ObservedAt:  now,
		RawLocation: row.CurrentLocation,
		Kind:        string(st.Kind),
		RoomName:    st.RoomName,
		Sick:        row.Sick,
	}
}

func prepareStudent(row session.StudentLocation, existingStudents map[string]model.Student) (model.Student, bool) {
	newStudent := model.Student{
		ID:          row.StudentID,
		GroupID:     row.GroupID,
		DisplayName: row.DisplayName,
	}

	if oldStudent, exists := existingStudents[newStudent.ID]; exists {
		if oldStudent.GroupID == newStudent.GroupID &&
			oldStudent.DisplayName == newStudent.DisplayName {
			return newStudent, false
		}
	}
	return newStudent, true
}

func batchUpsertStudents(tx *gorm.DB, students []model.Student) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"group_id", "display_name", "updated_at"}),
	}).Create(&students).Error
}
