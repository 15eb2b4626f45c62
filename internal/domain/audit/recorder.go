// Package audit produces the immutable edit and deletion records kept for trips
// that have already been completed.
package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// Justification is the reason an operator gives for a change
type Justification struct {
	Reason  string `json:"reason"`
	Comment string `json:"comment,omitempty"`
}

// Resolve returns the reason to record. The open-ended Other reason is
// replaced by the mandatory comment.
func (j Justification) Resolve() (string, error) {
	reason := strings.TrimSpace(j.Reason)
	if reason == "" {
		return "", apperr.Invalid("reason", apperr.KindRequired, "a reason is required")
	}
	if reason == entity.ReasonOther {
		comment := strings.TrimSpace(j.Comment)
		if comment == "" {
			return "", apperr.Invalid("comment", apperr.KindRequired, "please specify the reason in the comment")
		}
		return comment, nil
	}
	return reason, nil
}

// DeletionRequest is what an operator submits to delete a trip
type DeletionRequest struct {
	Justification
	Confirmation string `json:"confirmation"`
}

// ConfirmationPhrase is the text an operator must type to delete trip
func ConfirmationPhrase(trip *entity.Trip) string {
	return "DELETE " + trip.FleetNumber
}

// RecordEdit diffs the editable fields of former and updated and returns one
// record per changed field. The trip must be completed or later.
func RecordEdit(trip, former, updated *entity.Trip, j Justification, actor entity.Actor, now time.Time) ([]*entity.TripEditRecord, error) {
	if !trip.Status.IsCompletedOrLater() {
		return nil, apperr.Conflict("trip %s is %s; audited edits apply to completed trips", trip.ID, trip.Status)
	}

	reason, err := j.Resolve()
	if err != nil {
		return nil, err
	}

	var records []*entity.TripEditRecord
	for _, f := range editableFields {
		oldValue, newValue := f.value(former), f.value(updated)
		if oldValue == newValue {
			continue
		}
		records = append(records, &entity.TripEditRecord{
			ID:           uuid.NewString(),
			TripID:       trip.ID,
			EditedBy:     actor.DisplayName(),
			EditedAt:     now,
			Reason:       reason,
			FieldChanged: f.name,
			OldValue:     oldValue,
			NewValue:     newValue,
			ChangeType:   entity.ChangeTypeUpdate,
		})
	}

	if len(records) == 0 {
		return nil, &apperr.NoChangeError{TripID: trip.ID}
	}
	return records, nil
}

// RecordDeletion builds the forensic record that must be stored before trip is
// removed. Only administrators may delete, and only with the typed confirmation.
func RecordDeletion(trip *entity.Trip, req DeletionRequest, actor entity.Actor, now time.Time) (*entity.TripDeletionRecord, error) {
	if !actor.IsAdmin() {
		return nil, &apperr.PermissionError{Action: "delete trips", Role: actor.Role}
	}

	reason, err := req.Resolve()
	if err != nil {
		return nil, err
	}

	if expected := ConfirmationPhrase(trip); req.Confirmation != expected {
		return nil, &apperr.ConfirmationMismatchError{Expected: expected}
	}

	snapshot, err := json.Marshal(trip)
	if err != nil {
		return nil, fmt.Errorf("snapshot trip %s: %w", trip.ID, err)
	}

	return &entity.TripDeletionRecord{
		ID:                uuid.NewString(),
		TripID:            trip.ID,
		FleetNumber:       trip.FleetNumber,
		DeletedBy:         actor.DisplayName(),
		DeletedAt:         now,
		Reason:            reason,
		TripData:          string(snapshot),
		TotalRevenue:      trip.BaseRevenue,
		TotalCosts:        trip.TotalCosts(),
		CostEntriesCount:  len(trip.Costs),
		FlaggedItemsCount: trip.FlaggedCount(),
	}, nil
}
