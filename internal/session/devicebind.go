package session

import (
	"context"
	"errors"
	"fmt"

	"geoattend/internal/directory"
)

// BindingOutcome is the tagged result of reconciling the one-account,
// one-device rule at login.
type BindingOutcome int

const (
	// BindingMatch: this device is already linked to this student.
	BindingMatch BindingOutcome = iota
	// BindingCreated: neither side was linked; a new binding now ties them.
	BindingCreated
	// BindingAdopted: the device was registered under this account's email
	// but the student record was not yet linked; the existing row is adopted.
	BindingAdopted
	// DeviceBoundElsewhere: the device belongs to a different student.
	DeviceBoundElsewhere
	// AccountBoundElsewhere: the account is linked to a different device.
	AccountBoundElsewhere
)

func (o BindingOutcome) String() string {
	switch o {
	case BindingMatch:
		return "match"
	case BindingCreated:
		return "created"
	case BindingAdopted:
		return "adopted"
	case DeviceBoundElsewhere:
		return "device_bound_elsewhere"
	case AccountBoundElsewhere:
		return "account_bound_elsewhere"
	default:
		return "unknown"
	}
}

// Rejects reports whether the outcome blocks the login.
func (o BindingOutcome) Rejects() bool {
	return o == DeviceBoundElsewhere || o == AccountBoundElsewhere
}

// BindingDirectory is the slice of the document directory the
// reconciliation needs.
type BindingDirectory interface {
	BindingByDeviceUUID(ctx context.Context, deviceUUID string) (*directory.DeviceBinding, error)
	CreateBinding(ctx context.Context, deviceUUID, email string) (directory.DeviceBinding, error)
	LinkBinding(ctx context.Context, studentDocID, bindingID string) error
}

// ErrNoStudentRecord means the account has no student directory record to
// bind a device to.
var ErrNoStudentRecord = errors.New("no student record for account")

// ReconcileDeviceBinding applies the one-account, one-device rule for a
// student logging in from a device. It returns exactly one outcome; the two
// *Elsewhere outcomes must reject the login.
func ReconcileDeviceBinding(ctx context.Context, dir BindingDirectory, student *directory.Student, userEmail, deviceUUID string) (BindingOutcome, error) {
	if student == nil {
		return 0, ErrNoStudentRecord
	}
	if deviceUUID == "" {
		return 0, errors.New("device identifier required")
	}

	matched, err := dir.BindingByDeviceUUID(ctx, deviceUUID)
	if err != nil {
		return 0, fmt.Errorf("binding lookup: %w", err)
	}

	switch {
	case matched == nil && student.DeviceBindingID == "":
		binding, err := dir.CreateBinding(ctx, deviceUUID, userEmail)
		if err != nil {
			return 0, fmt.Errorf("binding create: %w", err)
		}
		if err := dir.LinkBinding(ctx, student.ID, binding.ID); err != nil {
			return 0, fmt.Errorf("binding link: %w", err)
		}
		return BindingCreated, nil

	case matched == nil:
		return AccountBoundElsewhere, nil

	case student.DeviceBindingID == matched.ID:
		return BindingMatch, nil

	case student.DeviceBindingID == "":
		if matched.Email != userEmail {
			return DeviceBoundElsewhere, nil
		}
		if err := dir.LinkBinding(ctx, student.ID, matched.ID); err != nil {
			return 0, fmt.Errorf("binding adopt: %w", err)
		}
		return BindingAdopted, nil

	default:
		return DeviceBoundElsewhere, nil
	}
}
