package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoattend/internal/directory"
)

type fakeBindingDir struct {
	bindings map[string]directory.DeviceBinding // keyed by device UUID
	links    map[string]string                  // student doc id -> binding id
	created  int
}

func newFakeBindingDir() *fakeBindingDir {
	return &fakeBindingDir{
		bindings: make(map[string]directory.DeviceBinding),
		links:    make(map[string]string),
	}
}

func (f *fakeBindingDir) BindingByDeviceUUID(ctx context.Context, deviceUUID string) (*directory.DeviceBinding, error) {
	if b, ok := f.bindings[deviceUUID]; ok {
		return &b, nil
	}
	return nil, nil
}

func (f *fakeBindingDir) CreateBinding(ctx context.Context, deviceUUID, email string) (directory.DeviceBinding, error) {
	f.created++
	b := directory.DeviceBinding{ID: "bind-" + deviceUUID, DeviceUUID: deviceUUID, Email: email}
	f.bindings[deviceUUID] = b
	return b, nil
}

func (f *fakeBindingDir) LinkBinding(ctx context.Context, studentDocID, bindingID string) error {
	f.links[studentDocID] = bindingID
	return nil
}

func student(id, bindingID string) *directory.Student {
	return &directory.Student{ID: id, UserID: "user-" + id, Email: id + "@campus.edu", DeviceBindingID: bindingID}
}

func TestReconcileCreatesFreshBinding(t *testing.T) {
	dir := newFakeBindingDir()

	outcome, err := ReconcileDeviceBinding(context.Background(), dir, student("stu-1", ""), "stu-1@campus.edu", "device-a")
	require.NoError(t, err)
	assert.Equal(t, BindingCreated, outcome)
	assert.False(t, outcome.Rejects())
	assert.Equal(t, 1, dir.created)
	assert.Equal(t, "bind-device-a", dir.links["stu-1"])
}

func TestReconcileMatch(t *testing.T) {
	dir := newFakeBindingDir()
	dir.bindings["device-a"] = directory.DeviceBinding{ID: "bind-1", DeviceUUID: "device-a", Email: "stu-1@campus.edu"}

	outcome, err := ReconcileDeviceBinding(context.Background(), dir, student("stu-1", "bind-1"), "stu-1@campus.edu", "device-a")
	require.NoError(t, err)
	assert.Equal(t, BindingMatch, outcome)
	assert.Equal(t, 0, dir.created)
}

func TestReconcileAdoptsUnlinkedOwnBinding(t *testing.T) {
	dir := newFakeBindingDir()
	dir.bindings["device-a"] = directory.DeviceBinding{ID: "bind-1", DeviceUUID: "device-a", Email: "stu-1@campus.edu"}

	outcome, err := ReconcileDeviceBinding(context.Background(), dir, student("stu-1", ""), "stu-1@campus.edu", "device-a")
	require.NoError(t, err)
	assert.Equal(t, BindingAdopted, outcome)
	assert.Equal(t, "bind-1", dir.links["stu-1"])
	assert.Equal(t, 0, dir.created)
}

func TestReconcileDeviceBoundToOtherAccount(t *testing.T) {
	dir := newFakeBindingDir()
	dir.bindings["device-a"] = directory.DeviceBinding{ID: "bind-1", DeviceUUID: "device-a", Email: "other@campus.edu"}

	outcome, err := ReconcileDeviceBinding(context.Background(), dir, student("stu-1", ""), "stu-1@campus.edu", "device-a")
	require.NoError(t, err)
	assert.Equal(t, DeviceBoundElsewhere, outcome)
	assert.True(t, outcome.Rejects())
	assert.Empty(t, dir.links)
}

func TestReconcileDeviceBoundToOtherStudent(t *testing.T) {
	dir := newFakeBindingDir()
	dir.bindings["device-a"] = directory.DeviceBinding{ID: "bind-1", DeviceUUID: "device-a", Email: "other@campus.edu"}

	outcome, err := ReconcileDeviceBinding(context.Background(), dir, student("stu-1", "bind-2"), "stu-1@campus.edu", "device-a")
	require.NoError(t, err)
	assert.Equal(t, DeviceBoundElsewhere, outcome)
	assert.True(t, outcome.Rejects())
}

func TestReconcileAccountBoundToOtherDevice(t *testing.T) {
	dir := newFakeBindingDir()

	outcome, err := ReconcileDeviceBinding(context.Background(), dir, student("stu-1", "bind-9"), "stu-1@campus.edu", "device-b")
	require.NoError(t, err)
	assert.Equal(t, AccountBoundElsewhere, outcome)
	assert.True(t, outcome.Rejects())
	assert.Equal(t, 0, dir.created)
}

func TestReconcileRequiresStudentAndDevice(t *testing.T) {
	dir := newFakeBindingDir()

	_, err := ReconcileDeviceBinding(context.Background(), dir, nil, "x@campus.edu", "device-a")
	assert.ErrorIs(t, err, ErrNoStudentRecord)

	_, err = ReconcileDeviceBinding(context.Background(), dir, student("stu-1", ""), "x@campus.edu", "")
	assert.Error(t, err)
}
