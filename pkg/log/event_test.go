package log

import "testing"

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{LayerDevice.String(), "DEVICE"},
		{LayerSession.String(), "SESSION"},
		{LayerService.String(), "SERVICE"},
		{Layer(99).String(), "UNKNOWN"},
		{CategoryAccess.String(), "ACCESS"},
		{CategoryState.String(), "STATE"},
		{CategoryRefresh.String(), "REFRESH"},
		{CategoryEdit.String(), "EDIT"},
		{CategoryError.String(), "ERROR"},
		{Category(99).String(), "UNKNOWN"},
		{OpRead.String(), "READ"},
		{OpWrite.String(), "WRITE"},
		{StateEntitySession.String(), "SESSION"},
		{StateEntityScheduler.String(), "SCHEDULER"},
		{TriggerManual.String(), "MANUAL"},
		{TriggerScheduled.String(), "SCHEDULED"},
		{TriggerEdit.String(), "EDIT"},
		{EditBegun.String(), "BEGUN"},
		{EditCommitted.String(), "COMMITTED"},
		{EditFailed.String(), "FAILED"},
		{EditCancelled.String(), "CANCELLED"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
