package entities

import (
	"testing"

	"github.com/google/uuid"
)

func TestRoomNaming(t *testing.T) {
	id := uuid.New()

	if got, want := UserRoom(id), "user_"+id.String(); got != want {
		t.Errorf("UserRoom() = %q, want %q", got, want)
	}
	if got, want := TechnicianRoom(id), "technician_"+id.String(); got != want {
		t.Errorf("TechnicianRoom() = %q, want %q", got, want)
	}
	if got, want := RequestRoom(id), "request_"+id.String(); got != want {
		t.Errorf("RequestRoom() = %q, want %q", got, want)
	}
}
