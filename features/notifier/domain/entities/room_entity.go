// Package entities defines the room-naming and event-naming conventions
// of the Real-time Notifier. Rooms are a pure naming scheme; the actual
// fan-out transport is Redis pub/sub (see core/services/redis_service.go).
package entities

import "github.com/google/uuid"

// Event is the closed set of push event names the Notifier emits. Payload
// shapes are event-specific and intentionally untyped (map[string]interface{})
// since pushes are best-effort UI hints, never the system of record.
type Event string

const (
	EventJobOffer               Event = "job_offer"
	EventJobAssigned            Event = "job:assigned"
	EventJobRevoked             Event = "job:revoked"
	EventJobStatusUpdate        Event = "job:status_update"
	EventJobListUpdate          Event = "job:list_update"
	EventPaymentCompleted       Event = "payment_completed"
	EventAdminPaymentUpdate     Event = "admin:payment_update"
	EventLocationUpdate         Event = "location_update"
	EventTechnicianLocation     Event = "technician:location_update"
	EventTechnicianStatusUpdate Event = "technician:status_update"
)

// UserRoom returns the room name a user's connections subscribe to.
func UserRoom(userID uuid.UUID) string {
	return "user_" + userID.String()
}

// TechnicianRoom returns the room name a technician's connections subscribe to.
func TechnicianRoom(technicianID uuid.UUID) string {
	return "technician_" + technicianID.String()
}

// RequestRoom returns the room name request watchers subscribe to.
func RequestRoom(requestID uuid.UUID) string {
	return "request_" + requestID.String()
}

// BroadcastRoom is the single room every admin-dashboard connection joins.
const BroadcastRoom = "broadcast"

// Message is the envelope published to a room and received by connections.
type Message struct {
	Event   Event       `json:"event"`
	Payload interface{} `json:"payload"`
}
