package entities

// CreateRequestRequest is the payload a customer submits to book a job.
type CreateRequestRequest struct {
	ServiceType  string  `json:"service_type" validate:"required"`
	VehicleType  string  `json:"vehicle_type" validate:"omitempty"`
	Address      string  `json:"address" validate:"required,max=500"`
	Lat          float64 `json:"lat" validate:"required"`
	Lng          float64 `json:"lng" validate:"required"`
	ContactName  string  `json:"contact_name" validate:"omitempty,max=255"`
	ContactPhone string  `json:"contact_phone" validate:"omitempty,max=32"`
	ContactEmail string  `json:"contact_email" validate:"omitempty,email"`
	CouponCode   string  `json:"coupon_code" validate:"omitempty"`
}

// UpdateStatusRequest is the technician-driven (or general cancel) status
// PATCH payload; Status is matched against the alias table before any
// transition validation.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CancelRequest is the explicit-cancel route's payload.
type CancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}
